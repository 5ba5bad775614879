package model

// TrackedItem is a catalog entry: one LEGO set followed across merchants.
type TrackedItem struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	PieceCount *int              `json:"piece_count,omitempty"` // nil when absent or non-numeric
	Collection string            `json:"collection"`
	ImageURL   string            `json:"image_url,omitempty"`
	URLs       map[string]string `json:"urls,omitempty"` // merchant -> product page
}

// DisplayName returns the item name, or its ID when the name is blank.
func (t TrackedItem) DisplayName() string {
	if t.Name == "" {
		return t.ID
	}
	return t.Name
}

// HasPieceCount reports whether a usable piece count is known.
func (t TrackedItem) HasPieceCount() bool {
	return t.PieceCount != nil && *t.PieceCount > 0
}
