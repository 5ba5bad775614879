package store

import (
	"context"
	"time"

	"github.com/sells-group/brickwatch/internal/model"
)

// HistoryFilter specifies criteria for listing ledger records.
type HistoryFilter struct {
	ItemID   string `json:"item_id,omitempty"`
	Merchant string `json:"merchant,omitempty"`
	Limit    int    `json:"limit,omitempty"` // <= 0 means no limit
}

// Ledger is the append-only price history. Records are never updated; the
// only deletion is the explicit RemoveItem command.
type Ledger interface {
	// Append persists records, assigning IDs to those without one.
	Append(ctx context.Context, records []model.PriceHistoryRecord) error
	// Latest returns the newest record of every (item, merchant) series,
	// considering only records strictly before before. A zero before means
	// no bound.
	Latest(ctx context.Context, before time.Time) ([]model.PriceHistoryRecord, error)
	// History lists records newest first.
	History(ctx context.Context, filter HistoryFilter) ([]model.PriceHistoryRecord, error)
	// RemoveItem deletes every record of an item and returns the count.
	RemoveItem(ctx context.Context, itemID string) (int, error)

	// Promotions
	SeenPromotions(ctx context.Context, ids []string) (map[string]bool, error)
	MarkPromotionsSeen(ctx context.Context, ids []string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
