package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceKey identifies a price series in the ledger.
type PriceKey struct {
	ItemID   string
	Merchant string
}

// PriceObservation is a single price read from a merchant page during a run.
type PriceObservation struct {
	ItemID     string          `json:"item_id"`
	Merchant   string          `json:"merchant"`
	Price      decimal.Decimal `json:"price"`
	SourceURL  string          `json:"source_url"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Key returns the ledger series this observation belongs to.
func (o PriceObservation) Key() PriceKey {
	return PriceKey{ItemID: o.ItemID, Merchant: o.Merchant}
}

// PriceHistoryRecord is one append-only ledger row.
type PriceHistoryRecord struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"item_id"`
	ItemName   string          `json:"item_name,omitempty"`
	Merchant   string          `json:"merchant"`
	Price      decimal.Decimal `json:"price"`
	SourceURL  string          `json:"source_url"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Key returns the ledger series this record belongs to.
func (r PriceHistoryRecord) Key() PriceKey {
	return PriceKey{ItemID: r.ItemID, Merchant: r.Merchant}
}
