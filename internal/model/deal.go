package model

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Quality grades a deal against the estimated fair price.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityGood     Quality = "good"
	QualityGreat    Quality = "great"
)

// Rank orders qualities from least to most favorable.
func (q Quality) Rank() int {
	switch q {
	case QualityGreat:
		return 2
	case QualityGood:
		return 1
	default:
		return 0
	}
}

// ParseQuality validates a quality string.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case QualityStandard, QualityGood, QualityGreat:
		return q, nil
	default:
		return "", eris.Errorf("model: unknown deal quality %q", s)
	}
}

// Deal is a detected price decrease, ready for notification.
type Deal struct {
	ItemID        string           `json:"item_id"`
	DisplayName   string           `json:"display_name"`
	Merchant      string           `json:"merchant"`
	NewPrice      decimal.Decimal  `json:"new_price"`
	PreviousPrice decimal.Decimal  `json:"previous_price"`
	SourceURL     string           `json:"source_url"`
	ImageURL      string           `json:"image_url,omitempty"`
	Quality       Quality          `json:"quality"`
	FairPrice     *decimal.Decimal `json:"fair_price,omitempty"`
	MarketBest    bool             `json:"market_best,omitempty"` // new lowest price across all merchants
}

// Drop returns the absolute price decrease.
func (d Deal) Drop() decimal.Decimal {
	return d.PreviousPrice.Sub(d.NewPrice)
}
