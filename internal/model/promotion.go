package model

// Promotion is a merchant-wide offer listed on the aggregator's promotions page.
type Promotion struct {
	ID       string `json:"id"` // href + "_" + end date, stable across runs
	Merchant string `json:"merchant"`
	Title    string `json:"title"`
	Details  string `json:"details"`
	URL      string `json:"url"`
}
