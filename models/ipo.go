package models

import "time"

// IPO is the canonical record for one public offering. The cleaned company
// name is the natural key: a record is created on first sighting and updated
// on every later crawl of the same name, never duplicated.
//
// Pointer fields mean "not known yet": the source site publishes the
// confirmed offer price, competition ratio and listing dates progressively
// as book-building completes.
type IPO struct {
	Name string `json:"name"`

	// Subscription window. SubEnd is inclusive through end of day.
	SubStart *time.Time `json:"sub_start"`
	SubEnd   *time.Time `json:"sub_end"`

	// Pricing in KRW, no decimals. OfferPrice is the confirmed price,
	// BandLow/BandHigh the proposed band.
	OfferPrice *int64 `json:"offer_price"`
	BandLow    *int64 `json:"band_low"`
	BandHigh   *int64 `json:"band_high"`

	// Free-text fields kept as published (e.g. "512.3:1", "미래에셋증권").
	Competition string `json:"competition"`
	Underwriter string `json:"underwriter"`

	// Detail-page refinements.
	LockupRate        string     `json:"lockup_rate"`
	CirculatingSupply string     `json:"circulating_supply"`
	OTCPrice          string     `json:"otc_price"`
	RefundDate        *time.Time `json:"refund_date"`
	ListDate          *time.Time `json:"list_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
