package model

import "time"

// SortOrder selects the ranking metric for a market snapshot request.
type SortOrder string

const (
	OrderMarketCap SortOrder = "market_cap_desc"
	OrderVolume    SortOrder = "volume_desc"
)

// ParseSortOrder maps a user-supplied string to a SortOrder.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(s) {
	case OrderMarketCap, OrderVolume:
		return SortOrder(s), true
	}
	return "", false
}

// Timeframe selects which retained price series the presentation layer charts.
type Timeframe string

const (
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
)

// ParseTimeframe maps a user-supplied string to a Timeframe.
func ParseTimeframe(s string) (Timeframe, bool) {
	switch Timeframe(s) {
	case Timeframe7d, Timeframe30d:
		return Timeframe(s), true
	}
	return "", false
}

// AssetSnapshot is one row of the ranked market snapshot. Snapshots are
// rebuilt from scratch every refresh cycle and never patched in place.
type AssetSnapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Image       string    `json:"image"`
	Rank        int       `json:"rank"`
	Price       float64   `json:"price"`
	MarketCap   float64   `json:"market_cap"`
	Volume24h   float64   `json:"volume_24h"`
	Change24h   *float64  `json:"change_24h,omitempty"`
	Sparkline7d []float64 `json:"sparkline_7d,omitempty"`
}

// HistorySeries is a per-asset sequence of daily closing prices, ordered
// oldest to newest. It may be shorter than requested or empty.
type HistorySeries []float64

// IndicatorSet holds the derived indicators for one asset. Every field is
// independently nullable; failing to compute one never blocks the others.
type IndicatorSet struct {
	MA50      *float64  `json:"ma_50,omitempty"`
	MA200     *float64  `json:"ma_200,omitempty"`
	RSI14     *float64  `json:"rsi_14,omitempty"`
	VolumeCap *float64  `json:"volume_to_market_cap,omitempty"`
	Last30d   []float64 `json:"last_30d,omitempty"`
}

// EnrichedRecord is an AssetSnapshot merged with its IndicatorSet, the unit
// the presentation sink consumes.
type EnrichedRecord struct {
	AssetSnapshot
	Indicators IndicatorSet `json:"indicators"`
}

// Board is one completed refresh result: the full record set in rank order
// plus the modes the presentation layer renders with. Replaced wholesale at
// the end of each successful cycle.
type Board struct {
	Records   []EnrichedRecord `json:"records"`
	Order     SortOrder        `json:"order"`
	Timeframe Timeframe        `json:"timeframe"`
	Cycle     uint64           `json:"cycle"`
	UpdatedAt time.Time        `json:"updated_at"`
}
