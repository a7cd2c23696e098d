package models

import "time"

// Trade sides as they appear on brokerage notes.
const (
	SideBuy  = "C"
	SideSell = "V"
)

// Instrument kinds derived from the market-segment label.
const (
	KindEquity = "ACAO"
	KindOption = "OPCAO"
)

// Option rights.
const (
	RightCall = "CALL"
	RightPut  = "PUT"
)

// Settlement outcomes written back onto option trades.
const (
	OutcomeExercised           = "EXERCISED"
	OutcomeExpiredWorthless    = "EXPIRED_WORTHLESS"
	OutcomeTrendingToExercise  = "TRENDING_TO_EXERCISE"
	OutcomeTrendingToWorthless = "TRENDING_TO_WORTHLESS"
)

// Trade represents a single brokerage note ("nota") line.
// The derived fields are nil until the normalizer and the settlement
// classifier have run; they stay nil when the source data does not
// allow a derivation (unparseable strike, unknown series letter).
type Trade struct {
	ID               int64     `json:"id,omitempty"`
	Account          int64     `json:"account"`
	Client           string    `json:"client"`
	RegistrationDate time.Time `json:"registration_date"`
	Side             string    `json:"side"`           // "C" buy, "V" sell
	MarketSegment    string    `json:"market_segment"` // e.g. "OPCAO DE COMPRA", "A VISTA"
	Underlying       string    `json:"underlying"`
	Quantity         float64   `json:"quantity"`
	Value            float64   `json:"value"`
	Specification    string    `json:"specification"` // free text, carries strike and series letter

	// Derived by the normalizer.
	InstrumentKind string     `json:"instrument_kind,omitempty"` // ACAO | OPCAO
	OptionRight    *string    `json:"option_right,omitempty"`    // CALL | PUT
	Strike         *float64   `json:"strike,omitempty"`
	SeriesLetter   *string    `json:"series_letter,omitempty"`
	Expiration     *time.Time `json:"expiration,omitempty"`

	// Derived by the settlement classifier.
	Outcome *string `json:"outcome,omitempty"`
}

// PriceBar is one end-of-day quote for one asset. At most one bar may
// exist per (asset, trade date).
type PriceBar struct {
	Asset     string    `json:"asset"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Mean      float64   `json:"mean"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// ExpirationEntry maps an option series letter code to one expiration
// date. The same letter repeats across years; lookups always resolve to
// the smallest expiration strictly after the trade's registration date.
type ExpirationEntry struct {
	LetterCode     string    `json:"letter_code"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// DividendEvent is one corporate payout on an underlying.
type DividendEvent struct {
	Asset       string     `json:"asset"`
	EventType   string     `json:"event_type"` // free text: dividend, JCP, ...
	ExDate      time.Time  `json:"ex_date"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Amount      float64    `json:"amount"` // per share
}

// Asset is a ticker cross-reference plus the last quote pulled from the
// external price source.
type Asset struct {
	OriginalCode string     `json:"original_code"`
	LookupCode   string     `json:"lookup_code"` // quote-source ticker, defaults to original + ".SA"
	CurrentPrice *float64   `json:"current_price,omitempty"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
}

// ConsolidatedPosition is one rebuilt row per (account, client,
// underlying). The table is replaced wholesale on every rebuild.
type ConsolidatedPosition struct {
	Account    int64     `json:"account"`
	Client     string    `json:"client"`
	Underlying string    `json:"underlying"`
	FirstTrade time.Time `json:"first_trade"`

	PurchasedQty float64 `json:"purchased_qty"`
	PurchaseCost float64 `json:"purchase_cost"`
	AvgBuyPrice  float64 `json:"avg_buy_price"`
	SoldQty      float64 `json:"sold_qty"`
	SaleProceeds float64 `json:"sale_proceeds"`
	AvgSellPrice float64 `json:"avg_sell_price"`
	NetQty       float64 `json:"net_qty"`

	PremiumReceived float64 `json:"premium_received"`
	PremiumPaid     float64 `json:"premium_paid"`
	NetPremium      float64 `json:"net_premium"`
	DividendCredit  float64 `json:"dividend_credit"`

	ClosingPrice  float64 `json:"closing_price"`     // latest known price, 0 when unavailable
	FirstClose    float64 `json:"first_close"`       // close on the asset's first trade date
	MarketValue   float64 `json:"market_value"`      // net qty x closing price
	InvestedValue float64 `json:"invested_value"`    // net qty x avg buy price
	ResultNoOpts  float64 `json:"result_no_options"` // market value - invested
	ResultOpts    float64 `json:"result_options"`    // + net premium

	ReturnNoPremium           float64 `json:"return_no_premium"`
	ReturnWithPremium         float64 `json:"return_with_premium"`
	ReturnWithDividends       float64 `json:"return_with_dividends"`
	ReturnDividendsAndPremium float64 `json:"return_dividends_and_premium"`

	SaleResultNoPremium   float64 `json:"sale_result_no_premium"`   // (avg sell - avg buy) x sold qty
	SaleResultWithPremium float64 `json:"sale_result_with_premium"` // + premium received
	PriceVariation        float64 `json:"price_variation"`          // (closing - first close) / first close
}

// FreePosition is one row of the free-assets report: custody the client
// holds beyond what structured operations have locked up.
type FreePosition struct {
	Account      int64    `json:"account"`
	Client       string   `json:"client"`
	Ticker       string   `json:"ticker"`
	Advisor      string   `json:"advisor"`
	Desk         string   `json:"desk"`
	TotalQty     float64  `json:"total_qty"`
	FreeQty      float64  `json:"free_qty"`
	AvgPrice     *float64 `json:"avg_price,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	ReturnPct    *float64 `json:"return_pct,omitempty"`
	FreeVolume   *float64 `json:"free_volume,omitempty"`
}

// PremiumSummaryRow aggregates option premium per client and month,
// signed by side (sells positive, buys negative).
type PremiumSummaryRow struct {
	Client  string  `json:"client"`
	Month   int     `json:"month"`
	Premium float64 `json:"premium"`
}
