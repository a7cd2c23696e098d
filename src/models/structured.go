package models

import (
	"strings"
	"time"
)

// StructureKind is the recognized set of structured-operation types.
// Rows carrying any other tag are left uncalculated on purpose: their
// result fields stay null until a calculation pass learns the type.
type StructureKind int

const (
	StructureUnknown StructureKind = iota
	StructureFinanciamento
	StructureFinanciamentoCustodia
)

// Structured-operation statuses written by the calculator.
const (
	StatusStockCalledAway   = "STOCK_CALLED_AWAY"
	StatusTrendingWorthless = "TRENDING_WORTHLESS"
	StatusExpiredWorthless  = "EXPIRED_WORTHLESS"
	StatusFreeStock         = "FREE_STOCK"
)

// OperationLeg is one option leg of a structured operation. Legs 2-4
// arrive on the position report but current structures only ever use
// the first one.
type OperationLeg struct {
	Quantity   float64 `json:"quantity"`
	OptionType string  `json:"option_type"` // CALL | PUT, free text on the report
	Strike     float64 `json:"strike"`
	Barrier    float64 `json:"barrier"`
	Rebate     float64 `json:"rebate"`
}

// StructuredOperation is one imported position-report line for an
// overlay instrument. Computed fields are nil until a calculation pass
// recognizes the row's structure tag.
type StructuredOperation struct {
	ID           int64     `json:"id,omitempty"`
	Account      int64     `json:"account"`
	Client       string    `json:"client"`
	Ticker       string    `json:"ticker"`
	Advisor      string    `json:"advisor"`
	Desk         string    `json:"desk"`
	StructureTag string    `json:"structure_tag"`
	TradeDate    time.Time `json:"trade_date"`
	Expiration   time.Time `json:"expiration"`
	AssetValue   float64   `json:"asset_value"` // stock price at the operation start
	UnitCost     float64   `json:"unit_cost"`   // per-share coupon cost to the client
	Dividends    float64   `json:"dividends"`   // per-share payouts over the operation
	Invested     float64   `json:"invested"`

	Legs [4]OperationLeg `json:"legs"`

	// Computed by the calculator; written back selectively.
	ReferencePrice *float64 `json:"reference_price,omitempty"`
	Adjustment     *float64 `json:"adjustment,omitempty"`
	Result         *float64 `json:"result,omitempty"`
	Status         *string  `json:"status,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`
	CouponPremium  *float64 `json:"coupon_premium,omitempty"`
	ReturnPct      *float64 `json:"return_pct,omitempty"`
}

// ParseStructureKind maps the free-text structure tag of a report row
// to a StructureKind. Matching is insensitive to case, surrounding
// whitespace and the accents typed into the source spreadsheets.
func ParseStructureKind(tag string) StructureKind {
	normalized := normalizeTag(tag)
	switch normalized {
	case "FINANCIAMENTO":
		return StructureFinanciamento
	case "FINANCIAMENTO COM CUSTODIA", "FINANCIAMENTO CUSTODIA":
		return StructureFinanciamentoCustodia
	default:
		return StructureUnknown
	}
}

var tagAccentReplacer = strings.NewReplacer(
	"Á", "A", "À", "A", "Â", "A", "Ã", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U",
	"Ç", "C",
)

func normalizeTag(tag string) string {
	upper := strings.ToUpper(strings.TrimSpace(tag))
	upper = tagAccentReplacer.Replace(upper)
	return strings.Join(strings.Fields(upper), " ")
}
