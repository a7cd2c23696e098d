package processors

import (
	"time"

	"github.com/username/estruturadas/backend/src/models"
)

// TradeNormalizer derives instrument kind, option right, strike, series
// letter and expiration for raw trade rows.
type TradeNormalizer interface {
	Normalize(trades []models.Trade, calendar []models.ExpirationEntry)
}

// SettlementClassifier decides option outcomes against price history and
// dividend-adjusted strikes.
type SettlementClassifier interface {
	Classify(trades []models.Trade, history *PriceHistory, dividends []models.DividendEvent, today time.Time) int
}

// PositionConsolidator rebuilds the consolidated position set from the
// full trade ledger, price history and dividend ledger.
type PositionConsolidator interface {
	Consolidate(in ConsolidationInput) []models.ConsolidatedPosition
}

// StructuredCalculator computes the settlement result of a single
// structured-operation row.
type StructuredCalculator interface {
	Calculate(op models.StructuredOperation, refPrice float64, expired bool) (StructuredUpdate, bool)
}
