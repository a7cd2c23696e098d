package services

import (
	"errors"
	"time"

	"github.com/username/estruturadas/backend/src/models"
)

// Sentinel errors for service operations.
var (
	ErrInvalidBatch     = errors.New("invalid import batch")
	ErrBatchTooLarge    = errors.New("import batch exceeds the configured row limit")
	ErrQuoteUnavailable = errors.New("quote source returned no price")
)

// ImportResult reports what a bulk import actually wrote.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// QuoteRefreshResult reports a best-effort price refresh: how many
// assets got a fresh price and which tickers could not be quoted.
type QuoteRefreshResult struct {
	Updated       int      `json:"updated"`
	FailedTickers []string `json:"failed_tickers"`
}

// PositionFilter narrows consolidated-position queries. Zero values
// mean "no filter" for every field except OnlyOpen/OnlyClosed.
type PositionFilter struct {
	ClientContains string
	Underlying     string
	FirstTradeFrom time.Time
	FirstTradeTo   time.Time
	OnlyOpen       bool
	OnlyClosed     bool
}

// ImportService ingests already-parsed row batches. Each call is one
// transaction: a failed batch writes nothing.
type ImportService interface {
	ImportTrades(batch []models.Trade) (ImportResult, error)
	ImportPriceBars(batch []models.PriceBar) (ImportResult, error)
	ImportExpirations(batch []models.ExpirationEntry) (ImportResult, error)
	ImportDividends(batch []models.DividendEvent) (ImportResult, error)
	ImportAssets(batch []models.Asset) (ImportResult, error)
	ImportStructuredOperations(batch []models.StructuredOperation) (ImportResult, error)
	ImportFreePositions(batch []models.FreePosition) (ImportResult, error)
}

// PriceService talks to the external quote source.
type PriceService interface {
	GetLastPrice(ticker string) (float64, error)
	RefreshQuotes() (QuoteRefreshResult, error)
}

// SettlementService runs the option-outcome classification pass.
type SettlementService interface {
	ClassifySettlements(now time.Time) (int, error)
}

// ConsolidationService rebuilds the consolidated-position table.
type ConsolidationService interface {
	RebuildPositions() (int, error)
}

// StructuredService settles structured-operation rows.
type StructuredService interface {
	CalculateStructuredResults(now time.Time) (int, error)
}

// ReportService serves the read side.
type ReportService interface {
	GetPositions(filter PositionFilter) ([]models.ConsolidatedPosition, error)
	GetPremiumSummary(year int) ([]models.PremiumSummaryRow, error)
	GetTrades() ([]models.Trade, error)
	GetFreePositions() ([]models.FreePosition, error)
	GetStructuredOperations() ([]models.StructuredOperation, error)
}
