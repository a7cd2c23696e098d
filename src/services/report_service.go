package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/utils"
)

// reportServiceImpl implements the ReportService interface.
type reportServiceImpl struct {
	db *sql.DB
}

// NewReportService creates a new instance of ReportService.
func NewReportService(db *sql.DB) ReportService {
	return &reportServiceImpl{db: db}
}

// GetPositions returns consolidated positions matching the filter,
// ordered by account, client, underlying.
func (s *reportServiceImpl) GetPositions(filter PositionFilter) ([]models.ConsolidatedPosition, error) {
	query := `
		SELECT account, client, underlying, first_trade,
			purchased_qty, purchase_cost, avg_buy_price,
			sold_qty, sale_proceeds, avg_sell_price, net_qty,
			premium_received, premium_paid, net_premium, dividend_credit,
			closing_price, first_close, market_value, invested_value,
			result_no_options, result_options,
			return_no_premium, return_with_premium,
			return_with_dividends, return_dividends_and_premium,
			sale_result_no_premium, sale_result_with_premium, price_variation
		FROM consolidated_positions`

	var clauses []string
	var args []any
	if filter.ClientContains != "" {
		clauses = append(clauses, "client LIKE ?")
		args = append(args, "%"+filter.ClientContains+"%")
	}
	if filter.Underlying != "" {
		clauses = append(clauses, "underlying = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Underlying)))
	}
	if !filter.FirstTradeFrom.IsZero() {
		clauses = append(clauses, "first_trade >= ?")
		args = append(args, utils.FormatDate(filter.FirstTradeFrom))
	}
	if !filter.FirstTradeTo.IsZero() {
		clauses = append(clauses, "first_trade <= ?")
		args = append(args, utils.FormatDate(filter.FirstTradeTo))
	}
	if filter.OnlyOpen {
		clauses = append(clauses, "net_qty != 0")
	}
	if filter.OnlyClosed {
		clauses = append(clauses, "net_qty = 0")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY account, client, underlying"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	var positions []models.ConsolidatedPosition
	for rows.Next() {
		var p models.ConsolidatedPosition
		var firstTrade string
		err := rows.Scan(
			&p.Account, &p.Client, &p.Underlying, &firstTrade,
			&p.PurchasedQty, &p.PurchaseCost, &p.AvgBuyPrice,
			&p.SoldQty, &p.SaleProceeds, &p.AvgSellPrice, &p.NetQty,
			&p.PremiumReceived, &p.PremiumPaid, &p.NetPremium, &p.DividendCredit,
			&p.ClosingPrice, &p.FirstClose, &p.MarketValue, &p.InvestedValue,
			&p.ResultNoOpts, &p.ResultOpts,
			&p.ReturnNoPremium, &p.ReturnWithPremium,
			&p.ReturnWithDividends, &p.ReturnDividendsAndPremium,
			&p.SaleResultNoPremium, &p.SaleResultWithPremium, &p.PriceVariation,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning position row: %w", err)
		}
		p.FirstTrade = utils.ParseDate(firstTrade)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// GetPremiumSummary totals option trade values per client and month for
// one year, sells positive and buys negative.
func (s *reportServiceImpl) GetPremiumSummary(year int) ([]models.PremiumSummaryRow, error) {
	rows, err := s.db.Query(`
		SELECT client,
			CAST(strftime('%m', registration_date) AS INTEGER) AS month,
			SUM(CASE WHEN side = ? THEN value ELSE -value END) AS premium
		FROM trades
		WHERE instrument_kind = ?
			AND strftime('%Y', registration_date) = ?
		GROUP BY client, month
		ORDER BY client, month`,
		models.SideSell, models.KindOption, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("querying premium summary: %w", err)
	}
	defer rows.Close()

	var summary []models.PremiumSummaryRow
	for rows.Next() {
		var row models.PremiumSummaryRow
		if err := rows.Scan(&row.Client, &row.Month, &row.Premium); err != nil {
			return nil, fmt.Errorf("scanning premium summary row: %w", err)
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

func (s *reportServiceImpl) GetTrades() ([]models.Trade, error) {
	return loadTrades(s.db)
}

func (s *reportServiceImpl) GetFreePositions() ([]models.FreePosition, error) {
	rows, err := s.db.Query(`
		SELECT account, client, ticker, advisor, desk, total_qty, free_qty,
			avg_price, current_price, return_pct, free_volume
		FROM free_positions ORDER BY client, ticker`)
	if err != nil {
		return nil, fmt.Errorf("querying free positions: %w", err)
	}
	defer rows.Close()

	var positions []models.FreePosition
	for rows.Next() {
		var fp models.FreePosition
		var advisor, desk sql.NullString
		var avgPrice, currentPrice, returnPct, freeVolume sql.NullFloat64
		err := rows.Scan(&fp.Account, &fp.Client, &fp.Ticker, &advisor, &desk,
			&fp.TotalQty, &fp.FreeQty, &avgPrice, &currentPrice, &returnPct, &freeVolume)
		if err != nil {
			return nil, fmt.Errorf("scanning free position row: %w", err)
		}
		fp.Advisor = advisor.String
		fp.Desk = desk.String
		fp.AvgPrice = floatPtr(avgPrice)
		fp.CurrentPrice = floatPtr(currentPrice)
		fp.ReturnPct = floatPtr(returnPct)
		fp.FreeVolume = floatPtr(freeVolume)
		positions = append(positions, fp)
	}
	return positions, rows.Err()
}

func (s *reportServiceImpl) GetStructuredOperations() ([]models.StructuredOperation, error) {
	return loadStructuredOperations(s.db)
}
