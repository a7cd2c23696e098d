package services

import (
	"database/sql"
	"fmt"

	"github.com/username/estruturadas/backend/src/database"
	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/processors"
	"github.com/username/estruturadas/backend/src/utils"
)

// consolidationServiceImpl implements the ConsolidationService interface.
type consolidationServiceImpl struct {
	db           *sql.DB
	consolidator processors.PositionConsolidator
}

// NewConsolidationService creates a new instance of ConsolidationService.
func NewConsolidationService(db *sql.DB, consolidator processors.PositionConsolidator) ConsolidationService {
	return &consolidationServiceImpl{db: db, consolidator: consolidator}
}

// RebuildPositions recomputes the whole consolidated-position table
// from the trade ledger, price history and dividend ledger. The
// truncate and the inserts share one transaction, so a failed rebuild
// leaves the previous table intact.
func (s *consolidationServiceImpl) RebuildPositions() (int, error) {
	trades, err := loadTrades(s.db)
	if err != nil {
		return 0, err
	}
	dividends, err := loadDividends(s.db)
	if err != nil {
		return 0, err
	}
	bars, err := loadPriceBars(s.db)
	if err != nil {
		return 0, err
	}
	prices, err := latestPricesByCode(s.db)
	if err != nil {
		return 0, err
	}

	positions := s.consolidator.Consolidate(processors.ConsolidationInput{
		Trades:       trades,
		Dividends:    dividends,
		LatestPrices: prices,
		History:      processors.NewPriceHistory(bars),
	})

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM consolidated_positions`); err != nil {
			return fmt.Errorf("clearing consolidated positions: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO consolidated_positions (
				account, client, underlying, first_trade,
				purchased_qty, purchase_cost, avg_buy_price,
				sold_qty, sale_proceeds, avg_sell_price, net_qty,
				premium_received, premium_paid, net_premium, dividend_credit,
				closing_price, first_close, market_value, invested_value,
				result_no_options, result_options,
				return_no_premium, return_with_premium,
				return_with_dividends, return_dividends_and_premium,
				sale_result_no_premium, sale_result_with_premium, price_variation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing position insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range positions {
			_, err := stmt.Exec(
				p.Account, p.Client, p.Underlying, utils.FormatDate(p.FirstTrade),
				p.PurchasedQty, p.PurchaseCost, p.AvgBuyPrice,
				p.SoldQty, p.SaleProceeds, p.AvgSellPrice, p.NetQty,
				p.PremiumReceived, p.PremiumPaid, p.NetPremium, p.DividendCredit,
				p.ClosingPrice, p.FirstClose, p.MarketValue, p.InvestedValue,
				p.ResultNoOpts, p.ResultOpts,
				p.ReturnNoPremium, p.ReturnWithPremium,
				p.ReturnWithDividends, p.ReturnDividendsAndPremium,
				p.SaleResultNoPremium, p.SaleResultWithPremium, p.PriceVariation,
			)
			if err != nil {
				return fmt.Errorf("inserting position %d/%s/%s: %w", p.Account, p.Client, p.Underlying, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.L.Info("Consolidated positions rebuilt", "positions", len(positions), "trades", len(trades))
	return len(positions), nil
}
