package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/estruturadas/backend/src/config"
	"github.com/username/estruturadas/backend/src/database"
	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/processors"
	"github.com/username/estruturadas/backend/src/utils"
)

// importServiceImpl implements the ImportService interface.
type importServiceImpl struct {
	db         *sql.DB
	normalizer processors.TradeNormalizer
}

// NewImportService creates a new instance of ImportService.
func NewImportService(db *sql.DB, normalizer processors.TradeNormalizer) ImportService {
	return &importServiceImpl{db: db, normalizer: normalizer}
}

func (s *importServiceImpl) checkBatchSize(size int) error {
	if size == 0 {
		return fmt.Errorf("%w: batch is empty", ErrInvalidBatch)
	}
	if config.Cfg != nil && size > config.Cfg.MaxImportBatchRows {
		return fmt.Errorf("%w: %d rows, limit %d", ErrBatchTooLarge, size, config.Cfg.MaxImportBatchRows)
	}
	return nil
}

// ImportTrades appends the batch and derives the option attributes in
// the same transaction. Validation failures reject the whole batch
// before anything is written.
func (s *importServiceImpl) ImportTrades(batch []models.Trade) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}
	for i, t := range batch {
		if strings.TrimSpace(t.Client) == "" || strings.TrimSpace(t.Underlying) == "" {
			return ImportResult{}, fmt.Errorf("%w: row %d is missing client or underlying", ErrInvalidBatch, i)
		}
		if t.Side != models.SideBuy && t.Side != models.SideSell {
			return ImportResult{}, fmt.Errorf("%w: row %d has side %q, want %q or %q", ErrInvalidBatch, i, t.Side, models.SideBuy, models.SideSell)
		}
		if t.RegistrationDate.IsZero() {
			return ImportResult{}, fmt.Errorf("%w: row %d has no registration date", ErrInvalidBatch, i)
		}
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		calendar, err := loadExpirations(tx)
		if err != nil {
			return err
		}
		s.normalizer.Normalize(batch, calendar)

		stmt, err := tx.Prepare(`
			INSERT INTO trades (account, client, registration_date, side, market_segment,
				underlying, quantity, value, specification,
				instrument_kind, option_right, strike, series_letter, expiration, outcome)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing trade insert: %w", err)
		}
		defer stmt.Close()

		for i := range batch {
			t := &batch[i]
			res, err := stmt.Exec(
				t.Account, t.Client, utils.FormatDate(t.RegistrationDate), t.Side, t.MarketSegment,
				t.Underlying, t.Quantity, t.Value, t.Specification,
				t.InstrumentKind, t.OptionRight, t.Strike, t.SeriesLetter, nullDate(t.Expiration), t.Outcome,
			)
			if err != nil {
				return fmt.Errorf("inserting trade row %d: %w", i, err)
			}
			if id, err := res.LastInsertId(); err == nil {
				t.ID = id
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	logger.L.Info("Trade batch imported", "rows", len(batch))
	return ImportResult{Inserted: len(batch)}, nil
}

// ImportPriceBars inserts only bars whose (asset, trade date) is not
// already present. Duplicates are skipped, never doubled.
func (s *importServiceImpl) ImportPriceBars(batch []models.PriceBar) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}
	for i, b := range batch {
		if strings.TrimSpace(b.Asset) == "" || b.TradeDate.IsZero() {
			return ImportResult{}, fmt.Errorf("%w: price bar row %d is missing asset or trade date", ErrInvalidBatch, i)
		}
	}

	inserted := 0
	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO price_bars (asset, trade_date, open, high, low, mean, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing price bar insert: %w", err)
		}
		defer stmt.Close()

		for i, b := range batch {
			res, err := stmt.Exec(strings.ToUpper(strings.TrimSpace(b.Asset)), utils.FormatDate(b.TradeDate),
				b.Open, b.High, b.Low, b.Mean, b.Close, b.Volume)
			if err != nil {
				return fmt.Errorf("inserting price bar row %d: %w", i, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	logger.L.Info("Price bar batch imported", "rows", len(batch), "inserted", inserted, "skipped", len(batch)-inserted)
	return ImportResult{Inserted: inserted, Skipped: len(batch) - inserted}, nil
}

// ImportExpirations appends calendar entries and then re-derives the
// option attributes of every stored trade in the same transaction, so
// trades imported before their calendar pick up their expiration here.
func (s *importServiceImpl) ImportExpirations(batch []models.ExpirationEntry) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}
	for i, e := range batch {
		if strings.TrimSpace(e.LetterCode) == "" || e.ExpirationDate.IsZero() {
			return ImportResult{}, fmt.Errorf("%w: expiration row %d is missing letter code or date", ErrInvalidBatch, i)
		}
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO option_expirations (letter_code, expiration_date) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing expiration insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range batch {
			if _, err := stmt.Exec(strings.ToUpper(strings.TrimSpace(e.LetterCode)), utils.FormatDate(e.ExpirationDate)); err != nil {
				return fmt.Errorf("inserting expiration row %d: %w", i, err)
			}
		}
		return s.renormalizeStoredTrades(tx)
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Inserted: len(batch)}, nil
}

// renormalizeStoredTrades reruns the normalizer over the whole trade
// ledger against the current calendar. Normalization is idempotent, so
// already-derived rows keep their values; settlement outcomes are not
// touched.
func (s *importServiceImpl) renormalizeStoredTrades(tx *sql.Tx) error {
	trades, err := loadTrades(tx)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}
	calendar, err := loadExpirations(tx)
	if err != nil {
		return err
	}
	s.normalizer.Normalize(trades, calendar)

	stmt, err := tx.Prepare(`
		UPDATE trades
		SET instrument_kind = ?, option_right = ?, strike = ?, series_letter = ?, expiration = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing trade renormalization update: %w", err)
	}
	defer stmt.Close()

	for i := range trades {
		t := &trades[i]
		if _, err := stmt.Exec(t.InstrumentKind, t.OptionRight, t.Strike, t.SeriesLetter, nullDate(t.Expiration), t.ID); err != nil {
			return fmt.Errorf("renormalizing trade %d: %w", t.ID, err)
		}
	}
	logger.L.Info("Stored trades renormalized", "trades", len(trades))
	return nil
}

func (s *importServiceImpl) ImportDividends(batch []models.DividendEvent) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}
	for i, d := range batch {
		if strings.TrimSpace(d.Asset) == "" || d.ExDate.IsZero() {
			return ImportResult{}, fmt.Errorf("%w: dividend row %d is missing asset or ex-date", ErrInvalidBatch, i)
		}
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO dividends (asset, event_type, ex_date, payment_date, amount)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing dividend insert: %w", err)
		}
		defer stmt.Close()

		for i, d := range batch {
			if _, err := stmt.Exec(strings.ToUpper(strings.TrimSpace(d.Asset)), d.EventType,
				utils.FormatDate(d.ExDate), nullDate(d.PaymentDate), d.Amount); err != nil {
				return fmt.Errorf("inserting dividend row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Inserted: len(batch)}, nil
}

// ImportAssets upserts by original code: repeated imports update the
// lookup code instead of inserting a second row. A blank lookup code
// defaults to the original code plus the configured quote suffix.
func (s *importServiceImpl) ImportAssets(batch []models.Asset) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}

	suffix := ".SA"
	if config.Cfg != nil {
		suffix = config.Cfg.QuoteTickerSuffix
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO assets (original_code, lookup_code)
			VALUES (?, ?)
			ON CONFLICT(original_code) DO UPDATE SET lookup_code = excluded.lookup_code`)
		if err != nil {
			return fmt.Errorf("preparing asset upsert: %w", err)
		}
		defer stmt.Close()

		for i, a := range batch {
			original := strings.ToUpper(strings.TrimSpace(a.OriginalCode))
			if original == "" {
				return fmt.Errorf("%w: asset row %d has no original code", ErrInvalidBatch, i)
			}
			lookup := strings.ToUpper(strings.TrimSpace(a.LookupCode))
			if lookup == "" {
				lookup = original + suffix
			}
			if _, err := stmt.Exec(original, lookup); err != nil {
				return fmt.Errorf("upserting asset row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Inserted: len(batch)}, nil
}

func (s *importServiceImpl) ImportStructuredOperations(batch []models.StructuredOperation) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}
	for i, op := range batch {
		if strings.TrimSpace(op.Client) == "" || strings.TrimSpace(op.Ticker) == "" {
			return ImportResult{}, fmt.Errorf("%w: structured row %d is missing client or ticker", ErrInvalidBatch, i)
		}
		if op.TradeDate.IsZero() || op.Expiration.IsZero() {
			return ImportResult{}, fmt.Errorf("%w: structured row %d is missing trade date or expiration", ErrInvalidBatch, i)
		}
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO structured_operations (
				account, client, ticker, advisor, desk, structure_tag,
				trade_date, expiration, asset_value, unit_cost, dividends, invested,
				leg1_quantity, leg1_option_type, leg1_strike, leg1_barrier, leg1_rebate,
				leg2_quantity, leg2_option_type, leg2_strike, leg2_barrier, leg2_rebate,
				leg3_quantity, leg3_option_type, leg3_strike, leg3_barrier, leg3_rebate,
				leg4_quantity, leg4_option_type, leg4_strike, leg4_barrier, leg4_rebate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
				?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing structured insert: %w", err)
		}
		defer stmt.Close()

		for i, op := range batch {
			args := []any{
				op.Account, op.Client, strings.ToUpper(strings.TrimSpace(op.Ticker)), op.Advisor, op.Desk, op.StructureTag,
				utils.FormatDate(op.TradeDate), utils.FormatDate(op.Expiration),
				op.AssetValue, op.UnitCost, op.Dividends, op.Invested,
			}
			for _, leg := range op.Legs {
				args = append(args, leg.Quantity, leg.OptionType, leg.Strike, leg.Barrier, leg.Rebate)
			}
			if _, err := stmt.Exec(args...); err != nil {
				return fmt.Errorf("inserting structured row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	logger.L.Info("Structured operation batch imported", "rows", len(batch))
	return ImportResult{Inserted: len(batch)}, nil
}

// ImportFreePositions replaces the whole free-position report, then
// refreshes current prices from the asset table and recomputes return
// percent and free volume. Return percent stays null when the average
// price is missing or zero.
func (s *importServiceImpl) ImportFreePositions(batch []models.FreePosition) (ImportResult, error) {
	if err := s.checkBatchSize(len(batch)); err != nil {
		return ImportResult{}, err
	}
	for i, fp := range batch {
		if strings.TrimSpace(fp.Client) == "" || strings.TrimSpace(fp.Ticker) == "" {
			return ImportResult{}, fmt.Errorf("%w: free position row %d is missing client or ticker", ErrInvalidBatch, i)
		}
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM free_positions`); err != nil {
			return fmt.Errorf("clearing free positions: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO free_positions (account, client, ticker, advisor, desk, total_qty, free_qty, avg_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing free position insert: %w", err)
		}
		defer stmt.Close()

		for i, fp := range batch {
			if _, err := stmt.Exec(fp.Account, fp.Client, strings.ToUpper(strings.TrimSpace(fp.Ticker)),
				fp.Advisor, fp.Desk, fp.TotalQty, fp.FreeQty, fp.AvgPrice); err != nil {
				return fmt.Errorf("inserting free position row %d: %w", i, err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE free_positions
			SET current_price = (SELECT a.current_price FROM assets a WHERE a.original_code = free_positions.ticker)`); err != nil {
			return fmt.Errorf("refreshing free position prices: %w", err)
		}
		if _, err := tx.Exec(`
			UPDATE free_positions
			SET return_pct = CASE
					WHEN avg_price IS NOT NULL AND avg_price != 0 AND current_price IS NOT NULL
					THEN (current_price - avg_price) / avg_price
					ELSE NULL
				END,
				free_volume = CASE
					WHEN current_price IS NOT NULL THEN free_qty * current_price
					ELSE NULL
				END`); err != nil {
			return fmt.Errorf("recomputing free position metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	logger.L.Info("Free position report replaced", "rows", len(batch))
	return ImportResult{Inserted: len(batch)}, nil
}
