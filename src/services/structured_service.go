package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/estruturadas/backend/src/database"
	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/processors"
	"github.com/username/estruturadas/backend/src/utils"
)

// structuredServiceImpl implements the StructuredService interface.
type structuredServiceImpl struct {
	db         *sql.DB
	calculator processors.StructuredCalculator
}

// NewStructuredService creates a new instance of StructuredService.
func NewStructuredService(db *sql.DB, calculator processors.StructuredCalculator) StructuredService {
	return &structuredServiceImpl{db: db, calculator: calculator}
}

// CalculateStructuredResults settles every computable row. Reference
// price selection follows the expiration: rows expiring today or
// earlier use the close on the exact expiration date, strictly future
// rows the asset's current price. Rows without a reference price or
// with an unrecognized structure tag are skipped and keep their stored
// fields, null included.
func (s *structuredServiceImpl) CalculateStructuredResults(now time.Time) (int, error) {
	ops, err := loadStructuredOperations(s.db)
	if err != nil {
		return 0, err
	}
	if len(ops) == 0 {
		return 0, nil
	}

	bars, err := loadPriceBars(s.db)
	if err != nil {
		return 0, err
	}
	prices, err := latestPricesByCode(s.db)
	if err != nil {
		return 0, err
	}
	history := processors.NewPriceHistory(bars)

	today := utils.TruncateToDay(now)

	type rowUpdate struct {
		id     int64
		update processors.StructuredUpdate
	}
	var updates []rowUpdate

	for _, op := range ops {
		expiration := utils.TruncateToDay(op.Expiration)
		expired := !expiration.After(today)

		var refPrice float64
		var ok bool
		if expired {
			refPrice, ok = history.CloseOn(op.Ticker, expiration)
			if !ok {
				// Expiration-day bar may not be published yet; the
				// current quote stands in until it is.
				refPrice, ok = prices[strings.ToUpper(strings.TrimSpace(op.Ticker))]
			}
		} else {
			refPrice, ok = prices[strings.ToUpper(strings.TrimSpace(op.Ticker))]
		}
		if !ok {
			continue
		}

		update, computed := s.calculator.Calculate(op, refPrice, expired)
		if !computed {
			continue
		}
		updates = append(updates, rowUpdate{id: op.ID, update: update})
	}

	if len(updates) == 0 {
		logger.L.Info("Structured calculation found nothing to update", "rows", len(ops))
		return 0, nil
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			UPDATE structured_operations
			SET reference_price = ?, adjustment = ?, result = ?, status = ?,
				volume = ?, coupon_premium = ?, return_pct = ?
			WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("preparing structured update: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			_, err := stmt.Exec(
				u.update.ReferencePrice, u.update.Adjustment, u.update.Result, u.update.Status,
				u.update.Volume, u.update.CouponPremium, u.update.ReturnPct, u.id,
			)
			if err != nil {
				return fmt.Errorf("updating structured row %d: %w", u.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.L.Info("Structured calculation finished", "updated", len(updates), "rows", len(ops))
	return len(updates), nil
}
