package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/estruturadas/backend/src/database"
	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/processors"
)

// settlementServiceImpl implements the SettlementService interface.
type settlementServiceImpl struct {
	db         *sql.DB
	classifier processors.SettlementClassifier
}

// NewSettlementService creates a new instance of SettlementService.
func NewSettlementService(db *sql.DB, classifier processors.SettlementClassifier) SettlementService {
	return &settlementServiceImpl{db: db, classifier: classifier}
}

// ClassifySettlements loads the full trade, price and dividend
// snapshot, classifies every determinable option trade and writes the
// outcomes back in one transaction. Safe to rerun: trades without a
// usable reference price keep whatever outcome they already had.
func (s *settlementServiceImpl) ClassifySettlements(now time.Time) (int, error) {
	trades, err := loadTrades(s.db)
	if err != nil {
		return 0, err
	}
	bars, err := loadPriceBars(s.db)
	if err != nil {
		return 0, err
	}
	dividends, err := loadDividends(s.db)
	if err != nil {
		return 0, err
	}

	history := processors.NewPriceHistory(bars)
	updated := s.classifier.Classify(trades, history, dividends, now)
	if updated == 0 {
		logger.L.Info("Settlement classification found nothing to update")
		return 0, nil
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE trades SET outcome = ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("preparing outcome update: %w", err)
		}
		defer stmt.Close()

		for _, t := range trades {
			if t.InstrumentKind != models.KindOption || t.Outcome == nil {
				continue
			}
			if _, err := stmt.Exec(*t.Outcome, t.ID); err != nil {
				return fmt.Errorf("updating outcome for trade %d: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.L.Info("Settlement classification finished", "updated", updated)
	return updated, nil
}
