package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/utils"
)

// querier is satisfied by both *sql.DB and *sql.Tx so loaders work
// inside and outside a transaction.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return utils.FormatDate(*t)
}

func datePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := utils.ParseDate(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func loadExpirations(q querier) ([]models.ExpirationEntry, error) {
	rows, err := q.Query(`SELECT letter_code, expiration_date FROM option_expirations`)
	if err != nil {
		return nil, fmt.Errorf("loading expiration calendar: %w", err)
	}
	defer rows.Close()

	var calendar []models.ExpirationEntry
	for rows.Next() {
		var entry models.ExpirationEntry
		var date string
		if err := rows.Scan(&entry.LetterCode, &date); err != nil {
			return nil, fmt.Errorf("scanning expiration row: %w", err)
		}
		entry.ExpirationDate = utils.ParseDate(date)
		calendar = append(calendar, entry)
	}
	return calendar, rows.Err()
}

func loadTrades(q querier) ([]models.Trade, error) {
	rows, err := q.Query(`
		SELECT id, account, client, registration_date, side, market_segment, underlying,
			quantity, value, specification, instrument_kind, option_right, strike,
			series_letter, expiration, outcome
		FROM trades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanTrade(rows *sql.Rows) (models.Trade, error) {
	var t models.Trade
	var registration string
	var specification, kind, right, letter, expiration, outcome sql.NullString
	var strike sql.NullFloat64

	err := rows.Scan(&t.ID, &t.Account, &t.Client, &registration, &t.Side, &t.MarketSegment,
		&t.Underlying, &t.Quantity, &t.Value, &specification, &kind, &right, &strike,
		&letter, &expiration, &outcome)
	if err != nil {
		return models.Trade{}, fmt.Errorf("scanning trade row: %w", err)
	}

	t.RegistrationDate = utils.ParseDate(registration)
	t.Specification = specification.String
	t.InstrumentKind = kind.String
	t.OptionRight = stringPtr(right)
	t.Strike = floatPtr(strike)
	t.SeriesLetter = stringPtr(letter)
	t.Expiration = datePtr(expiration)
	t.Outcome = stringPtr(outcome)
	return t, nil
}

func loadPriceBars(q querier) ([]models.PriceBar, error) {
	rows, err := q.Query(`SELECT asset, trade_date, open, high, low, mean, close, volume FROM price_bars`)
	if err != nil {
		return nil, fmt.Errorf("loading price bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		var date string
		if err := rows.Scan(&b.Asset, &date, &b.Open, &b.High, &b.Low, &b.Mean, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scanning price bar row: %w", err)
		}
		b.TradeDate = utils.ParseDate(date)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func loadDividends(q querier) ([]models.DividendEvent, error) {
	rows, err := q.Query(`SELECT asset, event_type, ex_date, payment_date, amount FROM dividends`)
	if err != nil {
		return nil, fmt.Errorf("loading dividends: %w", err)
	}
	defer rows.Close()

	var dividends []models.DividendEvent
	for rows.Next() {
		var d models.DividendEvent
		var eventType, paymentDate sql.NullString
		var exDate string
		if err := rows.Scan(&d.Asset, &eventType, &exDate, &paymentDate, &d.Amount); err != nil {
			return nil, fmt.Errorf("scanning dividend row: %w", err)
		}
		d.EventType = eventType.String
		d.ExDate = utils.ParseDate(exDate)
		d.PaymentDate = datePtr(paymentDate)
		dividends = append(dividends, d)
	}
	return dividends, rows.Err()
}

func loadAssets(q querier) ([]models.Asset, error) {
	rows, err := q.Query(`SELECT original_code, lookup_code, current_price, last_update FROM assets ORDER BY original_code`)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var a models.Asset
		var price sql.NullFloat64
		var lastUpdate sql.NullString
		if err := rows.Scan(&a.OriginalCode, &a.LookupCode, &price, &lastUpdate); err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		a.CurrentPrice = floatPtr(price)
		if lastUpdate.Valid && lastUpdate.String != "" {
			if t, err := time.Parse(time.RFC3339, lastUpdate.String); err == nil {
				a.LastUpdate = &t
			}
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// latestPricesByCode maps upper-cased original codes to the last quote
// pulled for them. Assets without a quote are absent.
func latestPricesByCode(q querier) (map[string]float64, error) {
	assets, err := loadAssets(q)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]float64, len(assets))
	for _, a := range assets {
		if a.CurrentPrice != nil {
			prices[a.OriginalCode] = *a.CurrentPrice
		}
	}
	return prices, nil
}

func loadStructuredOperations(q querier) ([]models.StructuredOperation, error) {
	rows, err := q.Query(`
		SELECT id, account, client, ticker, advisor, desk, structure_tag,
			trade_date, expiration, asset_value, unit_cost, dividends, invested,
			leg1_quantity, leg1_option_type, leg1_strike, leg1_barrier, leg1_rebate,
			leg2_quantity, leg2_option_type, leg2_strike, leg2_barrier, leg2_rebate,
			leg3_quantity, leg3_option_type, leg3_strike, leg3_barrier, leg3_rebate,
			leg4_quantity, leg4_option_type, leg4_strike, leg4_barrier, leg4_rebate,
			reference_price, adjustment, result, status, volume, coupon_premium, return_pct
		FROM structured_operations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading structured operations: %w", err)
	}
	defer rows.Close()

	var ops []models.StructuredOperation
	for rows.Next() {
		var op models.StructuredOperation
		var advisor, desk sql.NullString
		var tradeDate, expiration string
		var legQty, legStrike, legBarrier, legRebate [4]sql.NullFloat64
		var legType [4]sql.NullString
		var refPrice, adjustment, result, volume, coupon, returnPct sql.NullFloat64
		var status sql.NullString

		dest := []any{
			&op.ID, &op.Account, &op.Client, &op.Ticker, &advisor, &desk, &op.StructureTag,
			&tradeDate, &expiration, &op.AssetValue, &op.UnitCost, &op.Dividends, &op.Invested,
		}
		for i := 0; i < 4; i++ {
			dest = append(dest, &legQty[i], &legType[i], &legStrike[i], &legBarrier[i], &legRebate[i])
		}
		dest = append(dest, &refPrice, &adjustment, &result, &status, &volume, &coupon, &returnPct)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning structured row: %w", err)
		}

		op.Advisor = advisor.String
		op.Desk = desk.String
		op.TradeDate = utils.ParseDate(tradeDate)
		op.Expiration = utils.ParseDate(expiration)
		for i := 0; i < 4; i++ {
			op.Legs[i] = models.OperationLeg{
				Quantity:   legQty[i].Float64,
				OptionType: legType[i].String,
				Strike:     legStrike[i].Float64,
				Barrier:    legBarrier[i].Float64,
				Rebate:     legRebate[i].Float64,
			}
		}
		op.ReferencePrice = floatPtr(refPrice)
		op.Adjustment = floatPtr(adjustment)
		op.Result = floatPtr(result)
		op.Status = stringPtr(status)
		op.Volume = floatPtr(volume)
		op.CouponPremium = floatPtr(coupon)
		op.ReturnPct = floatPtr(returnPct)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
