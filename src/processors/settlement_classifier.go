package processors

import (
	"strings"
	"time"

	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/utils"
)

// PriceHistory indexes daily bars for settlement lookups: exact close
// on a given date, and the most recent known close per asset.
type PriceHistory struct {
	closeByAssetDate map[string]float64
	latestClose      map[string]float64
	latestDate       map[string]time.Time
}

// NewPriceHistory builds the lookup index from raw bars.
func NewPriceHistory(bars []models.PriceBar) *PriceHistory {
	h := &PriceHistory{
		closeByAssetDate: make(map[string]float64),
		latestClose:      make(map[string]float64),
		latestDate:       make(map[string]time.Time),
	}
	for _, bar := range bars {
		asset := normalizeAssetCode(bar.Asset)
		day := utils.TruncateToDay(bar.TradeDate)
		h.closeByAssetDate[asset+"|"+utils.FormatDate(day)] = bar.Close
		if last, ok := h.latestDate[asset]; !ok || day.After(last) {
			h.latestDate[asset] = day
			h.latestClose[asset] = bar.Close
		}
	}
	return h
}

// CloseOn returns the closing price of asset on exactly date.
func (h *PriceHistory) CloseOn(asset string, date time.Time) (float64, bool) {
	key := normalizeAssetCode(asset) + "|" + utils.FormatDate(utils.TruncateToDay(date))
	close, ok := h.closeByAssetDate[key]
	return close, ok
}

// LatestClose returns the most recent known closing price of asset.
func (h *PriceHistory) LatestClose(asset string) (float64, bool) {
	close, ok := h.latestClose[normalizeAssetCode(asset)]
	return close, ok
}

func normalizeAssetCode(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// settlementClassifierImpl implements the SettlementClassifier interface.
type settlementClassifierImpl struct{}

// NewSettlementClassifier creates a new instance of SettlementClassifier.
func NewSettlementClassifier() SettlementClassifier {
	return &settlementClassifierImpl{}
}

// Classify writes a settlement outcome onto every option trade that has
// a strike, a right, an expiration and a usable reference price. Trades
// missing any of those keep their previous outcome, so the pass is safe
// to rerun at any time. Returns the number of trades updated.
func (c *settlementClassifierImpl) Classify(trades []models.Trade, history *PriceHistory, dividends []models.DividendEvent, today time.Time) int {
	today = utils.TruncateToDay(today)
	updated := 0

	for i := range trades {
		t := &trades[i]
		if t.InstrumentKind != models.KindOption {
			continue
		}
		if t.Strike == nil || t.OptionRight == nil || t.Expiration == nil {
			continue
		}

		expiration := utils.TruncateToDay(*t.Expiration)
		expired := expiration.Before(today)

		var refPrice float64
		var ok bool
		if expired {
			refPrice, ok = history.CloseOn(t.Underlying, expiration)
		} else {
			refPrice, ok = history.LatestClose(t.Underlying)
		}
		if !ok {
			// No bar for an illiquid or unlisted date: expected, the
			// trade stays undetermined.
			continue
		}

		adjustedStrike := *t.Strike - SumDividends(dividends, t.Underlying, t.RegistrationDate, expiration)
		outcome := classifyOutcome(*t.OptionRight, refPrice, adjustedStrike, expired)
		t.Outcome = &outcome
		updated++
	}
	return updated
}

// SumDividends totals per-share payouts on asset with ex-date inside
// the window (after, until]. Used to discount the strike by dividends
// paid during an option's life.
func SumDividends(dividends []models.DividendEvent, asset string, after, until time.Time) float64 {
	code := normalizeAssetCode(asset)
	after = utils.TruncateToDay(after)
	until = utils.TruncateToDay(until)

	total := 0.0
	for _, d := range dividends {
		if normalizeAssetCode(d.Asset) != code {
			continue
		}
		ex := utils.TruncateToDay(d.ExDate)
		if ex.After(after) && !ex.After(until) {
			total += d.Amount
		}
	}
	return total
}

func classifyOutcome(right string, price, strike float64, expired bool) string {
	inTheMoney := price >= strike
	if right == models.RightPut {
		inTheMoney = price <= strike
	}

	switch {
	case expired && inTheMoney:
		return models.OutcomeExercised
	case expired:
		return models.OutcomeExpiredWorthless
	case inTheMoney:
		return models.OutcomeTrendingToExercise
	default:
		return models.OutcomeTrendingToWorthless
	}
}
