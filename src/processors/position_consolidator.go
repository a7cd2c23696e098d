package processors

import (
	"sort"
	"time"

	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/utils"
)

// ConsolidationInput is the full snapshot a rebuild runs against:
// every normalized trade, every dividend event, the latest known price
// per asset and the daily history for first-close lookups.
type ConsolidationInput struct {
	Trades       []models.Trade
	Dividends    []models.DividendEvent
	LatestPrices map[string]float64
	History      *PriceHistory
}

type positionKey struct {
	Account    int64
	Client     string
	Underlying string
}

// positionAccumulator collects the per-key aggregates before the final
// row is assembled.
type positionAccumulator struct {
	firstTrade time.Time

	purchasedQty float64
	purchaseCost float64
	soldQty      float64
	saleProceeds float64

	premiumReceived float64
	premiumPaid     float64

	// Equity buys in registration order, for dividend accrual.
	buys []buyLot
}

type buyLot struct {
	registration time.Time
	quantity     float64
}

// positionConsolidatorImpl implements the PositionConsolidator interface.
type positionConsolidatorImpl struct{}

// NewPositionConsolidator creates a new instance of PositionConsolidator.
func NewPositionConsolidator() PositionConsolidator {
	return &positionConsolidatorImpl{}
}

// Consolidate rebuilds the full position set from scratch. Every
// (account, client, underlying) tuple that appears in the ledger gets
// exactly one row, positions with only sells or only option trades
// included. Missing prices and dividends default to 0, never abort.
// Output order is deterministic: account, client, underlying ascending.
func (p *positionConsolidatorImpl) Consolidate(in ConsolidationInput) []models.ConsolidatedPosition {
	accumulators := make(map[positionKey]*positionAccumulator)
	firstTradeByAsset := make(map[string]time.Time)

	for _, t := range in.Trades {
		key := positionKey{Account: t.Account, Client: t.Client, Underlying: normalizeAssetCode(t.Underlying)}
		acc, ok := accumulators[key]
		if !ok {
			acc = &positionAccumulator{firstTrade: t.RegistrationDate}
			accumulators[key] = acc
		}
		if t.RegistrationDate.Before(acc.firstTrade) {
			acc.firstTrade = t.RegistrationDate
		}
		if first, ok := firstTradeByAsset[key.Underlying]; !ok || t.RegistrationDate.Before(first) {
			firstTradeByAsset[key.Underlying] = t.RegistrationDate
		}

		quantity := utils.AbsFloat(t.Quantity)
		value := utils.AbsFloat(t.Value)

		switch t.InstrumentKind {
		case models.KindOption:
			if t.Side == models.SideSell {
				acc.premiumReceived += value
			} else {
				acc.premiumPaid += value
			}
		default:
			if t.Side == models.SideSell {
				acc.soldQty += quantity
				acc.saleProceeds += value
			} else {
				acc.purchasedQty += quantity
				acc.purchaseCost += value
				acc.buys = append(acc.buys, buyLot{registration: t.RegistrationDate, quantity: quantity})
			}
		}
	}

	dividendsByAsset := make(map[string][]models.DividendEvent)
	for _, d := range in.Dividends {
		code := normalizeAssetCode(d.Asset)
		dividendsByAsset[code] = append(dividendsByAsset[code], d)
	}

	positions := make([]models.ConsolidatedPosition, 0, len(accumulators))
	for key, acc := range accumulators {
		positions = append(positions, buildPosition(key, acc, dividendsByAsset[key.Underlying], in, firstTradeByAsset[key.Underlying]))
	}

	positions = dedupePositions(positions)
	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		if a.Client != b.Client {
			return a.Client < b.Client
		}
		return a.Underlying < b.Underlying
	})
	return positions
}

func buildPosition(key positionKey, acc *positionAccumulator, dividends []models.DividendEvent, in ConsolidationInput, assetFirstTrade time.Time) models.ConsolidatedPosition {
	pos := models.ConsolidatedPosition{
		Account:    key.Account,
		Client:     key.Client,
		Underlying: key.Underlying,
		FirstTrade: utils.TruncateToDay(acc.firstTrade),

		PurchasedQty: acc.purchasedQty,
		PurchaseCost: acc.purchaseCost,
		AvgBuyPrice:  utils.SafeDiv(acc.purchaseCost, acc.purchasedQty),
		SoldQty:      acc.soldQty,
		SaleProceeds: acc.saleProceeds,
		AvgSellPrice: utils.SafeDiv(acc.saleProceeds, acc.soldQty),
		NetQty:       acc.purchasedQty - acc.soldQty,

		PremiumReceived: acc.premiumReceived,
		PremiumPaid:     acc.premiumPaid,
		NetPremium:      acc.premiumReceived - acc.premiumPaid,
		DividendCredit:  accrueDividends(acc.buys, dividends),
	}

	pos.ClosingPrice = in.LatestPrices[key.Underlying]
	if in.History != nil {
		if close, ok := in.History.CloseOn(key.Underlying, assetFirstTrade); ok {
			pos.FirstClose = close
		}
	}

	pos.MarketValue = pos.NetQty * pos.ClosingPrice
	pos.InvestedValue = pos.NetQty * pos.AvgBuyPrice
	pos.ResultNoOpts = pos.MarketValue - pos.InvestedValue
	pos.ResultOpts = pos.ResultNoOpts + pos.NetPremium

	base := pos.SaleProceeds + pos.MarketValue - pos.PurchaseCost
	pos.ReturnNoPremium = utils.SafeDiv(base, pos.PurchaseCost)
	pos.ReturnWithPremium = utils.SafeDiv(base+pos.NetPremium, pos.PurchaseCost)
	pos.ReturnWithDividends = utils.SafeDiv(base+pos.DividendCredit, pos.PurchaseCost)
	pos.ReturnDividendsAndPremium = utils.SafeDiv(base+pos.DividendCredit+pos.NetPremium, pos.PurchaseCost)

	pos.SaleResultNoPremium = (pos.AvgSellPrice - pos.AvgBuyPrice) * pos.SoldQty
	pos.SaleResultWithPremium = pos.SaleResultNoPremium + pos.PremiumReceived
	pos.PriceVariation = utils.SafeDiv(pos.ClosingPrice-pos.FirstClose, pos.FirstClose)

	return pos
}

// accrueDividends credits shares_held_at_ex_date x per_share_amount for
// every event. Shares held at a date counts equity buys registered on
// or before that ex-date; sells are not netted out. That overstates the
// credit for partially closed positions and is kept until the product
// owner settles the accrual rule.
func accrueDividends(buys []buyLot, dividends []models.DividendEvent) float64 {
	if len(buys) == 0 || len(dividends) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range dividends {
		ex := utils.TruncateToDay(d.ExDate)
		held := 0.0
		for _, lot := range buys {
			if !utils.TruncateToDay(lot.registration).After(ex) {
				held += lot.quantity
			}
		}
		total += held * d.Amount
	}
	return total
}

// dedupePositions keeps the first row per key. The final write assumes
// key uniqueness.
func dedupePositions(positions []models.ConsolidatedPosition) []models.ConsolidatedPosition {
	seen := make(map[positionKey]bool, len(positions))
	out := positions[:0]
	for _, pos := range positions {
		key := positionKey{Account: pos.Account, Client: pos.Client, Underlying: pos.Underlying}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pos)
	}
	return out
}
