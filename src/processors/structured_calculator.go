package processors

import (
	"strings"

	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/utils"
)

// StructuredUpdate carries the fields a calculation pass writes back
// onto one structured-operation row. Only recognized structure kinds
// produce an update; everything else stays untouched in storage.
type StructuredUpdate struct {
	ReferencePrice float64
	Adjustment     float64
	Result         float64
	Status         string
	Volume         float64
	CouponPremium  float64
	ReturnPct      *float64
}

// structuredCalculatorImpl implements the StructuredCalculator interface.
type structuredCalculatorImpl struct{}

// NewStructuredCalculator creates a new instance of StructuredCalculator.
func NewStructuredCalculator() StructuredCalculator {
	return &structuredCalculatorImpl{}
}

// Calculate settles one row against its reference price. Returns false
// when the row cannot be computed: unrecognized structure tag, or no
// short-call leg to settle against. The caller must not write anything
// back in that case.
//
// Quantity in the settlement formulas is the magnitude of the short
// leg; its negative sign only marks the leg as sold.
func (c *structuredCalculatorImpl) Calculate(op models.StructuredOperation, refPrice float64, expired bool) (StructuredUpdate, bool) {
	kind := models.ParseStructureKind(op.StructureTag)
	switch kind {
	case models.StructureFinanciamento:
		return calculateFinancing(op, refPrice, expired, false)
	case models.StructureFinanciamentoCustodia:
		return calculateFinancing(op, refPrice, expired, true)
	case models.StructureUnknown:
		return StructuredUpdate{}, false
	default:
		return StructuredUpdate{}, false
	}
}

// calculateFinancing settles a short-call overlay. Above the
// dividend-adjusted strike the stock is called away at the strike; at
// or below it the calls die and the client keeps the coupon. The
// custody variant reports the stock as still held: status FREE_STOCK
// and zero volume, same money result.
func calculateFinancing(op models.StructuredOperation, refPrice float64, expired, custody bool) (StructuredUpdate, bool) {
	leg, ok := shortCallLeg(op)
	if !ok {
		return StructuredUpdate{}, false
	}

	quantity := utils.AbsFloat(leg.Quantity)
	couponPremium := quantity * op.UnitCost
	adjustedStrike := leg.Strike - op.Dividends

	update := StructuredUpdate{
		ReferencePrice: refPrice,
		CouponPremium:  couponPremium,
		Volume:         refPrice * quantity,
	}

	if refPrice > adjustedStrike {
		update.Adjustment = (leg.Strike - refPrice) * quantity
		update.Result = (refPrice-op.AssetValue+op.Dividends)*quantity + update.Adjustment + couponPremium
		update.Status = models.StatusStockCalledAway
	} else {
		update.Adjustment = 0
		update.Result = couponPremium
		if expired {
			update.Status = models.StatusExpiredWorthless
		} else {
			update.Status = models.StatusTrendingWorthless
		}
	}

	if custody {
		update.Status = models.StatusFreeStock
		update.Volume = 0
	}

	if op.Invested != 0 {
		pct := update.Result / op.Invested
		update.ReturnPct = &pct
	}

	return update, true
}

// shortCallLeg finds the sold call among the row's legs: negative
// quantity and a call type. Current structures only ever populate the
// first leg, but the report format carries four.
func shortCallLeg(op models.StructuredOperation) (models.OperationLeg, bool) {
	for _, leg := range op.Legs {
		if leg.Quantity < 0 && isCall(leg.OptionType) {
			return leg, true
		}
	}
	return models.OperationLeg{}, false
}

func isCall(optionType string) bool {
	return strings.Contains(strings.ToUpper(optionType), "CALL")
}
