package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/estruturadas/backend/src/models"
)

func financingOp(tag string) models.StructuredOperation {
	op := models.StructuredOperation{
		Account:      1,
		Client:       "A",
		Ticker:       "PETR4",
		StructureTag: tag,
		TradeDate:    day("2024-01-10"),
		Expiration:   day("2024-02-16"),
		AssetValue:   20.00,
		UnitCost:     0.80,
		Dividends:    0.50,
		Invested:     2000.00,
	}
	op.Legs[0] = models.OperationLeg{Quantity: -100, OptionType: "CALL", Strike: 22.00}
	return op
}

func TestCalculateFinancingCalledAway(t *testing.T) {
	calculator := NewStructuredCalculator()
	op := financingOp("FINANCIAMENTO")

	// Adjusted strike 22.00 - 0.50 = 21.50, reference 23.00 is above.
	update, computed := calculator.Calculate(op, 23.00, true)

	require.True(t, computed)
	assert.Equal(t, models.StatusStockCalledAway, update.Status)
	assert.Equal(t, 23.00, update.ReferencePrice)
	assert.InDelta(t, 80.0, update.CouponPremium, 1e-9)
	assert.InDelta(t, (22.00-23.00)*100, update.Adjustment, 1e-9)
	expected := (23.00-20.00+0.50)*100 + update.Adjustment + update.CouponPremium
	assert.InDelta(t, expected, update.Result, 1e-9)
	assert.InDelta(t, 23.00*100, update.Volume, 1e-9)
	require.NotNil(t, update.ReturnPct)
	assert.InDelta(t, expected/2000.00, *update.ReturnPct, 1e-9)
}

func TestCalculateFinancingWorthless(t *testing.T) {
	calculator := NewStructuredCalculator()
	op := financingOp("FINANCIAMENTO")

	expiredUpdate, computed := calculator.Calculate(op, 21.00, true)
	require.True(t, computed)
	assert.Equal(t, models.StatusExpiredWorthless, expiredUpdate.Status)
	assert.Equal(t, 0.0, expiredUpdate.Adjustment)
	assert.InDelta(t, 80.0, expiredUpdate.Result, 1e-9)

	trendingUpdate, computed := calculator.Calculate(op, 21.00, false)
	require.True(t, computed)
	assert.Equal(t, models.StatusTrendingWorthless, trendingUpdate.Status)
	assert.InDelta(t, 80.0, trendingUpdate.Result, 1e-9)
}

func TestCalculateCustodyVariantReportsFreeStock(t *testing.T) {
	calculator := NewStructuredCalculator()
	op := financingOp("Financiamento com Custódia")

	update, computed := calculator.Calculate(op, 23.00, true)

	require.True(t, computed)
	assert.Equal(t, models.StatusFreeStock, update.Status)
	assert.Equal(t, 0.0, update.Volume)
	// Money result matches the plain financing settlement.
	plain, _ := calculator.Calculate(financingOp("FINANCIAMENTO"), 23.00, true)
	assert.InDelta(t, plain.Result, update.Result, 1e-9)
}

func TestCalculateUnknownTagIsSkipped(t *testing.T) {
	calculator := NewStructuredCalculator()
	op := financingOp("COLLAR")

	update, computed := calculator.Calculate(op, 23.00, true)

	assert.False(t, computed)
	assert.Equal(t, StructuredUpdate{}, update)
}

func TestCalculateWithoutShortCallLegIsSkipped(t *testing.T) {
	calculator := NewStructuredCalculator()
	op := financingOp("FINANCIAMENTO")
	op.Legs[0] = models.OperationLeg{Quantity: 100, OptionType: "CALL", Strike: 22.00}

	_, computed := calculator.Calculate(op, 23.00, true)

	assert.False(t, computed)
}

func TestCalculateZeroInvestedLeavesReturnNil(t *testing.T) {
	calculator := NewStructuredCalculator()
	op := financingOp("FINANCIAMENTO")
	op.Invested = 0

	update, computed := calculator.Calculate(op, 23.00, true)

	require.True(t, computed)
	assert.Nil(t, update.ReturnPct)
}
