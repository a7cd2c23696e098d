package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/processors"
)

func structuredRow(client, tag string) models.StructuredOperation {
	op := models.StructuredOperation{
		Account:      1,
		Client:       client,
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

func TestCalculateStructuredResultsPartialWriteScoping(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	structuredService := NewStructuredService(db, processors.NewStructuredCalculator())

	_, err := importService.ImportPriceBars([]models.PriceBar{
		{Asset: "PETR4", TradeDate: day("2024-02-16"), Close: 23.00},
	})
	require.NoError(t, err)

	_, err = importService.ImportStructuredOperations([]models.StructuredOperation{
		structuredRow("A", "FINANCIAMENTO"),
		structuredRow("B", "COLLAR"),
	})
	require.NoError(t, err)

	updated, err := structuredService.CalculateStructuredResults(day("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	ops, err := loadStructuredOperations(db)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	financing := ops[0]
	require.NotNil(t, financing.Result)
	require.NotNil(t, financing.Status)
	assert.Equal(t, models.StatusStockCalledAway, *financing.Status)
	require.NotNil(t, financing.ReferencePrice)
	assert.Equal(t, 23.00, *financing.ReferencePrice)
	require.NotNil(t, financing.ReturnPct)

	// The unrecognized row keeps every computed field null.
	unknown := ops[1]
	assert.Nil(t, unknown.Result)
	assert.Nil(t, unknown.Status)
	assert.Nil(t, unknown.Volume)
	assert.Nil(t, unknown.ReferencePrice)
	assert.Nil(t, unknown.ReturnPct)
}

func TestCalculateStructuredResultsFutureRowUsesCurrentPrice(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	structuredService := NewStructuredService(db, processors.NewStructuredCalculator())

	_, err := importService.ImportAssets([]models.Asset{{OriginalCode: "PETR4"}})
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE assets SET current_price = 21.00 WHERE original_code = 'PETR4'`)
	require.NoError(t, err)

	_, err = importService.ImportStructuredOperations([]models.StructuredOperation{
		structuredRow("A", "FINANCIAMENTO"),
	})
	require.NoError(t, err)

	// Evaluated before expiration: current price, trending status.
	updated, err := structuredService.CalculateStructuredResults(day("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	ops, err := loadStructuredOperations(db)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.NotNil(t, ops[0].Status)
	assert.Equal(t, models.StatusTrendingWorthless, *ops[0].Status)
	require.NotNil(t, ops[0].ReferencePrice)
	assert.Equal(t, 21.00, *ops[0].ReferencePrice)
	require.NotNil(t, ops[0].Result)
	assert.InDelta(t, 80.0, *ops[0].Result, 1e-9)
}

func TestCalculateStructuredResultsExpirationDayUsesExactClose(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	structuredService := NewStructuredService(db, processors.NewStructuredCalculator())

	// Current quote is above the adjusted strike, the expiration-day
	// close is below it. Evaluated on the expiration day itself the
	// close decides, so the calls die instead of being called away.
	_, err := importService.ImportAssets([]models.Asset{{OriginalCode: "PETR4"}})
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE assets SET current_price = 23.00 WHERE original_code = 'PETR4'`)
	require.NoError(t, err)
	_, err = importService.ImportPriceBars([]models.PriceBar{
		{Asset: "PETR4", TradeDate: day("2024-02-16"), Close: 21.00},
	})
	require.NoError(t, err)

	_, err = importService.ImportStructuredOperations([]models.StructuredOperation{
		structuredRow("A", "FINANCIAMENTO"),
	})
	require.NoError(t, err)

	updated, err := structuredService.CalculateStructuredResults(day("2024-02-16"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	ops, err := loadStructuredOperations(db)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.NotNil(t, ops[0].ReferencePrice)
	assert.Equal(t, 21.00, *ops[0].ReferencePrice)
	require.NotNil(t, ops[0].Status)
	assert.Equal(t, models.StatusExpiredWorthless, *ops[0].Status)
}

func TestCalculateStructuredResultsExpirationDayFallsBackToCurrentQuote(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	structuredService := NewStructuredService(db, processors.NewStructuredCalculator())

	// No bar published for the expiration day yet: the current quote
	// stands in, still on the past-path status.
	_, err := importService.ImportAssets([]models.Asset{{OriginalCode: "PETR4"}})
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE assets SET current_price = 21.00 WHERE original_code = 'PETR4'`)
	require.NoError(t, err)

	_, err = importService.ImportStructuredOperations([]models.StructuredOperation{
		structuredRow("A", "FINANCIAMENTO"),
	})
	require.NoError(t, err)

	updated, err := structuredService.CalculateStructuredResults(day("2024-02-16"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	ops, err := loadStructuredOperations(db)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.NotNil(t, ops[0].ReferencePrice)
	assert.Equal(t, 21.00, *ops[0].ReferencePrice)
	require.NotNil(t, ops[0].Status)
	assert.Equal(t, models.StatusExpiredWorthless, *ops[0].Status)
}

func TestCalculateStructuredResultsSkipsRowsWithoutPrice(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	structuredService := NewStructuredService(db, processors.NewStructuredCalculator())

	_, err := importService.ImportStructuredOperations([]models.StructuredOperation{
		structuredRow("A", "FINANCIAMENTO"),
	})
	require.NoError(t, err)

	updated, err := structuredService.CalculateStructuredResults(day("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	ops, err := loadStructuredOperations(db)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Nil(t, ops[0].Result)
	assert.Nil(t, ops[0].Status)
}
