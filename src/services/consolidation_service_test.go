package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/processors"
)

func TestRebuildPositionsReplacesTableOnEveryRun(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	consolidationService := NewConsolidationService(db, processors.NewPositionConsolidator())
	reportService := NewReportService(db)

	_, err := importService.ImportTrades([]models.Trade{
		{Account: 1, Client: "A", RegistrationDate: day("2024-01-10"), Side: models.SideBuy,
			MarketSegment: "A VISTA", Underlying: "PETR4", Quantity: 100, Value: 2000},
		{Account: 1, Client: "A", RegistrationDate: day("2024-01-15"), Side: models.SideSell,
			MarketSegment: "OPCAO DE COMPRA", Underlying: "PETR4", Quantity: -100, Value: 300,
			Specification: "PETRB22,00"},
	})
	require.NoError(t, err)

	count, err := consolidationService.RebuildPositions()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	first, err := reportService.GetPositions(PositionFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 100.0, first[0].PurchasedQty)
	assert.Equal(t, 300.0, first[0].PremiumReceived)

	// Rerunning must not accumulate rows.
	_, err = consolidationService.RebuildPositions()
	require.NoError(t, err)
	second, err := reportService.GetPositions(PositionFilter{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetPositionsFilters(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	consolidationService := NewConsolidationService(db, processors.NewPositionConsolidator())
	reportService := NewReportService(db)

	_, err := importService.ImportTrades([]models.Trade{
		{Account: 1, Client: "Maria", RegistrationDate: day("2024-01-10"), Side: models.SideBuy,
			MarketSegment: "A VISTA", Underlying: "PETR4", Quantity: 100, Value: 2000},
		{Account: 2, Client: "Joao", RegistrationDate: day("2024-03-05"), Side: models.SideBuy,
			MarketSegment: "A VISTA", Underlying: "VALE3", Quantity: 50, Value: 3000},
		{Account: 2, Client: "Joao", RegistrationDate: day("2024-03-06"), Side: models.SideSell,
			MarketSegment: "A VISTA", Underlying: "VALE3", Quantity: -50, Value: 3100},
	})
	require.NoError(t, err)
	_, err = consolidationService.RebuildPositions()
	require.NoError(t, err)

	byClient, err := reportService.GetPositions(PositionFilter{ClientContains: "Mar"})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, "Maria", byClient[0].Client)

	byUnderlying, err := reportService.GetPositions(PositionFilter{Underlying: "vale3"})
	require.NoError(t, err)
	require.Len(t, byUnderlying, 1)
	assert.Equal(t, "VALE3", byUnderlying[0].Underlying)

	byDate, err := reportService.GetPositions(PositionFilter{FirstTradeFrom: day("2024-02-01")})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "Joao", byDate[0].Client)

	open, err := reportService.GetPositions(PositionFilter{OnlyOpen: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "PETR4", open[0].Underlying)

	closed, err := reportService.GetPositions(PositionFilter{OnlyClosed: true})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "VALE3", closed[0].Underlying)
}

func TestGetPremiumSummarySignsBySide(t *testing.T) {
	db := newTestDB(t)
	importService := newImportService(db)
	reportService := NewReportService(db)

	_, err := importService.ImportTrades([]models.Trade{
		{Account: 1, Client: "A", RegistrationDate: day("2024-01-15"), Side: models.SideSell,
			MarketSegment: "OPCAO DE COMPRA", Underlying: "PETR4", Quantity: -100, Value: 500,
			Specification: "PETRA22,00"},
		{Account: 1, Client: "A", RegistrationDate: day("2024-01-20"), Side: models.SideBuy,
			MarketSegment: "OPCAO DE COMPRA", Underlying: "PETR4", Quantity: 100, Value: 200,
			Specification: "PETRA24,00"},
		{Account: 1, Client: "A", RegistrationDate: day("2024-02-10"), Side: models.SideSell,
			MarketSegment: "OPCAO DE VENDA", Underlying: "PETR4", Quantity: -100, Value: 400,
			Specification: "PETRN18,00"},
		// Equity trades never count as premium.
		{Account: 1, Client: "A", RegistrationDate: day("2024-01-15"), Side: models.SideBuy,
			MarketSegment: "A VISTA", Underlying: "PETR4", Quantity: 100, Value: 2000},
		// Other year is excluded.
		{Account: 1, Client: "A", RegistrationDate: day("2023-01-15"), Side: models.SideSell,
			MarketSegment: "OPCAO DE COMPRA", Underlying: "PETR4", Quantity: -100, Value: 999,
			Specification: "PETRA20,00"},
	})
	require.NoError(t, err)

	summary, err := reportService.GetPremiumSummary(2024)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, models.PremiumSummaryRow{Client: "A", Month: 1, Premium: 300}, summary[0])
	assert.Equal(t, models.PremiumSummaryRow{Client: "A", Month: 2, Premium: 400}, summary[1])
}
