package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/estruturadas/backend/src/config"
	"github.com/username/estruturadas/backend/src/models"
)

func newQuoteServer(t *testing.T, price float64, requestCount *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requestCount++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"symbol":"PETR4.SA","regularMarketPrice":%f,"currency":"BRL"}}],"error":null}}`, price)
	}))
	t.Cleanup(server.Close)
	return server
}

func withQuoteConfig(t *testing.T, baseURL string) {
	t.Helper()
	previous := config.Cfg
	config.Cfg = &config.AppConfig{
		QuoteBaseURL:       baseURL,
		QuoteTimeout:       5 * time.Second,
		QuoteCacheTTL:      time.Minute,
		QuoteTickerSuffix:  ".SA",
		MaxImportBatchRows: 50000,
	}
	t.Cleanup(func() { config.Cfg = previous })
}

func TestGetLastPriceCachesPerTicker(t *testing.T) {
	requests := 0
	server := newQuoteServer(t, 25.50, &requests)
	withQuoteConfig(t, server.URL)

	db := newTestDB(t)
	priceService := NewPriceService(db)

	first, err := priceService.GetLastPrice("petr4.sa")
	require.NoError(t, err)
	assert.Equal(t, 25.50, first)

	second, err := priceService.GetLastPrice("PETR4.SA")
	require.NoError(t, err)
	assert.Equal(t, 25.50, second)
	assert.Equal(t, 1, requests)
}

func TestGetLastPriceFailsOnEmptyPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	t.Cleanup(server.Close)
	withQuoteConfig(t, server.URL)

	db := newTestDB(t)
	priceService := NewPriceService(db)

	_, err := priceService.GetLastPrice("XXXX9.SA")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestRefreshQuotesReportsFailuresWithoutAborting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/PETR4.SA" {
			w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"PETR4.SA","regularMarketPrice":25.5,"currency":"BRL"}}],"error":null}}`))
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	withQuoteConfig(t, server.URL)

	db := newTestDB(t)
	importService := newImportService(db)
	_, err := importService.ImportAssets([]models.Asset{
		{OriginalCode: "PETR4"},
		{OriginalCode: "XXXX9"},
	})
	require.NoError(t, err)

	priceService := NewPriceService(db)
	result, err := priceService.RefreshQuotes()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"XXXX9.SA"}, result.FailedTickers)

	assets, err := loadAssets(db)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.NotNil(t, assets[0].CurrentPrice)
	assert.Equal(t, 25.5, *assets[0].CurrentPrice)
	require.NotNil(t, assets[0].LastUpdate)
	assert.Nil(t, assets[1].CurrentPrice)
}
