package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/estruturadas/backend/src/config"
	"github.com/username/estruturadas/backend/src/database"
	"github.com/username/estruturadas/backend/src/logger"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// chartResponse mirrors the Yahoo-style chart endpoint payload, only
// the fields the service reads.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// priceServiceImpl implements the PriceService interface. Quotes are
// cached per ticker and outbound requests are paced so a full refresh
// does not hammer the source.
type priceServiceImpl struct {
	db         *sql.DB
	httpClient http.Client
	baseURL    string
	quoteCache *cache.Cache
	limiter    *rate.Limiter
}

// NewPriceService creates a new instance of the price service. The
// HTTP client carries a cookie jar; the quote source sets session
// cookies and rejects bare clients.
func NewPriceService(db *sql.DB) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	timeout := 20 * time.Second
	cacheTTL := 15 * time.Minute
	baseURL := "https://query1.finance.yahoo.com"
	if config.Cfg != nil {
		timeout = config.Cfg.QuoteTimeout
		cacheTTL = config.Cfg.QuoteCacheTTL
		baseURL = config.Cfg.QuoteBaseURL
	}

	return &priceServiceImpl{
		db: db,
		httpClient: http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL:    baseURL,
		quoteCache: cache.New(cacheTTL, 2*cacheTTL),
		limiter:    rate.NewLimiter(rate.Limit(4), 1),
	}
}

// GetLastPrice returns the latest quote for one ticker, serving from
// the cache when the entry is still fresh.
func (s *priceServiceImpl) GetLastPrice(ticker string) (float64, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return 0, fmt.Errorf("%w: empty ticker", ErrQuoteUnavailable)
	}

	if cached, found := s.quoteCache.Get(ticker); found {
		if price, ok := cached.(float64); ok {
			return price, nil
		}
	}

	price, err := s.fetchQuote(ticker)
	if err != nil {
		return 0, err
	}
	s.quoteCache.Set(ticker, price, cache.DefaultExpiration)
	return price, nil
}

func (s *priceServiceImpl) fetchQuote(ticker string) (float64, error) {
	// Pace outbound calls; a burst of refreshes queues instead of
	// failing, bounded only by the client timeout per request.
	_ = s.limiter.Wait(context.Background())

	url := fmt.Sprintf("%s/v8/finance/chart/%s", s.baseURL, ticker)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building quote request for %s: %w", ticker, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote request for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: %s returned status %d: %s", ErrQuoteUnavailable, ticker, resp.StatusCode, string(body))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding quote for %s: %w", ticker, err)
	}
	if len(payload.Chart.Result) == 0 || payload.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return 0, fmt.Errorf("%w: %s", ErrQuoteUnavailable, ticker)
	}
	return payload.Chart.Result[0].Meta.RegularMarketPrice, nil
}

// RefreshQuotes walks every registered asset, pulls its latest quote
// and stores it. Per-ticker failures are collected, never fatal; the
// successful updates commit even when some tickers fail.
func (s *priceServiceImpl) RefreshQuotes() (QuoteRefreshResult, error) {
	assets, err := loadAssets(s.db)
	if err != nil {
		return QuoteRefreshResult{}, err
	}

	type quoteUpdate struct {
		originalCode string
		price        float64
	}
	var updates []quoteUpdate
	var failed []string

	for _, asset := range assets {
		price, err := s.GetLastPrice(asset.LookupCode)
		if err != nil {
			logger.L.Warn("Quote refresh failed for ticker", "ticker", asset.LookupCode, "error", err)
			failed = append(failed, asset.LookupCode)
			continue
		}
		updates = append(updates, quoteUpdate{originalCode: asset.OriginalCode, price: price})
	}

	now := time.Now().UTC().Format(time.RFC3339)
	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE assets SET current_price = ?, last_update = ? WHERE original_code = ?`)
		if err != nil {
			return fmt.Errorf("preparing asset price update: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			if _, err := stmt.Exec(u.price, now, u.originalCode); err != nil {
				return fmt.Errorf("updating price for %s: %w", u.originalCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return QuoteRefreshResult{}, err
	}

	logger.L.Info("Quote refresh finished", "updated", len(updates), "failed", len(failed))
	return QuoteRefreshResult{Updated: len(updates), FailedTickers: failed}, nil
}
