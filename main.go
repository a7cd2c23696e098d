package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/estruturadas/backend/src/config"
	"github.com/username/estruturadas/backend/src/database"
	"github.com/username/estruturadas/backend/src/handlers"
	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/processors"
	"github.com/username/estruturadas/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Estruturadas backend server starting...")

	db, err := database.Connect(config.Cfg.DatabasePath)
	if err != nil {
		logger.L.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	normalizer := processors.NewTradeNormalizer()
	classifier := processors.NewSettlementClassifier()
	consolidator := processors.NewPositionConsolidator()
	calculator := processors.NewStructuredCalculator()

	importService := services.NewImportService(db, normalizer)
	priceService := services.NewPriceService(db)
	settlementService := services.NewSettlementService(db, classifier)
	consolidationService := services.NewConsolidationService(db, consolidator)
	structuredService := services.NewStructuredService(db, calculator)
	reportService := services.NewReportService(db)

	importHandler := handlers.NewImportHandler(importService)
	pipelineHandler := handlers.NewPipelineHandler(priceService, settlementService, consolidationService, structuredService)
	reportHandler := handlers.NewReportHandler(reportService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(rateLimitMiddleware)
	r.Use(enableCORS)

	r.Route("/api", func(r chi.Router) {
		r.Route("/import", func(r chi.Router) {
			r.Post("/trades", importHandler.HandleImportTrades)
			r.Post("/price-bars", importHandler.HandleImportPriceBars)
			r.Post("/expirations", importHandler.HandleImportExpirations)
			r.Post("/dividends", importHandler.HandleImportDividends)
			r.Post("/assets", importHandler.HandleImportAssets)
			r.Post("/structured-operations", importHandler.HandleImportStructuredOperations)
			r.Post("/free-positions", importHandler.HandleImportFreePositions)
		})

		r.Post("/quotes/refresh", pipelineHandler.HandleRefreshQuotes)
		r.Post("/settlements/classify", pipelineHandler.HandleClassifySettlements)
		r.Post("/positions/rebuild", pipelineHandler.HandleRebuildPositions)
		r.Post("/structured-operations/calculate", pipelineHandler.HandleCalculateStructured)

		r.Get("/positions", reportHandler.HandleGetPositions)
		r.Get("/premium-summary", reportHandler.HandleGetPremiumSummary)
		r.Get("/trades", reportHandler.HandleGetTrades)
		r.Get("/free-positions", reportHandler.HandleGetFreePositions)
		r.Get("/structured-operations", reportHandler.HandleGetStructuredOperations)
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("Estruturadas backend is running"))
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.L.Info("Server listening", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
