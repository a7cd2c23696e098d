package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/services"
	"github.com/username/estruturadas/backend/src/utils"
)

// ReportHandler serves the read-side endpoints.
type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func sendJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode response", "error", err)
	}
}

// HandleGetPositions lists consolidated positions. Query parameters:
// client (substring), underlying, from, to (first-trade date range,
// YYYY-MM-DD), state=open|closed.
func (h *ReportHandler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.PositionFilter{
		ClientContains: q.Get("client"),
		Underlying:     q.Get("underlying"),
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(utils.DefaultDateFormat, from)
		if err != nil {
			utils.SendJSONError(w, "invalid 'from' date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.FirstTradeFrom = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(utils.DefaultDateFormat, to)
		if err != nil {
			utils.SendJSONError(w, "invalid 'to' date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.FirstTradeTo = t
	}
	switch q.Get("state") {
	case "":
	case "open":
		filter.OnlyOpen = true
	case "closed":
		filter.OnlyClosed = true
	default:
		utils.SendJSONError(w, "invalid 'state', want open or closed", http.StatusBadRequest)
		return
	}

	positions, err := h.reportService.GetPositions(filter)
	if err != nil {
		logger.L.Error("Failed to query positions", "error", err)
		utils.SendJSONError(w, "failed to query positions", http.StatusInternalServerError)
		return
	}
	sendJSON(w, positions)
}

// HandleGetPremiumSummary returns premium per client and month for the
// year given in the 'year' query parameter.
func (h *ReportHandler) HandleGetPremiumSummary(w http.ResponseWriter, r *http.Request) {
	yearStr := r.URL.Query().Get("year")
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 || year > 2200 {
		utils.SendJSONError(w, "invalid or missing 'year' parameter", http.StatusBadRequest)
		return
	}

	summary, err := h.reportService.GetPremiumSummary(year)
	if err != nil {
		logger.L.Error("Failed to query premium summary", "year", year, "error", err)
		utils.SendJSONError(w, "failed to query premium summary", http.StatusInternalServerError)
		return
	}
	sendJSON(w, summary)
}

func (h *ReportHandler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.reportService.GetTrades()
	if err != nil {
		logger.L.Error("Failed to query trades", "error", err)
		utils.SendJSONError(w, "failed to query trades", http.StatusInternalServerError)
		return
	}
	sendJSON(w, trades)
}

func (h *ReportHandler) HandleGetFreePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.reportService.GetFreePositions()
	if err != nil {
		logger.L.Error("Failed to query free positions", "error", err)
		utils.SendJSONError(w, "failed to query free positions", http.StatusInternalServerError)
		return
	}
	sendJSON(w, positions)
}

func (h *ReportHandler) HandleGetStructuredOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.reportService.GetStructuredOperations()
	if err != nil {
		logger.L.Error("Failed to query structured operations", "error", err)
		utils.SendJSONError(w, "failed to query structured operations", http.StatusInternalServerError)
		return
	}
	sendJSON(w, ops)
}
