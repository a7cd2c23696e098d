package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/services"
	"github.com/username/estruturadas/backend/src/utils"
)

// PipelineHandler triggers the batch recomputation actions. Each runs
// synchronously to completion before the response is written.
type PipelineHandler struct {
	priceService         services.PriceService
	settlementService    services.SettlementService
	consolidationService services.ConsolidationService
	structuredService    services.StructuredService
}

func NewPipelineHandler(
	priceService services.PriceService,
	settlementService services.SettlementService,
	consolidationService services.ConsolidationService,
	structuredService services.StructuredService,
) *PipelineHandler {
	return &PipelineHandler{
		priceService:         priceService,
		settlementService:    settlementService,
		consolidationService: consolidationService,
		structuredService:    structuredService,
	}
}

func (h *PipelineHandler) HandleRefreshQuotes(w http.ResponseWriter, r *http.Request) {
	result, err := h.priceService.RefreshQuotes()
	if err != nil {
		logger.L.Error("Quote refresh failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *PipelineHandler) HandleClassifySettlements(w http.ResponseWriter, r *http.Request) {
	updated, err := h.settlementService.ClassifySettlements(time.Now())
	if err != nil {
		logger.L.Error("Settlement classification failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"updated": updated})
}

func (h *PipelineHandler) HandleRebuildPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.consolidationService.RebuildPositions()
	if err != nil {
		logger.L.Error("Position rebuild failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"positions": positions})
}

func (h *PipelineHandler) HandleCalculateStructured(w http.ResponseWriter, r *http.Request) {
	updated, err := h.structuredService.CalculateStructuredResults(time.Now())
	if err != nil {
		logger.L.Error("Structured calculation failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"updated": updated})
}
