package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/models"
	"github.com/username/estruturadas/backend/src/services"
	"github.com/username/estruturadas/backend/src/utils"
)

// ImportHandler exposes the bulk import endpoints. Bodies are JSON
// arrays of already-parsed rows; file parsing happens client-side.
type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(importService services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

func decodeBatch[T any](w http.ResponseWriter, r *http.Request, name string) ([]T, bool) {
	var batch []T
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		logger.L.Warn("Failed to decode import batch", "batch", name, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("invalid %s batch: %v", name, err), http.StatusBadRequest)
		return nil, false
	}
	return batch, true
}

func respondImport(w http.ResponseWriter, result services.ImportResult, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidBatch) || errors.Is(err, services.ErrBatchTooLarge) {
			status = http.StatusBadRequest
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *ImportHandler) HandleImportTrades(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.Trade](w, r, "trade")
	if !ok {
		return
	}
	result, err := h.importService.ImportTrades(batch)
	respondImport(w, result, err)
}

func (h *ImportHandler) HandleImportPriceBars(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.PriceBar](w, r, "price bar")
	if !ok {
		return
	}
	result, err := h.importService.ImportPriceBars(batch)
	respondImport(w, result, err)
}

func (h *ImportHandler) HandleImportExpirations(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.ExpirationEntry](w, r, "expiration")
	if !ok {
		return
	}
	result, err := h.importService.ImportExpirations(batch)
	respondImport(w, result, err)
}

func (h *ImportHandler) HandleImportDividends(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.DividendEvent](w, r, "dividend")
	if !ok {
		return
	}
	result, err := h.importService.ImportDividends(batch)
	respondImport(w, result, err)
}

func (h *ImportHandler) HandleImportAssets(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.Asset](w, r, "asset")
	if !ok {
		return
	}
	result, err := h.importService.ImportAssets(batch)
	respondImport(w, result, err)
}

func (h *ImportHandler) HandleImportStructuredOperations(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.StructuredOperation](w, r, "structured operation")
	if !ok {
		return
	}
	result, err := h.importService.ImportStructuredOperations(batch)
	respondImport(w, result, err)
}

func (h *ImportHandler) HandleImportFreePositions(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch[models.FreePosition](w, r, "free position")
	if !ok {
		return
	}
	result, err := h.importService.ImportFreePositions(batch)
	respondImport(w, result, err)
}
