package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/padbank/padbank-backend/internal/inventory/service"
	"github.com/padbank/padbank-backend/pkg/httputil"
	"github.com/padbank/padbank-backend/pkg/logger"
)

// StockHandler handles stock adjustments
type StockHandler struct {
	service *service.AdjustmentService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.AdjustmentService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// Adjust applies an addition, reduction or correction to a batch
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req service.AdjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Adjust(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Stock adjustment recorded successfully", result)
}
