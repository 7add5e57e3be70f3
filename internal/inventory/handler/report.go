package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/service"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
	"github.com/padbank/padbank-backend/pkg/httputil"
	"github.com/padbank/padbank-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles aggregate and export endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// Summary returns stock totals and the low-stock batches
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Summary(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// LowStock lists active batches at or below their threshold
func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.LowStock(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Stats returns the overview with per-brand and per-location breakdowns
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

// Day returns the handouts of one calendar day
func (h *ReportHandler) Day(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Day(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Insights returns the analytics facet
func (h *ReportHandler) Insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.service.Insights(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, insights)
}

// Export flattens the filtered batches as JSON rows or an xlsx workbook
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "xlsx" {
		httputil.Error(w, apperrors.BadRequest("format must be json or xlsx"))
		return
	}

	rows, err := h.service.ExportRows(r.Context(), batchFilter(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if format != "xlsx" {
		httputil.Message(w, http.StatusOK, "Inventory data exported successfully", map[string]interface{}{
			"inventory": rows,
			"count":     len(rows),
		})
		return
	}

	data, err := service.Workbook(rows)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build inventory workbook")
		httputil.Error(w, apperrors.Internal("failed to build inventory workbook"))
		return
	}

	filename := fmt.Sprintf("pad-inventory-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write inventory workbook")
	}
}
