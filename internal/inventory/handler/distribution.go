package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/internal/inventory/service"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
	"github.com/padbank/padbank-backend/pkg/httputil"
	"github.com/padbank/padbank-backend/pkg/logger"
)

// DistributionHandler handles checkout, manual distribution and student lookups
type DistributionHandler struct {
	service *service.DistributionService
	logger  *logger.Logger
}

// NewDistributionHandler creates a new distribution handler
func NewDistributionHandler(svc *service.DistributionService, log *logger.Logger) *DistributionHandler {
	return &DistributionHandler{
		service: svc,
		logger:  log,
	}
}

// Checkout hands one pad to a student from the best available batch
func (h *DistributionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	req.StudentUserID = strings.TrimSpace(req.StudentUserID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.StaffName = strings.TrimSpace(req.StaffName)
	if req.StudentUserID == "" || req.StaffID == "" || req.StaffName == "" {
		httputil.Error(w, apperrors.BadRequest("Student ID, Staff ID, and Staff Name are required"))
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Pad distributed successfully", result)
}

// Distribute records a handout from a specific batch
func (h *DistributionHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req service.DistributeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Distribute(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Distribution recorded successfully", result)
}

// Eligibility reports whether a checkout would currently succeed
func (h *DistributionHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := domain.StorageLocation(q.Get("storageLocation"))
	brand := domain.BrandType(q.Get("brandPreference"))

	if location != "" && !location.IsValid() {
		httputil.Error(w, apperrors.Validation(map[string]string{"storageLocation": "must be a valid storage location"}))
		return
	}
	if brand != "" && !brand.IsValid() {
		httputil.Error(w, apperrors.Validation(map[string]string{"brandPreference": "must be a valid brand type"}))
		return
	}

	eligibility, err := h.service.Eligibility(r.Context(), chi.URLParam(r, "studentUserId"), location, brand)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, eligibility)
}

// History lists a student's handouts, newest first
func (h *DistributionHandler) History(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)

	entries, total, err := h.service.History(r.Context(), chi.URLParam(r, "studentUserId"), page, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, map[string]interface{}{
		"distributions": entries,
	}, httputil.NewMeta(page, limit, total))
}
