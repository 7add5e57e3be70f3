package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/internal/inventory/service"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
	"github.com/padbank/padbank-backend/pkg/httputil"
	"github.com/padbank/padbank-backend/pkg/logger"
)

// readOnlyFields are derived or immutable and may not be sent on update
var readOnlyFields = []string{
	"padBatchId",
	"currentStock",
	"distributionRecords",
	"stockAdjustments",
	"totalDistributed",
	"stockPercentage",
	"isLowStock",
	"totalValue",
	"quantitySupplied",
}

// InventoryHandler handles batch endpoints
type InventoryHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *service.InventoryService, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  log,
	}
}

// Create creates a new batch
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusCreated, "Inventory entry created successfully", map[string]interface{}{
		"inventory": batch,
	})
}

// BulkCreate creates every valid item of the request
func (h *InventoryHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InventoryItems []*service.CreateBatchRequest `json:"inventoryItems"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if len(req.InventoryItems) == 0 {
		httputil.Error(w, apperrors.BadRequest("Invalid inventory items array"))
		return
	}

	// per-item validation happens in the service so failures keep their position
	result, err := h.service.BulkCreate(r.Context(), req.InventoryItems)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	msg := fmt.Sprintf("Successfully created %d inventory items", result.CreatedCount)
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf(" with %d errors", len(result.Errors))
	}
	httputil.Message(w, http.StatusCreated, msg, result)
}

// List lists batches with filters and pagination
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := batchFilter(r)
	filter.Page, filter.Limit = pagination(r)

	batches, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, map[string]interface{}{
		"inventory": batches,
	}, httputil.NewMeta(filter.Page, filter.Limit, total))
}

// Get gets a batch by ID
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"inventory": batch})
}

// GetByPadBatchID gets a batch by its pad batch id. The id contains slashes
// and arrives URL-escaped.
func (h *InventoryHandler) GetByPadBatchID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	padBatchID, err := url.PathUnescape(raw)
	if err != nil {
		httputil.Error(w, apperrors.BadRequest("invalid batch id"))
		return
	}

	batch, err := h.service.GetByPadBatchID(r.Context(), padBatchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"inventory": batch})
}

// Update changes the mutable metadata of a batch
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		httputil.Error(w, err)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		httputil.Error(w, apperrors.BadRequest("invalid JSON body"))
		return
	}
	if err := rejectReadOnly(fields); err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.UpdateBatchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		httputil.Error(w, apperrors.BadRequest("invalid JSON body"))
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Inventory updated successfully", map[string]interface{}{
		"inventory": batch,
	})
}

// Delete deletes a batch without distribution history
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Inventory item deleted successfully", nil)
}

func rejectReadOnly(fields map[string]json.RawMessage) error {
	var sent []string
	for _, name := range readOnlyFields {
		if _, ok := fields[name]; ok {
			sent = append(sent, name)
		}
	}
	if len(sent) == 0 {
		return nil
	}

	sort.Strings(sent)
	details := make(map[string]string, len(sent))
	for _, name := range sent {
		details[name] = "cannot be updated"
	}
	return apperrors.BadRequest("cannot update read-only fields: " + strings.Join(sent, ", ")).WithDetails(details)
}

func batchFilter(r *http.Request) domain.BatchFilter {
	q := r.URL.Query()
	return domain.BatchFilter{
		Status:          domain.Status(q.Get("status")),
		BrandType:       domain.BrandType(q.Get("brandType")),
		StorageLocation: domain.StorageLocation(q.Get("storageLocation")),
		IsLowStock:      httputil.QueryBool(r, "isLowStock"),
		Search:          strings.TrimSpace(q.Get("search")),
	}
}

func pagination(r *http.Request) (int, int) {
	return service.NormalizePage(httputil.QueryInt(r, "page", 1), httputil.QueryInt(r, "limit", 10))
}
