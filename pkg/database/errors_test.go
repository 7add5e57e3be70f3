package database

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "duplicate batch id",
			err:        &pq.Error{Code: "23505", Constraint: "inventory_batches_pad_batch_id_key"},
			wantCode:   "DUPLICATE_KEY",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "negative stock check",
			err:        &pq.Error{Code: "23514", Constraint: "inventory_batches_current_stock_non_negative"},
			wantCode:   "VALIDATION_ERROR",
			wantStatus: http.StatusBadRequest,
			wantDetail: "currentStock",
		},
		{
			name:       "distribution history blocks delete",
			err:        &pq.Error{Code: "23503", Constraint: "distribution_records_batch_id_fkey"},
			wantCode:   "BAD_REQUEST",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not null",
			err:        &pq.Error{Code: "23502", Column: "brand_type"},
			wantCode:   "VALIDATION_ERROR",
			wantStatus: http.StatusBadRequest,
			wantDetail: "brand_type",
		},
		{
			name:       "malformed uuid key",
			err:        &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`},
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wrapped error still mapped",
			err:        fmt.Errorf("insert batch: %w", &pq.Error{Code: "23505", Constraint: "inventory_batches_pad_batch_id_key"}),
			wantCode:   "DUPLICATE_KEY",
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPQError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			if tt.wantDetail != "" {
				assert.Contains(t, got.Details, tt.wantDetail)
			}
		})
	}
}

func TestMapPQError_Unmapped(t *testing.T) {
	assert.Nil(t, MapPQError(fmt.Errorf("plain")))
	assert.Nil(t, MapPQError(&pq.Error{Code: "42P01"}))
}

func TestMapError_PassesThrough(t *testing.T) {
	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, MapError(plain))
	assert.Nil(t, MapError(nil))

	mapped := MapError(&pq.Error{Code: "23505", Constraint: "inventory_batches_pad_batch_id_key"})
	assert.True(t, apperrors.Is(mapped, apperrors.ErrDuplicateKey))
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "inventory_batches_pad_batch_id_key"}
	assert.True(t, IsUniqueViolation(err, "inventory_batches_pad_batch_id_key"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "students_pkey"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23514"}, ""))
}

func TestIsInvalidText(t *testing.T) {
	assert.True(t, IsInvalidText(&pq.Error{Code: "22P02"}))
	assert.True(t, IsInvalidText(fmt.Errorf("get batch: %w", &pq.Error{Code: "22P02"})))
	assert.False(t, IsInvalidText(&pq.Error{Code: "23505"}))
	assert.False(t, IsInvalidText(fmt.Errorf("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"})))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}
