package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) map[string]string { return map[string]string{"status": "up"} }

func down(context.Context) map[string]string {
	return map[string]string{"status": "down", "error": "connection refused"}
}

func TestHealth_AllUp(t *testing.T) {
	rec := httptest.NewRecorder()
	Health("inventory-service", map[string]HealthCheck{"database": up, "rabbitmq": up}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, StatusSuccess, resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "inventory-service", data["service"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	rec := httptest.NewRecorder()
	Health("inventory-service", map[string]HealthCheck{"database": down, "rabbitmq": up}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, StatusError, resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "unhealthy", data["status"])
	database, ok := data["database"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "connection refused", database["error"])
}

func TestHealth_NoChecks(t *testing.T) {
	rec := httptest.NewRecorder()
	Health("migrate", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
