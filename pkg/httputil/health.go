package httputil

import (
	"context"
	"net/http"
)

// HealthCheck reports one dependency in the shape DB.Health and
// RabbitMQ.Health return. Any "status" other than "up" counts as down.
type HealthCheck func(ctx context.Context) map[string]string

// Health answers 200 with status "healthy" when every check is up and 503
// with status "unhealthy" otherwise. Each check's report is included under
// its name.
func Health(service string, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"service": service}
		healthy := true
		for name, check := range checks {
			report := check(r.Context())
			if report["status"] != "up" {
				healthy = false
			}
			body[name] = report
		}

		if !healthy {
			body["status"] = "unhealthy"
			JSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "healthy"
		JSON(w, http.StatusOK, body)
	}
}
