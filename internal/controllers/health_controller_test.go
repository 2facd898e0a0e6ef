package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"zubi/internal/controllers"
	"zubi/internal/mocks"
	"zubi/internal/services"
)

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name           string
		startWorker    bool
		checks         map[string]controllers.HealthCheck
		expectedStatus int
		expectedBody   string
	}{
		{"healthy", true, map[string]controllers.HealthCheck{"redis": ok}, http.StatusOK, `"redis":"ok"`},
		{"dependency down", true, map[string]controllers.HealthCheck{"redis": down}, http.StatusServiceUnavailable, "connection refused"},
		{"worker stopped", false, nil, http.StatusServiceUnavailable, `"running":false`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := services.NewReplyWorker(new(mocks.MockMessageProcessor), 1, 1, zerolog.Nop())
			if tt.startWorker {
				worker.Start()
				defer worker.Stop()
			}
			controller := controllers.NewHealthController(worker, tt.checks)
			router := setupTestRouter()
			router.GET("/health", controller.Health)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}
