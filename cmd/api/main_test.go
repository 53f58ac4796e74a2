package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/observability/metrics"
)

func TestSetupMetricsExposesRegisteredCollectors(t *testing.T) {
	registry, handler := setupMetrics()
	require.NotNil(t, handler)

	llm := metrics.NewLLMMetrics(registry)
	llm.ObserveCompletion("claude-3-5-haiku-20241022", "success", 1200, 80, 0.0013, 0.9)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "leadconv_llm_requests_total")
	assert.Contains(t, body, "go_goroutines")
}
