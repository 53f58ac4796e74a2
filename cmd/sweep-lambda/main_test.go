package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/api/router"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	t.Setenv("ADMIN_JWT_SECRET", "")
	_, err := loadConfig()
	assert.Error(t, err)

	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com/")
	_, err = loadConfig()
	assert.Error(t, err)

	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("UPSTREAM_TIMEOUT", "10s")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.upstreamBaseURL)
	assert.Equal(t, 10*time.Second, cfg.upstreamTimeout)

	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestHandleCallsEverySweepWithToken(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		_, _ = w.Write([]byte(`{"sent":1}`))
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second, jwtSecret: "secret"}
	err := handle(context.Background(), cfg, upstream.Client(), events.CloudWatchEvent{ID: "evt-1"}, logging.New("error"))
	require.NoError(t, err)
	assert.Equal(t, sweepPaths, paths)
}

func TestHandleContinuesAfterFailure(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/admin/reminders/sweep" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second, jwtSecret: "secret"}
	err := handle(context.Background(), cfg, upstream.Client(), events.CloudWatchEvent{}, logging.New("error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/admin/reminders/sweep")
	assert.Equal(t, 2, calls)
}

func TestSignedTokenPassesAdminAuth(t *testing.T) {
	handler := router.New(&router.Config{
		Logger:          logging.New("error"),
		AdminAuthSecret: "secret",
	})
	token, err := signToken("secret", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/costs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.NotEqual(t, http.StatusUnauthorized, rr.Code)
}
