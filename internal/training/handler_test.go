package training

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/admin/orgs/{orgID}", func(r chi.Router) {
		r.Use(tenancy.Middleware)
		h.Routes(r)
	})
	return r
}

func TestHandlerCreateAndList(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(NewHandler(store, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/orgs/org-1/training",
		strings.NewReader(`{"data_type":"sales_script","content":"Greet by name"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "org-1", created.OrgID)
	assert.Equal(t, 1, created.Version)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/training", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Greet by name")
}

func TestHandlerKnowledge(t *testing.T) {
	kb := &fakeKnowledge{}
	router := newTestRouter(NewHandler(&fakeStore{}, kb, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/orgs/org-1/knowledge",
		strings.NewReader(`{"entries":["We close at 6pm"]}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/knowledge", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We close at 6pm")
}

func TestHandlerRejectsBadBody(t *testing.T) {
	router := newTestRouter(NewHandler(&fakeStore{}, nil, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/orgs/org-1/training", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
