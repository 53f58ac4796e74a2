package tenancy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestWithOrgIDAndOrgIDFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithOrgID(ctx, "org-123")

	got, ok := OrgIDFromContext(ctx)
	if !ok {
		t.Fatalf("expected org id to be present")
	}
	if got != "org-123" {
		t.Fatalf("expected org-123, got %s", got)
	}
}

func TestOrgIDFromContext_EmptyOrMissing(t *testing.T) {
	ctx := context.Background()
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatalf("expected missing org id to return false")
	}

	ctx = context.WithValue(ctx, orgKey, 42)
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatalf("expected non-string org id to return false")
	}

	ctx = WithOrgID(context.Background(), "")
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatalf("expected empty org id to return false")
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OrgIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	r := chi.NewRouter()
	r.With(Middleware).Get("/orgs/{orgID}/leads", next)
	r.With(Middleware).Get("/leads", next)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orgs/org-a/leads", nil))
	if rec.Code != http.StatusNoContent || seen != "org-a" {
		t.Fatalf("expected org from route, got code=%d org=%q", rec.Code, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set(OrgHeader, "org-b")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen != "org-b" {
		t.Fatalf("expected org from header, got code=%d org=%q", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without org, got %d", rec.Code)
	}
}
