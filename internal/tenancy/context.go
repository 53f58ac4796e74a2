package tenancy

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type ctxKey string

const orgKey ctxKey = "leadconv.org_id"

// OrgHeader carries the organization id on API requests that are not
// nested under /orgs/{orgID}.
const OrgHeader = "X-Org-ID"

// WithOrgID stores the org id in context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(orgKey)
	if val == nil {
		return "", false
	}
	orgID, ok := val.(string)
	return orgID, ok && orgID != ""
}

// Middleware resolves the org id from the {orgID} route parameter, falling
// back to the X-Org-ID header, and rejects requests that carry neither.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
		if orgID == "" {
			orgID = strings.TrimSpace(r.Header.Get(OrgHeader))
		}
		if orgID == "" {
			http.Error(w, "missing org id", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOrgID(r.Context(), orgID)))
	})
}
