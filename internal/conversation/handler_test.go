package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
)

type captureDispatcher struct {
	msgs []messaging.InboundMessage
	err  error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, msg messaging.InboundMessage) error {
	d.msgs = append(d.msgs, msg)
	return d.err
}

func newHandlerRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/whatsapp", h.InboundWebhook)
	r.Get("/admin/costs", h.Costs)
	r.Route("/admin/orgs/{orgID}", func(r chi.Router) {
		r.Use(tenancy.Middleware)
		h.Routes(r)
	})
	return r
}

func testBuilders() map[Variant]PromptBuilder {
	return map[Variant]PromptBuilder{
		VariantFull:      NewFullPromptBuilder(DefaultPromptBudget(), nil),
		VariantOptimized: NewOptimizedPromptBuilder(DefaultPromptBudget(), nil),
	}
}

func TestInboundWebhook(t *testing.T) {
	d := &captureDispatcher{}
	router := newHandlerRouter(NewHandler(d, nil, nil, nil, nil, nil))

	body := `{"org_id":"org-1","from":"+447700900123","body":"What are your prices?","message_id":"wamid-1"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, d.msgs, 1)
	assert.Equal(t, "What are your prices?", d.msgs[0].Body)
	assert.False(t, d.msgs[0].ReceivedAt.IsZero())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(`{"org_id":"org-1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCostsEndpoint(t *testing.T) {
	ledger := NewCostLedger(nil)
	ledger.Record(context.Background(), CostRecord{EstimatedCostUSD: 0.004, Success: true, Timestamp: time.Now().UTC()})
	router := newHandlerRouter(NewHandler(&captureDispatcher{}, nil, nil, nil, ledger, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/costs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report CostReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, 1, report.TotalCalls)
	assert.InDelta(t, 0.004, report.TotalCostUSD, 1e-12)
}

func TestPreviewPrompt(t *testing.T) {
	env := newTestEnv(nil)
	lead := env.createLead("Jane Doe", "+447700900123")
	router := newHandlerRouter(NewHandler(env.service, env.assembler, env.store, testBuilders(), nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/leads/"+lead.ID+"/prompt", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp promptPreviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Prompts, 2)
	assert.Equal(t, VariantFull, resp.Prompts[0].Variant)
	assert.Less(t, len(resp.Prompts[1].Text), len(resp.Prompts[0].Text))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/leads/"+lead.ID+"/prompt?variant=optimized", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Prompts, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/leads/"+lead.ID+"/prompt?variant=huge", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/leads/missing/prompt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(nil)
	lead := env.createLead("Jane Doe", "+447700900123")
	_, err := env.service.HandleInbound(context.Background(), inbound("+447700900123", "Hello", "wamid-1"))
	require.NoError(t, err)
	router := newHandlerRouter(NewHandler(env.service, env.assembler, env.store, testBuilders(), nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/leads/"+lead.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"direction":"inbound"`)
}
