package callinsights

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

	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
)

type memoryStore struct {
	items []Transcript
}

func (m *memoryStore) ListRanked(ctx context.Context, orgID string, limit int) ([]Transcript, error) {
	var out []Transcript
	for _, t := range m.items {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return Top(out, limit), nil
}

func (m *memoryStore) Create(ctx context.Context, orgID string, req CreateTranscriptRequest) (*Transcript, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t := Transcript{
		ID:            "c-" + string(rune('0'+len(m.items))),
		OrgID:         orgID,
		RawTranscript: req.RawTranscript,
		Sentiment:     req.Sentiment,
		Insights:      req.Insights,
		CreatedAt:     time.Date(2025, 1, 1, 0, len(m.items), 0, 0, time.UTC),
	}
	m.items = append(m.items, t)
	return &t, nil
}

func TestHandlerIngestAndSummarize(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, NewArchive(nil, "", nil), nil)
	r := chi.NewRouter()
	r.Route("/admin/orgs/{orgID}", func(r chi.Router) {
		r.Use(tenancy.Middleware)
		NewHandler(svc, nil).Routes(r)
	})

	for _, body := range []string{
		`{"raw_transcript":"Loved the tour, booked in","sentiment":"positive"}`,
		`{"raw_transcript":"Not interested","sentiment":"negative"}`,
		`{"raw_transcript":"Signed up for the trial","sentiment":"positive"}`,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/orgs/org-1/transcripts", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/transcripts/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var s Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	assert.Equal(t, 3, s.TotalCalls)
	assert.Equal(t, 67, s.SuccessRate)
	require.Len(t, s.Snippets, 2)
	assert.Equal(t, "Signed up for the trial", s.Snippets[0].Excerpt)
}

func TestHandlerRejectsInvalidSentiment(t *testing.T) {
	svc := NewService(&memoryStore{}, nil, nil)
	r := chi.NewRouter()
	r.With(tenancy.Middleware).Post("/admin/orgs/{orgID}/transcripts", NewHandler(svc, nil).Create)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/orgs/org-1/transcripts",
		strings.NewReader(`{"raw_transcript":"hi","sentiment":"great"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
