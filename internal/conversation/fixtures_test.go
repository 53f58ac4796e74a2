package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/callinsights"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/internal/training"
)

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	usage    TokenUsage
	err      error
	requests []LLMRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.reply, Usage: f.usage, Model: "test-model"}, nil
}

type sentMessage struct {
	phone string
	text  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(ctx context.Context, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMessage{phone: phone, text: text})
	return "wamid-" + phone, nil
}

type recordingCosts struct {
	mu      sync.Mutex
	records []CostRecord
}

func (r *recordingCosts) Record(ctx context.Context, rec CostRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

type staticTraining struct {
	material training.Material
	err      error
}

func (s staticTraining) Load(ctx context.Context, orgID string) (training.Material, error) {
	return s.material, s.err
}

type staticTranscripts []callinsights.Transcript

func (s staticTranscripts) ListRanked(ctx context.Context, orgID string, limit int) ([]callinsights.Transcript, error) {
	return callinsights.Top(callinsights.Rank(s), limit), nil
}

var errBoom = errors.New("boom")

func testOrg() *orgs.Organization {
	return &orgs.Organization{
		ID:         "org-1",
		Name:       "Peak Fitness",
		OwnerName:  "Sam",
		OwnerPhone: "+447700900001",
		Timezone:   "Europe/London",
	}
}

func testTranscripts() staticTranscripts {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return staticTranscripts{
		{
			ID:            "t-1",
			OrgID:         "org-1",
			RawTranscript: "The lead loved the free trial session and booked straight away after we explained the coaching.",
			Sentiment:     callinsights.SentimentPositive,
			Insights: &callinsights.SalesInsights{
				Analysis:       "Trial offer closed the deal",
				SuccessFactors: []string{"Lead with the free trial"},
			},
			CreatedAt: base,
		},
		{
			ID:            "t-2",
			OrgID:         "org-1",
			RawTranscript: "Price objection was never handled and the caller hung up.",
			Sentiment:     callinsights.SentimentNegative,
			Insights:      &callinsights.SalesInsights{Improvements: []string{"Address price early"}},
			CreatedAt:     base.Add(time.Hour),
		},
	}
}

func testMaterial() training.Material {
	return training.Material{
		Entries: []training.Entry{
			{ID: "e-1", OrgID: "org-1", DataType: training.TypeBusinessInfo, Content: "Open 6am to 10pm. Memberships from £30 per month.", IsActive: true, Version: 1},
			{ID: "e-2", OrgID: "org-1", DataType: training.TypeSalesScript, Content: "Ask about goals, then offer a free consultation call.", IsActive: true, Version: 1},
		},
		Knowledge: []string{
			"Parking is free for members.",
			"Personal training sessions are 45 minutes.",
			"We run HIIT classes every weekday at 7am.",
			"Towels are provided.",
		},
	}
}

// testEnv wires a Service over in-memory stores.
type testEnv struct {
	leads     *leads.InMemoryRepository
	orgs      *orgs.InMemoryRepository
	store     *MemoryStore
	llm       *fakeLLM
	sender    *fakeSender
	costs     *recordingCosts
	assembler *Assembler
	service   *Service
}

func newTestEnv(booker Booker) *testEnv {
	env := &testEnv{
		leads:  leads.NewInMemoryRepository(),
		orgs:   orgs.NewInMemoryRepository(testOrg()),
		store:  NewMemoryStore(),
		llm:    &fakeLLM{reply: "Thanks for reaching out! What are you hoping to achieve?"},
		sender: &fakeSender{},
		costs:  &recordingCosts{},
	}
	env.assembler = NewAssembler(env.leads, env.orgs, env.store, staticTraining{material: testMaterial()}, testTranscripts(), AssemblerConfig{}, nil)
	invoker := NewInvoker(env.llm, env.costs, InvokerConfig{Model: "test-model", MaxCostPerCallUSD: 0.01}, nil)
	env.service = NewService(ServiceDeps{
		Leads:     env.leads,
		Store:     env.store,
		Assembler: env.assembler,
		Invoker:   invoker,
		Sender:    env.sender,
		Booker:    booker,
	})
	return env
}

func (env *testEnv) createLead(name, phone string) *leads.Lead {
	lead, err := env.leads.Create(context.Background(), &leads.CreateLeadRequest{
		OrgID:  "org-1",
		Name:   name,
		Phone:  phone,
		Source: "facebook",
	})
	if err != nil {
		panic(err)
	}
	return lead
}
