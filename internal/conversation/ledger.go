package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// CostRecord captures the cost of one model call, successful or not.
type CostRecord struct {
	ConversationID   string    `json:"conversation_id" dynamodbav:"conversation_id"`
	OrgID            string    `json:"organization_id" dynamodbav:"organization_id"`
	Model            string    `json:"model" dynamodbav:"model"`
	InputTokens      int       `json:"input_tokens" dynamodbav:"input_tokens"`
	OutputTokens     int       `json:"output_tokens" dynamodbav:"output_tokens"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd" dynamodbav:"estimated_cost_usd"`
	Success          bool      `json:"success" dynamodbav:"success"`
	Error            string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	LatencyMS        int64     `json:"latency_ms" dynamodbav:"latency_ms"`
	Timestamp        time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// CostRecorder receives a record for every model call.
type CostRecorder interface {
	Record(ctx context.Context, rec CostRecord)
}

// CostSink mirrors records somewhere durable or observable.
type CostSink interface {
	RecordCost(ctx context.Context, rec CostRecord) error
}

// CostReport aggregates the ledger.
type CostReport struct {
	TotalCalls        int     `json:"total_calls"`
	FailedCalls       int     `json:"failed_calls"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	CostPerHourUSD    float64 `json:"cost_per_hour_usd"`
	CallsLast24h      int     `json:"calls_last_24h"`
	CostLast24hUSD    float64 `json:"cost_last_24h_usd"`
	AvgCostPerCallUSD float64 `json:"avg_cost_per_call_usd"`
}

const reportWindow = 24 * time.Hour

// CostLedger keeps running totals plus a 24h window of records. It is safe
// for concurrent use.
type CostLedger struct {
	mu     sync.Mutex
	sinks  []CostSink
	logger *logging.Logger

	totalCalls  int
	failedCalls int
	totalCost   float64
	first, last time.Time
	window      []CostRecord
}

func NewCostLedger(logger *logging.Logger, sinks ...CostSink) *CostLedger {
	if logger == nil {
		logger = logging.Default()
	}
	return &CostLedger{logger: logger, sinks: sinks}
}

// Record adds rec to the ledger and forwards it to every sink. Sink errors
// are logged.
func (l *CostLedger) Record(ctx context.Context, rec CostRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.totalCalls++
	if !rec.Success {
		l.failedCalls++
	}
	l.totalCost += rec.EstimatedCostUSD
	if l.first.IsZero() || rec.Timestamp.Before(l.first) {
		l.first = rec.Timestamp
	}
	if rec.Timestamp.After(l.last) {
		l.last = rec.Timestamp
	}
	l.window = append(l.window, rec)
	l.prune(l.last)
	l.mu.Unlock()

	for _, sink := range l.sinks {
		if err := sink.RecordCost(ctx, rec); err != nil {
			l.logger.Warn("cost sink failed", "error", err, "conversation_id", rec.ConversationID)
		}
	}
}

// Report summarises everything recorded so far as of now.
func (l *CostLedger) Report(now time.Time) CostReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := CostReport{
		TotalCalls:   l.totalCalls,
		FailedCalls:  l.failedCalls,
		TotalCostUSD: l.totalCost,
	}
	if l.totalCalls == 0 {
		return r
	}
	r.AvgCostPerCallUSD = l.totalCost / float64(l.totalCalls)

	hours := l.last.Sub(l.first).Hours()
	if hours < 1 {
		hours = 1
	}
	r.CostPerHourUSD = l.totalCost / hours

	cutoff := now.Add(-reportWindow)
	for _, rec := range l.window {
		if rec.Timestamp.After(cutoff) && !rec.Timestamp.After(now) {
			r.CallsLast24h++
			r.CostLast24hUSD += rec.EstimatedCostUSD
		}
	}
	return r
}

func (l *CostLedger) prune(now time.Time) {
	cutoff := now.Add(-reportWindow)
	i := 0
	for i < len(l.window) && !l.window[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// CompletionObserver receives per-call metrics.
type CompletionObserver interface {
	ObserveCompletion(model, status string, inputTokens, outputTokens int, costUSD, latencySeconds float64)
}

type observerSink struct {
	obs CompletionObserver
}

// NewMetricsSink adapts a CompletionObserver into a CostSink.
func NewMetricsSink(obs CompletionObserver) CostSink {
	return observerSink{obs: obs}
}

func (s observerSink) RecordCost(_ context.Context, rec CostRecord) error {
	if s.obs == nil {
		return nil
	}
	status := "success"
	if !rec.Success {
		status = "error"
	}
	s.obs.ObserveCompletion(rec.Model, status, rec.InputTokens, rec.OutputTokens, rec.EstimatedCostUSD, float64(rec.LatencyMS)/1000)
	return nil
}
