package conversation

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var tracer = otel.Tracer("leadconv.internal.conversation")

// InvokeRequest is one inbound turn to answer.
type InvokeRequest struct {
	ConversationID string
	OrgID          string
	SystemPrompt   string
	History        []Message
	Inbound        string
}

// Completion is the model's answer plus the decisions derived from it.
type Completion struct {
	Reply            string     `json:"reply"`
	ShouldBookCall   bool       `json:"should_book_call"`
	LeadQualified    bool       `json:"lead_qualified"`
	SuggestedActions []string   `json:"suggested_actions"`
	Usage            TokenUsage `json:"usage"`
	CostUSD          float64    `json:"cost_usd"`
	Model            string     `json:"model"`
}

// InvokerConfig holds model call settings.
type InvokerConfig struct {
	Model             string
	MaxTokens         int32
	Temperature       float32
	Timeout           time.Duration
	Pricing           Pricing
	MaxCostPerCallUSD float64
}

// Invoker calls the model and records the cost of every call.
type Invoker struct {
	client LLMClient
	ledger CostRecorder
	cfg    InvokerConfig
	logger *logging.Logger
	now    func() time.Time
}

func NewInvoker(client LLMClient, ledger CostRecorder, cfg InvokerConfig, logger *logging.Logger) *Invoker {
	if client == nil {
		panic("conversation: llm client required")
	}
	if ledger == nil {
		panic("conversation: cost recorder required")
	}
	if cfg.MaxTokens <= 0 || cfg.MaxTokens > DefaultMaxReplyTokens {
		cfg.MaxTokens = DefaultMaxReplyTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Pricing == (Pricing{}) {
		cfg.Pricing = DefaultPricing
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Invoker{client: client, ledger: ledger, cfg: cfg, logger: logger, now: time.Now}
}

// Invoke sends the prompt, trimmed history and inbound text to the model.
// Failures are recorded with zero output tokens and returned as provider
// errors.
func (i *Invoker) Invoke(ctx context.Context, req InvokeRequest) (*Completion, error) {
	ctx, span := tracer.Start(ctx, "conversation.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("org_id", req.OrgID),
		attribute.String("conversation_id", req.ConversationID),
		attribute.String("model", i.cfg.Model),
	)

	history := req.History
	if len(history) > DefaultHistorySize {
		history = history[len(history)-DefaultHistorySize:]
	}
	messages := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.chatRole(), Content: m.Content})
	}
	if inbound := strings.TrimSpace(req.Inbound); inbound != "" {
		messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: inbound})
	}

	callCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	start := i.now()
	resp, err := i.client.Complete(callCtx, LLMRequest{
		Model:       i.cfg.Model,
		System:      []string{req.SystemPrompt},
		Messages:    messages,
		MaxTokens:   i.cfg.MaxTokens,
		Temperature: i.cfg.Temperature,
	})
	latency := i.now().Sub(start)

	if err != nil {
		inputTokens := estimateInputTokens(req.SystemPrompt, messages)
		i.ledger.Record(ctx, CostRecord{
			ConversationID:   req.ConversationID,
			OrgID:            req.OrgID,
			Model:            i.cfg.Model,
			InputTokens:      inputTokens,
			OutputTokens:     0,
			EstimatedCostUSD: i.cfg.Pricing.Cost(inputTokens, 0),
			Success:          false,
			Error:            err.Error(),
			LatencyMS:        latency.Milliseconds(),
			Timestamp:        i.now().UTC(),
		})
		span.RecordError(err)
		i.logger.Error("llm call failed", "error", err, "org_id", req.OrgID, "conversation_id", req.ConversationID)
		return nil, apperr.Provider("conversation.invoke", err)
	}

	usage := resp.Usage
	if usage.InputTokens == 0 {
		usage.InputTokens = int32(estimateInputTokens(req.SystemPrompt, messages))
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = int32(EstimateTokens(resp.Text))
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	cost := i.cfg.Pricing.Cost(int(usage.InputTokens), int(usage.OutputTokens))

	model := resp.Model
	if model == "" {
		model = i.cfg.Model
	}
	i.ledger.Record(ctx, CostRecord{
		ConversationID:   req.ConversationID,
		OrgID:            req.OrgID,
		Model:            model,
		InputTokens:      int(usage.InputTokens),
		OutputTokens:     int(usage.OutputTokens),
		EstimatedCostUSD: cost,
		Success:          true,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        i.now().UTC(),
	})
	if i.cfg.MaxCostPerCallUSD > 0 && cost > i.cfg.MaxCostPerCallUSD {
		i.logger.Warn("llm call exceeded cost ceiling",
			"cost_usd", cost,
			"ceiling_usd", i.cfg.MaxCostPerCallUSD,
			"input_tokens", usage.InputTokens,
			"org_id", req.OrgID,
		)
	}

	reply, shouldBook, qualified := detectIntent(resp.Text, len(req.History))
	span.SetAttributes(
		attribute.Int("input_tokens", int(usage.InputTokens)),
		attribute.Int("output_tokens", int(usage.OutputTokens)),
		attribute.Bool("should_book_call", shouldBook),
		attribute.Bool("lead_qualified", qualified),
	)
	return &Completion{
		Reply:            reply,
		ShouldBookCall:   shouldBook,
		LeadQualified:    qualified,
		SuggestedActions: suggestedActions(shouldBook, qualified),
		Usage:            usage,
		CostUSD:          cost,
		Model:            model,
	}, nil
}

func estimateInputTokens(system string, messages []ChatMessage) int {
	total := len(system)
	for _, m := range messages {
		total += len(m.Content)
	}
	return (total + 3) / 4
}
