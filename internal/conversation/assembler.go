package conversation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/callinsights"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/internal/training"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// ConversationContext is everything a prompt is built from.
type ConversationContext struct {
	Lead           *leads.Lead               `json:"lead"`
	Org            *orgs.Organization        `json:"organization"`
	ConversationID string                    `json:"conversation_id,omitempty"`
	Messages       []Message                 `json:"messages"`
	Training       []training.Entry          `json:"training"`
	Knowledge      []string                  `json:"knowledge"`
	Transcripts    []callinsights.Transcript `json:"transcripts"`
	Insights       callinsights.Summary      `json:"insights"`
}

// TrainingLoader supplies an organization's training material.
type TrainingLoader interface {
	Load(ctx context.Context, orgID string) (training.Material, error)
}

// TranscriptSource supplies ranked call transcripts.
type TranscriptSource interface {
	ListRanked(ctx context.Context, orgID string, limit int) ([]callinsights.Transcript, error)
}

// AssemblerConfig bounds the context size.
type AssemblerConfig struct {
	HistorySize     int
	TranscriptLimit int
	Snippets        int
}

// Assembler gathers a ConversationContext. It never writes.
type Assembler struct {
	leads       leads.Repository
	orgs        orgs.Repository
	store       Store
	training    TrainingLoader
	transcripts TranscriptSource
	cfg         AssemblerConfig
	logger      *logging.Logger
}

func NewAssembler(leadRepo leads.Repository, orgRepo orgs.Repository, store Store, trainingLoader TrainingLoader, transcripts TranscriptSource, cfg AssemblerConfig, logger *logging.Logger) *Assembler {
	if leadRepo == nil || orgRepo == nil || store == nil {
		panic("conversation: assembler requires lead, org and conversation stores")
	}
	if cfg.HistorySize <= 0 || cfg.HistorySize > DefaultHistorySize {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.TranscriptLimit <= 0 || cfg.TranscriptLimit > callinsights.MaxRanked {
		cfg.TranscriptLimit = callinsights.MaxRanked
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Assembler{
		leads:       leadRepo,
		orgs:        orgRepo,
		store:       store,
		training:    trainingLoader,
		transcripts: transcripts,
		cfg:         cfg,
		logger:      logger,
	}
}

// Assemble loads the lead, its organization, recent history, training
// material and ranked call history. A missing lead or organization is a
// NotFound error; a lead with no conversation yet has empty history.
func (a *Assembler) Assemble(ctx context.Context, orgID, leadID string) (*ConversationContext, error) {
	ctx, span := tracer.Start(ctx, "conversation.assemble")
	defer span.End()
	span.SetAttributes(attribute.String("org_id", orgID), attribute.String("lead_id", leadID))

	lead, err := a.leads.GetByID(ctx, orgID, leadID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	org, err := a.orgs.GetByID(ctx, orgID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	cc := &ConversationContext{Lead: lead, Org: org}

	conv, err := a.store.GetForLead(ctx, orgID, leadID)
	switch {
	case err == nil:
		cc.ConversationID = conv.ID
		msgs, err := a.store.RecentMessages(ctx, conv.ID, a.cfg.HistorySize)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		cc.Messages = msgs
	case apperr.Is(err, apperr.KindNotFound):
	default:
		span.RecordError(err)
		return nil, err
	}

	if a.training != nil {
		material, err := a.training.Load(ctx, orgID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		cc.Training = material.Entries
		cc.Knowledge = material.Knowledge
	}

	if a.transcripts != nil {
		list, err := a.transcripts.ListRanked(ctx, orgID, a.cfg.TranscriptLimit)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		cc.Transcripts = callinsights.Top(list, a.cfg.TranscriptLimit)
	}
	cc.Insights = callinsights.Summarize(cc.Transcripts, callinsights.Options{Snippets: a.cfg.Snippets})

	span.SetAttributes(
		attribute.Int("messages", len(cc.Messages)),
		attribute.Int("training_entries", len(cc.Training)),
		attribute.Int("transcripts", len(cc.Transcripts)),
	)
	a.logger.Debug("conversation context assembled",
		"org_id", orgID,
		"lead_id", leadID,
		"messages", len(cc.Messages),
		"training_entries", len(cc.Training),
		"transcripts", len(cc.Transcripts),
	)
	return cc, nil
}
