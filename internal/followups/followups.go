// Package followups nudges leads who went quiet after the assistant's last
// message.
package followups

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Schofield90/whatsapp-lead-system/internal/conversation"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var tracer = otel.Tracer("leadconv.internal.followups")

// MetadataAttempts is the lead metadata key counting follow-ups sent.
const MetadataAttempts = "follow_up_attempts"

const (
	DefaultAfter       = 24 * time.Hour
	DefaultMaxAttempts = 2
	DefaultBatchSize   = 100
)

// ConversationFinder lists conversations where the lead has not replied.
type ConversationFinder interface {
	ListAwaitingReply(ctx context.Context, before time.Time, limit int) ([]conversation.Conversation, error)
}

// LeadMessenger sends a message to a lead and records it in the
// conversation.
type LeadMessenger interface {
	SendToLead(ctx context.Context, lead *leads.Lead, text string) error
}

// Result summarizes one sweep.
type Result struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Config tunes the sweep.
type Config struct {
	After       time.Duration
	MaxAttempts int
	BatchSize   int
}

// Sweeper sends follow-up nudges to contacted leads.
type Sweeper struct {
	finder    ConversationFinder
	leads     leads.Repository
	orgs      orgs.Repository
	messenger LeadMessenger
	cfg       Config
	logger    *logging.Logger
}

func NewSweeper(finder ConversationFinder, leadRepo leads.Repository, orgRepo orgs.Repository, messenger LeadMessenger, cfg Config, logger *logging.Logger) *Sweeper {
	if finder == nil || leadRepo == nil || orgRepo == nil || messenger == nil {
		panic("followups: finder, leads, orgs and messenger are required")
	}
	if cfg.After <= 0 {
		cfg.After = DefaultAfter
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		finder:    finder,
		leads:     leadRepo,
		orgs:      orgRepo,
		messenger: messenger,
		cfg:       cfg,
		logger:    logger.WithComponent("followups"),
	}
}

// Sweep nudges every lead whose last outbound message is older than the
// configured delay. Only contacted leads are nudged, each at most
// MaxAttempts times. A nudge is itself outbound, so the next one waits
// another full delay.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Result, error) {
	ctx, span := tracer.Start(ctx, "followups.sweep")
	defer span.End()

	convs, err := s.finder.ListAwaitingReply(ctx, now.Add(-s.cfg.After), s.cfg.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("followups: list candidates: %w", err)
	}
	res := Result{Candidates: len(convs)}
	span.SetAttributes(attribute.Int("leadconv.followups.candidates", len(convs)))

	for _, c := range convs {
		switch s.nudge(ctx, c) {
		case outcomeSent:
			res.Sent++
		case outcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	s.logger.Info("follow-up sweep finished",
		"candidates", res.Candidates,
		"sent", res.Sent,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

func (s *Sweeper) nudge(ctx context.Context, c conversation.Conversation) outcome {
	lead, err := s.leads.GetByID(ctx, c.OrgID, c.LeadID)
	if err != nil {
		s.logger.Error("follow-up lead lookup failed", "error", err, "org_id", c.OrgID, "lead_id", c.LeadID)
		return outcomeFailed
	}
	if lead.Status != leads.StatusContacted {
		return outcomeSkipped
	}
	attempts := Attempts(lead)
	if attempts >= s.cfg.MaxAttempts {
		return outcomeSkipped
	}
	org, err := s.orgs.GetByID(ctx, c.OrgID)
	if err != nil {
		s.logger.Error("follow-up org lookup failed", "error", err, "org_id", c.OrgID)
		return outcomeFailed
	}

	// Counted before sending: a failed send still uses up an attempt.
	if err := s.leads.SetMetadata(ctx, lead.OrgID, lead.ID, MetadataAttempts, strconv.Itoa(attempts+1)); err != nil {
		s.logger.Error("follow-up attempt not recorded", "error", err, "lead_id", lead.ID)
		return outcomeFailed
	}
	if err := s.messenger.SendToLead(ctx, lead, Message(attempts, lead, org)); err != nil {
		s.logger.Error("follow-up send failed", "error", err, "org_id", lead.OrgID, "lead_id", lead.ID)
		return outcomeFailed
	}
	s.logger.Info("follow-up sent", "org_id", lead.OrgID, "lead_id", lead.ID, "attempt", attempts+1)
	return outcomeSent
}

// Attempts returns how many follow-ups the lead has already received.
func Attempts(lead *leads.Lead) int {
	n, err := strconv.Atoi(lead.Metadata[MetadataAttempts])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

var templates = []string{
	"Hi %s, just checking in from %s. Do you have any questions I can help with?",
	"Hi %s, it's %s again. Would a quick call this week suit you? Just reply with a day and time that works.",
}

// Message renders the nudge for the given zero-based attempt. Attempts past
// the last template reuse it.
func Message(attempt int, lead *leads.Lead, org *orgs.Organization) string {
	if attempt >= len(templates) {
		attempt = len(templates) - 1
	}
	if attempt < 0 {
		attempt = 0
	}
	return fmt.Sprintf(templates[attempt], lead.FirstName(), org.Name)
}
