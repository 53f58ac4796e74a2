package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// ApologyReply is sent when the model cannot answer.
const ApologyReply = "Sorry, I'm having trouble responding right now. Please reply again in a moment."

// MetadataBookingOffered is set on a lead once the assistant has offered a call.
const MetadataBookingOffered = "booking_offered"

const sourceWhatsApp = "whatsapp"

// Booker hands a lead's message to the booking flow. handled reports
// whether reply should be sent instead of a model-generated answer.
type Booker interface {
	TryBook(ctx context.Context, orgID, leadID, conversationID, text string, offered bool) (reply string, handled bool, err error)
}

// Outcome describes what HandleInbound did with a message.
type Outcome struct {
	LeadID         string      `json:"lead_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Reply          string      `json:"reply,omitempty"`
	Completion     *Completion `json:"completion,omitempty"`
	BookingHandled bool        `json:"booking_handled"`
	Duplicate      bool        `json:"duplicate"`
	OptedOut       bool        `json:"opted_out"`
}

// ServiceDeps are the collaborators of a Service. Booker is optional.
type ServiceDeps struct {
	Leads     leads.Repository
	Store     Store
	Assembler *Assembler
	Prompts   PromptBuilder
	Invoker   *Invoker
	Sender    messaging.Sender
	Booker    Booker
	Logger    *logging.Logger
}

// Service runs the WhatsApp conversation loop for every organization.
type Service struct {
	leads     leads.Repository
	store     Store
	assembler *Assembler
	prompts   PromptBuilder
	invoker   *Invoker
	sender    messaging.Sender
	booker    Booker
	logger    *logging.Logger
}

var _ leads.Starter = (*Service)(nil)

func NewService(deps ServiceDeps) *Service {
	if deps.Leads == nil || deps.Store == nil || deps.Assembler == nil || deps.Invoker == nil || deps.Sender == nil {
		panic("conversation: service requires leads, store, assembler, invoker and sender")
	}
	if deps.Prompts == nil {
		deps.Prompts = NewOptimizedPromptBuilder(DefaultPromptBudget(), deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Service{
		leads:     deps.Leads,
		store:     deps.Store,
		assembler: deps.Assembler,
		prompts:   deps.Prompts,
		invoker:   deps.Invoker,
		sender:    deps.Sender,
		booker:    deps.Booker,
		logger:    deps.Logger.WithComponent("conversation"),
	}
}

// StartConversation opens the lead's conversation and sends the first
// message. firstMessage is whatever the lead wrote on the ad form, if anything.
func (s *Service) StartConversation(ctx context.Context, lead *leads.Lead, firstMessage string) error {
	ctx, span := tracer.Start(ctx, "conversation.start")
	defer span.End()
	span.SetAttributes(attribute.String("org_id", lead.OrgID), attribute.String("lead_id", lead.ID))

	conv, err := s.store.GetOrCreateForLead(ctx, lead.OrgID, lead.ID)
	if err != nil {
		return err
	}
	cc, err := s.assembler.Assemble(ctx, lead.OrgID, lead.ID)
	if err != nil {
		return err
	}

	inbound := strings.TrimSpace(firstMessage)
	if inbound != "" {
		if err := s.store.AppendMessage(ctx, &Message{
			ConversationID: conv.ID,
			Direction:      DirectionInbound,
			Content:        inbound,
		}); err != nil {
			return err
		}
	} else {
		inbound = fmt.Sprintf("(New enquiry from %s via %s. Send a short, friendly opening message.)", lead.Name, lead.Source)
	}

	reply, completion := s.generate(ctx, cc, conv.ID, inbound)
	if err := s.deliver(ctx, lead, conv.ID, reply); err != nil {
		return err
	}
	s.applyOutcome(ctx, lead, completion)
	return nil
}

// Dispatch satisfies the inbound dispatcher contract by handling msg inline.
func (s *Service) Dispatch(ctx context.Context, msg messaging.InboundMessage) error {
	_, err := s.HandleInbound(ctx, msg)
	return err
}

// HandleInbound stores a lead's message, produces a reply and sends it.
// Unknown phone numbers become new leads. A provider failure in the model
// call turns into an apology rather than an error.
func (s *Service) HandleInbound(ctx context.Context, msg messaging.InboundMessage) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "conversation.handle_inbound")
	defer span.End()
	span.SetAttributes(attribute.String("org_id", msg.OrgID))

	body := strings.TrimSpace(msg.Body)
	phone := leads.NormalizePhone(msg.From)
	if msg.OrgID == "" || phone == "" || body == "" {
		return nil, apperr.Validation("conversation.inbound", "org_id, from and body are required", nil)
	}

	if msg.ProviderMessageID != "" {
		seen, err := s.store.HasProviderMessage(ctx, msg.ProviderMessageID)
		if err != nil {
			return nil, err
		}
		if seen {
			s.logger.Info("duplicate inbound message skipped", "org_id", msg.OrgID, "message_id", msg.ProviderMessageID)
			return &Outcome{Duplicate: true}, nil
		}
	}

	lead, err := s.findOrCreateLead(ctx, msg.OrgID, phone, msg.SenderName)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("lead_id", lead.ID))

	conv, err := s.store.GetOrCreateForLead(ctx, lead.OrgID, lead.ID)
	if err != nil {
		return nil, err
	}
	out := &Outcome{LeadID: lead.ID, ConversationID: conv.ID}

	// History is read before the inbound message is stored; the invoker
	// appends it as the final user turn.
	cc, err := s.assembler.Assemble(ctx, lead.OrgID, lead.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendMessage(ctx, &Message{
		ConversationID:    conv.ID,
		Direction:         DirectionInbound,
		Content:           body,
		ProviderMessageID: msg.ProviderMessageID,
	}); err != nil {
		return nil, err
	}

	if messaging.IsOptOut(body) {
		if err := s.leads.UpdateStatus(ctx, lead.OrgID, lead.ID, leads.StatusLost); err != nil {
			return nil, err
		}
		s.logger.Info("lead opted out", "org_id", lead.OrgID, "lead_id", lead.ID)
		out.OptedOut = true
		return out, nil
	}
	if lead.Status == leads.StatusLost {
		s.logger.Info("message from lost lead stored without reply", "org_id", lead.OrgID, "lead_id", lead.ID)
		return out, nil
	}

	if s.booker != nil {
		offered := lead.Metadata[MetadataBookingOffered] == "true"
		reply, handled, err := s.booker.TryBook(ctx, lead.OrgID, lead.ID, conv.ID, body, offered)
		if err != nil {
			s.logger.Error("booking attempt failed", "error", err, "org_id", lead.OrgID, "lead_id", lead.ID)
		}
		if handled {
			out.Reply = reply
			out.BookingHandled = true
			if err := s.deliver(ctx, lead, conv.ID, reply); err != nil {
				return out, err
			}
			return out, nil
		}
	}

	reply, completion := s.generate(ctx, cc, conv.ID, body)
	out.Reply = reply
	out.Completion = completion
	if err := s.deliver(ctx, lead, conv.ID, reply); err != nil {
		return out, err
	}
	s.applyOutcome(ctx, lead, completion)
	return out, nil
}

// SendToLead sends a message outside the reply loop, such as a follow-up
// nudge, and records it in the lead's conversation.
func (s *Service) SendToLead(ctx context.Context, lead *leads.Lead, text string) error {
	conv, err := s.store.GetOrCreateForLead(ctx, lead.OrgID, lead.ID)
	if err != nil {
		return err
	}
	return s.deliver(ctx, lead, conv.ID, text)
}

func (s *Service) findOrCreateLead(ctx context.Context, orgID, phone, name string) (*leads.Lead, error) {
	lead, err := s.leads.GetByPhone(ctx, orgID, phone)
	if err == nil {
		return lead, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = phone
	}
	lead, err = s.leads.Create(ctx, &leads.CreateLeadRequest{
		OrgID:  orgID,
		Name:   name,
		Phone:  phone,
		Source: sourceWhatsApp,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("lead created from inbound message", "org_id", orgID, "lead_id", lead.ID)
	return lead, nil
}

// generate builds the prompt and calls the model. Any failure yields the
// apology reply and a nil completion.
func (s *Service) generate(ctx context.Context, cc *ConversationContext, conversationID, inbound string) (string, *Completion) {
	prompt, err := s.prompts.Build(cc)
	if err != nil {
		s.logger.Error("prompt build failed", "error", err, "conversation_id", conversationID)
		return ApologyReply, nil
	}
	completion, err := s.invoker.Invoke(ctx, InvokeRequest{
		ConversationID: conversationID,
		OrgID:          cc.Org.ID,
		SystemPrompt:   prompt.Text,
		History:        cc.Messages,
		Inbound:        inbound,
	})
	if err != nil {
		s.logger.Error("reply generation failed",
			"error", err,
			"org_id", cc.Org.ID,
			"lead_id", cc.Lead.ID,
			"conversation_id", conversationID,
			"prompt_variant", prompt.Variant,
			"prompt_tokens", prompt.EstimatedTokens,
		)
		return ApologyReply, nil
	}
	if strings.TrimSpace(completion.Reply) == "" {
		return ApologyReply, completion
	}
	return completion.Reply, completion
}

// deliver stores the outbound message and sends it.
func (s *Service) deliver(ctx context.Context, lead *leads.Lead, conversationID, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	providerID, sendErr := s.sender.SendMessage(sendCtx, lead.Phone, text)

	if err := s.store.AppendMessage(ctx, &Message{
		ConversationID:    conversationID,
		Direction:         DirectionOutbound,
		Content:           text,
		ProviderMessageID: providerID,
	}); err != nil {
		return err
	}
	if sendErr != nil {
		s.logger.Error("failed to send reply", "error", sendErr, "org_id", lead.OrgID, "lead_id", lead.ID)
		return apperr.Provider("conversation.send", sendErr)
	}
	return nil
}

func (s *Service) applyOutcome(ctx context.Context, lead *leads.Lead, completion *Completion) {
	target := leads.StatusContacted
	if completion != nil && completion.LeadQualified {
		target = leads.StatusQualified
	}
	if next := leads.Advance(lead.Status, target); next != lead.Status {
		if err := s.leads.UpdateStatus(ctx, lead.OrgID, lead.ID, next); err != nil {
			s.logger.Error("failed to update lead status", "error", err, "lead_id", lead.ID, "status", next)
		} else {
			lead.Status = next
		}
	}
	if completion != nil && completion.ShouldBookCall && lead.Metadata[MetadataBookingOffered] != "true" {
		if err := s.leads.SetMetadata(ctx, lead.OrgID, lead.ID, MetadataBookingOffered, "true"); err != nil {
			s.logger.Error("failed to flag booking offer", "error", err, "lead_id", lead.ID)
		}
	}
}
