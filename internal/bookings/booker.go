package bookings

import (
	"context"
	"regexp"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var bookingWordsRe = regexp.MustCompile(`(?i)\b(book|booking|appointment|schedule|call|slot|available|availability|meet|consultation)\b`)

// MentionsBooking reports whether text talks about booking a call.
func MentionsBooking(text string) bool {
	return bookingWordsRe.MatchString(text)
}

// ConversationBooker lets the conversation loop hand a lead's message to the
// orchestrator.
type ConversationBooker struct {
	orchestrator *Orchestrator
	orgs         orgs.Repository
	logger       *logging.Logger
	now          func() time.Time
}

func NewConversationBooker(orchestrator *Orchestrator, orgRepo orgs.Repository, logger *logging.Logger) *ConversationBooker {
	if orchestrator == nil || orgRepo == nil {
		panic("bookings: conversation booker requires orchestrator and orgs")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationBooker{orchestrator: orchestrator, orgs: orgRepo, logger: logger, now: time.Now}
}

// TryBook books when the message names a time and a call was either offered
// or asked for. Messages without any date or time hint fall through to the
// model. Unparseable times, conflicts and provider failures are answered with
// an apology asking for another time.
func (c *ConversationBooker) TryBook(ctx context.Context, orgID, leadID, conversationID, text string, offered bool) (string, bool, error) {
	if !offered && !MentionsBooking(text) {
		return "", false, nil
	}
	if !HasDateTimeHint(text) {
		return "", false, nil
	}

	b, err := c.orchestrator.Book(ctx, BookingRequest{
		OrgID:          orgID,
		LeadID:         leadID,
		ConversationID: conversationID,
		Text:           text,
		Now:            c.now(),
	})
	switch {
	case err == nil:
	case apperr.Is(err, apperr.KindParse), apperr.Is(err, apperr.KindUnavailableSlot):
		return ApologyFor(err), true, nil
	default:
		return ApologyFor(err), true, err
	}

	org, err := c.orgs.GetByID(ctx, orgID)
	if err != nil {
		c.logger.Warn("booking confirmed without organization details", "error", err, "booking_id", b.ID)
		return ConfirmationMessage(b, "there", "us", nil), true, nil
	}
	firstName := "there"
	if lead, err := c.orchestrator.leads.GetByID(ctx, orgID, leadID); err == nil {
		firstName = lead.FirstName()
	}
	return ConfirmationMessage(b, firstName, org.Name, org.Location()), true, nil
}
