package leads

import (
	"strings"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// Status is the lead's position in the conversion funnel.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusLost      Status = "lost"
)

var statusRank = map[Status]int{
	StatusNew:       0,
	StatusContacted: 1,
	StatusQualified: 2,
	StatusBooked:    3,
	StatusCompleted: 4,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusLost {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Advance returns the furthest of current and next along
// new → contacted → qualified → booked → completed. Conversation outcomes
// never move a lead backwards, and completed/lost are terminal.
func Advance(current, next Status) Status {
	if current == StatusLost || current == StatusCompleted {
		return current
	}
	if next == StatusLost {
		return next
	}
	if statusRank[next] > statusRank[current] {
		return next
	}
	return current
}

// Lead is a prospective customer captured from an ad platform or webhook.
type Lead struct {
	ID        string            `json:"id"`
	OrgID     string            `json:"organization_id"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Email     string            `json:"email,omitempty"`
	Status    Status            `json:"status"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FirstName returns the first word of the lead's name.
func (l *Lead) FirstName() string {
	fields := strings.Fields(l.Name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	OrgID    string            `json:"-"`
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Email    string            `json:"email"`
	Source   string            `json:"source"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata"`
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.OrgID) == "" {
		return apperr.Validation("leads.create", ErrMissingOrgID.Error(), map[string]any{"field": "organization_id"})
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("leads.create", ErrInvalidName.Error(), map[string]any{"field": "name"})
	}
	if NormalizePhone(r.Phone) == "" {
		return apperr.Validation("leads.create", ErrMissingPhone.Error(), map[string]any{"field": "phone"})
	}
	return nil
}

// ListLeadsFilter narrows ListByOrg results.
type ListLeadsFilter struct {
	Status Status
	Limit  int
	Offset int
}

// NormalizePhone reduces a phone number to "+" followed by digits. A leading
// "00" international prefix is rewritten to "+". Returns "" when fewer than
// seven digits remain.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if !strings.HasPrefix(raw, "+") && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	if len(digits) < 7 {
		return ""
	}
	return "+" + digits
}
