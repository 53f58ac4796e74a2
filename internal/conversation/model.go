package conversation

import (
	"errors"
	"time"
)

// Status of a lead's WhatsApp conversation.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
)

// Direction of a message relative to the organization.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// DefaultHistorySize is how many recent messages feed a prompt.
const DefaultHistorySize = 10

var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is the single open thread between an organization and a lead.
type Conversation struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"organization_id"`
	LeadID        string     `json:"lead_id"`
	Status        Status     `json:"status"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Message is an append-only entry in a conversation.
type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	Direction         Direction `json:"direction"`
	Content           string    `json:"content"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// chatRole maps the message direction onto the model's turn roles.
func (m Message) chatRole() string {
	if m.Direction == DirectionOutbound {
		return ChatRoleAssistant
	}
	return ChatRoleUser
}
