package conversation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Suggested actions attached to a completion.
const (
	ActionBookCall      = "book_call"
	ActionMarkQualified = "mark_qualified"
	ActionFollowUp      = "follow_up"
)

// qualifyAfterMessages is how many prior messages a conversation needs
// before a lead can be marked qualified.
const qualifyAfterMessages = 3

// Keyword lists are a heuristic over the assistant's own reply. A
// <decision> trailer from the model takes precedence when present.
var (
	bookCallPhrases = []string{
		"book a call",
		"book you in",
		"book in a call",
		"schedule a call",
		"set up a call",
		"arrange a call",
		"hop on a call",
		"jump on a call",
		"quick call",
		"what time works",
		"which time works",
		"what day works",
		"when are you free",
		"when would suit",
	}
	qualifiedPhrases = []string{
		"perfect fit",
		"great fit",
		"ideal fit",
		"you qualify",
		"sounds like you're ready",
		"ready to get started",
		"exactly what we help with",
	}
)

var decisionRE = regexp.MustCompile(`(?is)<decision>(.*?)</decision>`)

type decision struct {
	BookCall  *bool `json:"book_call"`
	Qualified *bool `json:"qualified"`
}

// parseDecision strips every <decision> block from reply and returns the
// first one that decodes. ok is false when none decodes.
func parseDecision(reply string) (clean string, d decision, ok bool) {
	matches := decisionRE.FindAllStringSubmatch(reply, -1)
	clean = strings.TrimSpace(decisionRE.ReplaceAllString(reply, ""))
	for _, m := range matches {
		var candidate decision
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &candidate); err != nil {
			continue
		}
		if candidate.BookCall == nil && candidate.Qualified == nil {
			continue
		}
		return clean, candidate, true
	}
	return clean, decision{}, false
}

func containsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// detectIntent decides the booking and qualification flags for a reply.
func detectIntent(reply string, priorMessages int) (clean string, shouldBook, qualified bool) {
	clean, d, ok := parseDecision(reply)
	shouldBook = containsAny(clean, bookCallPhrases)
	qualified = containsAny(clean, qualifiedPhrases)
	if ok {
		if d.BookCall != nil {
			shouldBook = *d.BookCall
		}
		if d.Qualified != nil {
			qualified = *d.Qualified
		}
	}
	if priorMessages <= qualifyAfterMessages {
		qualified = false
	}
	return clean, shouldBook, qualified
}

func suggestedActions(shouldBook, qualified bool) []string {
	var actions []string
	if shouldBook {
		actions = append(actions, ActionBookCall)
	}
	if qualified {
		actions = append(actions, ActionMarkQualified)
	}
	if len(actions) == 0 {
		actions = append(actions, ActionFollowUp)
	}
	return actions
}
