package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Schofield90/whatsapp-lead-system/internal/callinsights"
	"github.com/Schofield90/whatsapp-lead-system/internal/training"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Markers delimiting the call-insight block.
const (
	InsightsStartMarker = "=== CALL INSIGHTS START ==="
	InsightsEndMarker   = "=== CALL INSIGHTS END ==="
)

const (
	optimizedKnowledgeEntries = 3
	optimizedKnowledgeRunes   = 160
	minPromptChars            = 1000
)

// Variant names a prompt builder.
type Variant string

const (
	VariantFull      Variant = "full"
	VariantOptimized Variant = "optimized"
)

// Prompt is a rendered system prompt.
type Prompt struct {
	Text            string  `json:"text"`
	Variant         Variant `json:"variant"`
	EstimatedTokens int     `json:"estimated_tokens"`
	OverBudget      bool    `json:"over_budget"`
}

// PromptBuilder renders a system prompt from a conversation context.
type PromptBuilder interface {
	Build(cc *ConversationContext) (Prompt, error)
}

var ErrIncompleteContext = errors.New("conversation: context is missing lead or organization")

// PromptBudget bounds prompt size. WarnChars only triggers a warning;
// MaxChars and the cost ceiling cap the optimized variant.
type PromptBudget struct {
	WarnChars         int
	MaxChars          int
	MaxCostPerCallUSD float64
	ReplyTokens       int
	Pricing           Pricing
}

func DefaultPromptBudget() PromptBudget {
	return PromptBudget{
		WarnChars:         6000,
		MaxChars:          8000,
		MaxCostPerCallUSD: 0.01,
		ReplyTokens:       DefaultMaxReplyTokens,
		Pricing:           DefaultPricing,
	}
}

// CapChars is the optimized prompt cap: MaxChars, lowered so that the
// estimated prompt plus a full reply stays within the cost ceiling.
func (b PromptBudget) CapChars() int {
	capChars := b.MaxChars
	if capChars <= 0 {
		capChars = 8000
	}
	if b.MaxCostPerCallUSD <= 0 {
		return capChars
	}
	reply := b.ReplyTokens
	if reply <= 0 {
		reply = DefaultMaxReplyTokens
	}
	tokens := b.Pricing.MaxInputTokens(b.MaxCostPerCallUSD, reply)
	if tokens >= 0 && tokens*4 < capChars {
		capChars = tokens * 4
	}
	if capChars < minPromptChars {
		capChars = minPromptChars
	}
	return capChars
}

// FullPromptBuilder renders every section verbatim. It is meant for
// debugging and offline comparison.
type FullPromptBuilder struct {
	budget PromptBudget
	logger *logging.Logger
}

func NewFullPromptBuilder(budget PromptBudget, logger *logging.Logger) *FullPromptBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &FullPromptBuilder{budget: budget, logger: logger}
}

func (b *FullPromptBuilder) Build(cc *ConversationContext) (Prompt, error) {
	if cc == nil || cc.Lead == nil || cc.Org == nil {
		return Prompt{}, ErrIncompleteContext
	}
	var sb strings.Builder
	writeHeader(&sb, cc)
	writeFullTraining(&sb, cc.Training)
	writeKnowledge(&sb, cc.Knowledge, len(cc.Knowledge), 0)
	writeInsights(&sb, cc.Insights, true)
	writeGuidelines(&sb, cc)
	return finish(sb.String(), VariantFull, b.budget.WarnChars, 0, b.logger, cc), nil
}

// OptimizedPromptBuilder renders a compact prompt sized for the per-call
// cost ceiling.
type OptimizedPromptBuilder struct {
	budget PromptBudget
	logger *logging.Logger
}

func NewOptimizedPromptBuilder(budget PromptBudget, logger *logging.Logger) *OptimizedPromptBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &OptimizedPromptBuilder{budget: budget, logger: logger}
}

func (b *OptimizedPromptBuilder) Build(cc *ConversationContext) (Prompt, error) {
	if cc == nil || cc.Lead == nil || cc.Org == nil {
		return Prompt{}, ErrIncompleteContext
	}
	capChars := b.budget.CapChars()
	keep := len(cc.Knowledge)
	if keep > optimizedKnowledgeEntries {
		keep = optimizedKnowledgeEntries
	}
	var text string
	for {
		var sb strings.Builder
		writeHeader(&sb, cc)
		writeTrainingTypes(&sb, cc.Training)
		writeKnowledge(&sb, cc.Knowledge, keep, optimizedKnowledgeRunes)
		writeInsights(&sb, cc.Insights, false)
		writeGuidelines(&sb, cc)
		text = sb.String()
		if len(text) <= capChars || keep == 0 {
			break
		}
		keep--
	}
	return finish(text, VariantOptimized, b.budget.WarnChars, capChars, b.logger, cc), nil
}

func finish(text string, variant Variant, warnChars, capChars int, logger *logging.Logger, cc *ConversationContext) Prompt {
	p := Prompt{
		Text:            text,
		Variant:         variant,
		EstimatedTokens: EstimateTokens(text),
	}
	if (warnChars > 0 && len(text) > warnChars) || (capChars > 0 && len(text) > capChars) {
		p.OverBudget = true
		logger.Warn("system prompt over budget",
			"variant", variant,
			"chars", len(text),
			"warn_chars", warnChars,
			"cap_chars", capChars,
			"org_id", cc.Org.ID,
			"lead_id", cc.Lead.ID,
		)
	}
	return p
}

func writeHeader(sb *strings.Builder, cc *ConversationContext) {
	fmt.Fprintf(sb, "You are the WhatsApp sales assistant for %s.\n", cc.Org.Name)
	sb.WriteString("Your goal is to understand what the lead wants, answer their questions from the material below, and book them onto a call when they are interested.\n")
	status := cc.Lead.Status
	if status == "" {
		status = "new"
	}
	fmt.Fprintf(sb, "Lead: %s | Phone: %s | Status: %s\n", cc.Lead.Name, cc.Lead.Phone, status)
	if cc.Lead.Source != "" {
		fmt.Fprintf(sb, "Lead source: %s\n", cc.Lead.Source)
	}
	sb.WriteString("\n")
}

func writeFullTraining(sb *strings.Builder, entries []training.Entry) {
	if len(entries) == 0 {
		return
	}
	byType := training.Material{Entries: entries}.ByType()
	sb.WriteString("TRAINING MATERIAL:\n")
	for _, t := range training.PromptOrder {
		group := byType[t]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(sb, "[%s]\n", t.Label())
		for _, e := range group {
			sb.WriteString(strings.TrimSpace(e.Content))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

func writeTrainingTypes(sb *strings.Builder, entries []training.Entry) {
	if len(entries) == 0 {
		return
	}
	byType := training.Material{Entries: entries}.ByType()
	var labels []string
	for _, t := range training.PromptOrder {
		if len(byType[t]) > 0 {
			labels = append(labels, t.Label())
		}
	}
	sb.WriteString("TRAINING MATERIAL:\n")
	fmt.Fprintf(sb, "On file: %s\n\n", strings.Join(labels, ", "))
}

func writeKnowledge(sb *strings.Builder, entries []string, keep, maxRunes int) {
	if keep <= 0 || len(entries) == 0 {
		return
	}
	if keep > len(entries) {
		keep = len(entries)
	}
	sb.WriteString("KNOWLEDGE BASE:\n")
	for _, e := range entries[:keep] {
		if maxRunes > 0 {
			e = callinsights.Excerpt(e, maxRunes)
		}
		fmt.Fprintf(sb, "- %s\n", strings.TrimSpace(e))
	}
	sb.WriteString("\n")
}

func writeInsights(sb *strings.Builder, s callinsights.Summary, full bool) {
	if s.IsEmpty() {
		return
	}
	sb.WriteString(InsightsStartMarker + "\n")
	fmt.Fprintf(sb, "Success rate: %d%% across %d analysed calls.\n", s.SuccessRate, s.TotalCalls)
	if full {
		fmt.Fprintf(sb, "Sentiment: %d%% positive, %d%% neutral, %d%% negative, %d%% unscored.\n",
			s.Breakdown.Positive, s.Breakdown.Neutral, s.Breakdown.Negative, s.Breakdown.Unknown)
		if len(s.Snippets) > 0 {
			sb.WriteString("From successful calls:\n")
			for _, snip := range s.Snippets {
				if snip.Analysis != "" {
					fmt.Fprintf(sb, "- %q (%s)\n", snip.Excerpt, snip.Analysis)
				} else {
					fmt.Fprintf(sb, "- %q\n", snip.Excerpt)
				}
			}
		}
		if len(s.SuccessInsights) > 0 {
			sb.WriteString("What works:\n")
			for _, item := range s.SuccessInsights {
				fmt.Fprintf(sb, "- %s\n", item)
			}
		}
		if len(s.ImprovementInsights) > 0 {
			sb.WriteString("What to improve:\n")
			for _, item := range s.ImprovementInsights {
				fmt.Fprintf(sb, "- %s\n", item)
			}
		}
	}
	sb.WriteString(InsightsEndMarker + "\n\n")
}

func writeGuidelines(sb *strings.Builder, cc *ConversationContext) {
	sb.WriteString("GUIDELINES:\n")
	fmt.Fprintf(sb, "- Address the lead as %s. Be warm, friendly and brief; this is WhatsApp.\n", cc.Lead.FirstName())
	sb.WriteString("- End every reply with a question.\n")
	sb.WriteString("- When the lead shows interest, offer to book a call and ask which day and time suits them.\n")
	sb.WriteString("- Only state prices, offers or opening hours that appear in the material above.\n")
	sb.WriteString(`- If you are sure whether to book a call or whether the lead is qualified, add <decision>{"book_call":true,"qualified":false}</decision> as the last line, with the values you decided.` + "\n")
}
