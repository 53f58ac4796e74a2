package callinsights

import (
	"math"
	"strings"
)

const (
	DefaultSnippets = 3
	MaxSnippets     = 5
	MaxSnippetRunes = 150
	MaxInsightsEach = 3
	snippetEllipsis = "..."
)

// Options tunes how much of the ranked history a summary carries.
type Options struct {
	Snippets int
}

// Breakdown holds integer percentages per sentiment.
type Breakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
	Unknown  int `json:"unknown"`
}

// Snippet is a short excerpt of a successful call.
type Snippet struct {
	TranscriptID string `json:"transcript_id"`
	Excerpt      string `json:"excerpt"`
	Analysis     string `json:"analysis,omitempty"`
}

// Summary condenses ranked call history into prompt-sized material.
type Summary struct {
	TotalCalls          int       `json:"total_calls"`
	Breakdown           Breakdown `json:"breakdown"`
	SuccessRate         int       `json:"success_rate"`
	Snippets            []Snippet `json:"snippets"`
	SuccessInsights     []string  `json:"success_insights"`
	ImprovementInsights []string  `json:"improvement_insights"`
}

// IsEmpty reports whether there was no call history to summarise.
func (s Summary) IsEmpty() bool {
	return s.TotalCalls == 0
}

// Summarize builds a Summary from transcripts already ordered by Rank.
// Output depends only on the input order and opts.
func Summarize(ranked []Transcript, opts Options) Summary {
	var s Summary
	s.TotalCalls = len(ranked)
	if s.TotalCalls == 0 {
		return s
	}

	want := opts.Snippets
	if want <= 0 {
		want = DefaultSnippets
	}
	if want > MaxSnippets {
		want = MaxSnippets
	}

	var pos, neu, neg, unk int
	for _, t := range ranked {
		switch t.Sentiment {
		case SentimentPositive:
			pos++
			if len(s.Snippets) < want {
				snip := Snippet{TranscriptID: t.ID, Excerpt: Excerpt(t.RawTranscript, MaxSnippetRunes)}
				if t.Insights != nil {
					snip.Analysis = strings.TrimSpace(t.Insights.Analysis)
				}
				s.Snippets = append(s.Snippets, snip)
			}
			if t.Insights != nil {
				s.SuccessInsights = appendInsights(s.SuccessInsights, t.Insights.SuccessFactors)
			}
		case SentimentNeutral:
			neu++
		case SentimentNegative:
			neg++
			if t.Insights != nil {
				s.ImprovementInsights = appendInsights(s.ImprovementInsights, t.Insights.Improvements)
			}
		default:
			unk++
		}
	}

	s.Breakdown = Breakdown{
		Positive: percent(pos, s.TotalCalls),
		Neutral:  percent(neu, s.TotalCalls),
		Negative: percent(neg, s.TotalCalls),
		Unknown:  percent(unk, s.TotalCalls),
	}
	s.SuccessRate = s.Breakdown.Positive
	return s
}

// Excerpt returns at most max runes of text, whitespace-collapsed, with an
// ellipsis when truncated. The ellipsis counts toward max.
func Excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	cut := max - len(snippetEllipsis)
	if cut < 0 {
		cut = 0
	}
	return strings.TrimSpace(string(runes[:cut])) + snippetEllipsis
}

func appendInsights(dst, src []string) []string {
	for _, item := range src {
		if len(dst) >= MaxInsightsEach {
			return dst
		}
		item = strings.TrimSpace(item)
		if item == "" || containsString(dst, item) {
			continue
		}
		dst = append(dst, item)
	}
	return dst
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}
