package callinsights

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, Options{})
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Snippets)
}

func TestSummarizeMixedHistory(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	long := strings.Repeat("We talked about goals and the trial offer. ", 10)
	ranked := Rank([]Transcript{
		{ID: "p1", Sentiment: SentimentPositive, RawTranscript: long, CreatedAt: now,
			Insights: &SalesInsights{Analysis: "Strong rapport", SuccessFactors: []string{"Asked about goals", "Offered trial"}}},
		{ID: "n1", Sentiment: SentimentNegative, RawTranscript: "Too expensive.", CreatedAt: now.Add(time.Hour),
			Insights: &SalesInsights{Improvements: []string{"Lead with value before price"}}},
		{ID: "p2", Sentiment: SentimentPositive, RawTranscript: "Booked straight away.", CreatedAt: now.Add(-time.Hour),
			Insights: &SalesInsights{SuccessFactors: []string{"Offered trial", "Used first name"}}},
	})

	s := Summarize(ranked, Options{})
	require.False(t, s.IsEmpty())
	assert.Equal(t, 3, s.TotalCalls)
	assert.Equal(t, 67, s.Breakdown.Positive)
	assert.Equal(t, 33, s.Breakdown.Negative)
	assert.Equal(t, 67, s.SuccessRate)

	require.Len(t, s.Snippets, 2)
	assert.Equal(t, "p1", s.Snippets[0].TranscriptID)
	assert.Equal(t, "Strong rapport", s.Snippets[0].Analysis)
	assert.LessOrEqual(t, utf8.RuneCountInString(s.Snippets[0].Excerpt), MaxSnippetRunes)
	assert.True(t, strings.HasSuffix(s.Snippets[0].Excerpt, "..."))
	assert.Equal(t, "Booked straight away.", s.Snippets[1].Excerpt)

	assert.Equal(t, []string{"Asked about goals", "Offered trial", "Used first name"}, s.SuccessInsights)
	assert.Equal(t, []string{"Lead with value before price"}, s.ImprovementInsights)
}

func TestSummarizeSnippetBounds(t *testing.T) {
	var in []Transcript
	for i := 0; i < 8; i++ {
		in = append(in, Transcript{ID: string(rune('a' + i)), Sentiment: SentimentPositive, RawTranscript: "ok"})
	}
	tests := []struct {
		name string
		opt  int
		want int
	}{
		{"default", 0, DefaultSnippets},
		{"requested", 4, 4},
		{"capped", 9, MaxSnippets},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Summarize(in, Options{Snippets: tt.opt}).Snippets, tt.want)
		})
	}
	assert.Len(t, Summarize(in[:2], Options{Snippets: 5}).Snippets, 2)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	in := []Transcript{
		{ID: "a", Sentiment: SentimentPositive, RawTranscript: "first"},
		{ID: "b", Sentiment: SentimentNeutral, RawTranscript: "second"},
	}
	assert.Equal(t, Summarize(in, Options{}), Summarize(in, Options{}))
}

func TestExcerptIsRuneSafe(t *testing.T) {
	text := strings.Repeat("é", 200)
	got := Excerpt(text, 150)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 150, utf8.RuneCountInString(got))
	assert.Equal(t, "short", Excerpt("  short  ", 150))
}
