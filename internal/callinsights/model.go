package callinsights

import (
	"errors"
	"time"
)

// Sentiment is the outcome label attached to an analysed sales call. An
// empty value means the call has not been scored.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = ""
)

// Valid reports whether s is a recognised label, including unknown.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentUnknown:
		return true
	}
	return false
}

func (s Sentiment) tier() int {
	switch s {
	case SentimentPositive:
		return 0
	case SentimentNeutral:
		return 1
	case SentimentNegative:
		return 2
	default:
		return 3
	}
}

// SalesInsights is the analysis produced for a call after it ended.
type SalesInsights struct {
	Analysis       string   `json:"analysis,omitempty"`
	SuccessFactors []string `json:"success_factors,omitempty"`
	Improvements   []string `json:"improvements,omitempty"`
}

// Transcript is an immutable record of a past sales call.
type Transcript struct {
	ID            string         `json:"id"`
	OrgID         string         `json:"organization_id"`
	RawTranscript string         `json:"raw_transcript"`
	Sentiment     Sentiment      `json:"sentiment"`
	Insights      *SalesInsights `json:"sales_insights,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// CreateTranscriptRequest is the ingestion payload for a finished call.
type CreateTranscriptRequest struct {
	RawTranscript string         `json:"raw_transcript"`
	Sentiment     Sentiment      `json:"sentiment"`
	Insights      *SalesInsights `json:"sales_insights,omitempty"`
}

var (
	ErrEmptyTranscript  = errors.New("transcript text is required")
	ErrInvalidSentiment = errors.New("invalid sentiment")
)
