package conversation

import "math"

// DefaultMaxReplyTokens bounds every completion.
const DefaultMaxReplyTokens = 300

// Pricing is the per-million-token price of a model in USD.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultPricing matches Claude 3.5 Haiku list prices.
var DefaultPricing = Pricing{InputPerMTok: 0.80, OutputPerMTok: 4.00}

// Cost returns the USD cost of one exchange.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerMTok/1e6 + float64(outputTokens)*p.OutputPerMTok/1e6
}

// MaxInputTokens is the largest prompt that keeps an exchange with
// replyTokens of output at or under ceiling. It is zero when the reply
// alone exceeds the ceiling, and -1 when input is free.
func (p Pricing) MaxInputTokens(ceiling float64, replyTokens int) int {
	if p.InputPerMTok <= 0 {
		return -1
	}
	remaining := ceiling - p.Cost(0, replyTokens)
	if remaining <= 0 {
		return 0
	}
	return int(math.Floor(remaining * 1e6 / p.InputPerMTok))
}

// EstimateTokens approximates tokens as ceil(chars/4).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
