package callinsights

import "sort"

// MaxRanked is the number of transcripts fed into a conversation context.
const MaxRanked = 20

// Rank orders transcripts positive, neutral, negative, then unscored, and
// newest first within a tier. The input slice is not modified.
func Rank(transcripts []Transcript) []Transcript {
	out := make([]Transcript, len(transcripts))
	copy(out, transcripts)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Sentiment.tier(), out[j].Sentiment.tier()
		if ti != tj {
			return ti < tj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Top ranks transcripts and keeps at most limit of them.
func Top(transcripts []Transcript, limit int) []Transcript {
	ranked := Rank(transcripts)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
