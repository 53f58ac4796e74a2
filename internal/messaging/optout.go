package messaging

import (
	"regexp"
	"strings"
)

var stopRegex = regexp.MustCompile(`(?i)^(?:please\s+)?(stop|stopall|unsubscribe|opt\s?out|quit)\b`)

// IsOptOut reports whether body is a request to stop messaging.
func IsOptOut(body string) bool {
	return stopRegex.MatchString(strings.TrimSpace(body))
}
