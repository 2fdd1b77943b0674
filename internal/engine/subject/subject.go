package subject

import (
	"regexp"
	"strings"
)

var prefix = regexp.MustCompile(`(?i)^(?:re|fw|fwd)[:\s]+`)

// Normalize strips stacked reply/forward markers ("Re: Fwd: RE:Budget")
// until none remain, recovering the thread key. Applying it twice gives
// the same result as applying it once.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	for {
		next := strings.TrimSpace(prefix.ReplaceAllString(s, ""))
		if next == s {
			return s
		}
		s = next
	}
}
