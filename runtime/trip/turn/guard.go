package turn

import (
	"regexp"
	"strings"
)

// lowSignalRE matches pure greetings, acknowledgements and filler that carry
// no planning information.
var lowSignalRE = regexp.MustCompile(`(?i)^\s*(hi|hiya|hello|hey|yo|good\s+(morning|afternoon|evening)|thanks?|thank\s+you|thx|ok(ay)?|cool|nice|great|sure|yep|yeah|nope|no|hmm+|test(ing)?)[\s.!?]*$`)

// LowSignal reports whether the user message carries no planning content: a
// bare greeting, acknowledgement or near-empty input. Such messages get a
// polite re-ask without touching the plan or running any extraction.
func LowSignal(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) < 2 {
		return true
	}
	return lowSignalRE.MatchString(t)
}
