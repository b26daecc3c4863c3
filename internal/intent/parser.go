package intent

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// conversationalPatterns short-circuit every other extraction
	conversationalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(hi|hello|hey|gm|thanks|thank you|good (morning|afternoon|evening))\b`),
		regexp.MustCompile(`(?i)^\s*(what|who|why|how|when|where|which|can you|could you|tell me|explain)\b`),
		regexp.MustCompile(`\?\s*$`),
	}

	// a handle starts the text or follows a character that cannot be part of an email or domain
	recipientPattern = regexp.MustCompile(`(?:^|[^\w@.])@(\w+(?:\.\w+)?)`)
	amountPattern    = regexp.MustCompile(`(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?|\.\d+`)

	sendPattern    = regexp.MustCompile(`(?i)\b(send|pay|transfer)\b`)
	splitPattern   = regexp.MustCompile(`(?i)\bsplit\b`)
	equalPattern   = regexp.MustCompile(`(?i)\bequal(ly)?\b`)
	percentPattern = regexp.MustCompile(`(?i)%|\bpercent(age)?\b`)
	balancePattern = regexp.MustCompile(`(?i)\b(balance|check)\b`)
	historyPattern = regexp.MustCompile(`(?i)\b(history|transactions)\b`)
	notePattern    = regexp.MustCompile(`(?i)\b(?:for|note)\b:?\s*(\S.*)$`)
)

// Parse classifies text with keyword heuristics. It has no side effects and
// always returns a non-nil intent; unrecognized text yields KindUnknown.
func Parse(text string) *Intent {
	if IsConversational(text) {
		result := newIntent(KindConversation)
		result.IsConversational = true
		query := strings.TrimSpace(text)
		result.Query = &query
		return result
	}

	result := newIntent(classify(text))
	result.Recipients = extractRecipients(text)
	result.Amount = extractAmount(text)
	result.Note = extractNote(text)

	if result.Kind == KindSplit {
		switch {
		case equalPattern.MatchString(text):
			st := SplitEqual
			result.SplitType = &st
		case percentPattern.MatchString(text):
			st := SplitPercentage
			result.SplitType = &st
		}
	}

	return result
}

// IsConversational reports whether text reads as a greeting or a question
func IsConversational(text string) bool {
	for _, p := range conversationalPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// classify applies the fixed keyword precedence
func classify(text string) Kind {
	switch {
	case sendPattern.MatchString(text):
		return KindSend
	case splitPattern.MatchString(text):
		return KindSplit
	case balancePattern.MatchString(text):
		return KindCheckBalance
	case historyPattern.MatchString(text):
		return KindTransactionHistory
	default:
		return KindUnknown
	}
}

func extractRecipients(text string) []string {
	recipients := []string{}
	for _, m := range recipientPattern.FindAllStringSubmatch(text, -1) {
		recipients = append(recipients, m[1])
	}
	return recipients
}

// extractAmount returns the first standalone number outside of @handles.
// A signed first number yields no amount rather than its absolute value.
func extractAmount(text string) *Amount {
	stripped := recipientPattern.ReplaceAllString(text, " ")
	for _, loc := range amountPattern.FindAllStringIndex(stripped, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := stripped[start-1]
			if prev == '-' || prev == '+' {
				return nil
			}
			if isWordByte(prev) || prev == '.' || prev == ',' {
				continue
			}
		}
		if end < len(stripped) {
			next := stripped[end]
			if isWordByte(next) {
				continue
			}
			if (next == '.' || next == ',') && end+1 < len(stripped) && isDigit(stripped[end+1]) {
				continue
			}
		}

		match := strings.ReplaceAll(stripped[start:end], ",", "")
		if strings.HasPrefix(match, ".") {
			match = "0" + match
		}
		d, err := decimal.NewFromString(match)
		if err != nil {
			return nil
		}
		return NewAmount(d)
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isWordByte(b byte) bool {
	return isDigit(b) || b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func extractNote(text string) *string {
	m := notePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	note := strings.TrimSpace(m[1])
	if note == "" {
		return nil
	}
	return &note
}
