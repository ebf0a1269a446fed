package attendance

import (
	"strings"

	"golang.org/x/text/cases"
)

// Rule maps a known server message shape to a category and a replacement
// message. Fragments must all appear, in order, case-insensitively.
type Rule struct {
	Name      string
	Fragments []string
	Category  Category
	// Message replaces the server text; "{period}" expands to the period label.
	Message string
}

// DefaultRules recognises the backend's duplicate and face mismatch replies.
var DefaultRules = []Rule{
	{
		Name:      "already_marked",
		Fragments: []string{"already marked"},
		Category:  CategoryAlreadyMarked,
		Message:   "Attendance already marked for {period}.",
	},
	{
		Name:      "face_mismatch",
		Fragments: []string{"face", "does not match"},
		Category:  CategoryRejected,
		Message:   "Face does not match the logged-in user. Please try again.",
	},
}

// fold builds a fresh Caser per call; Casers are stateful and not shareable.
func fold(s string) string { return cases.Fold().String(s) }

// Classify returns the first rule whose fragments all occur in message.
func Classify(rules []Rule, message string) (Rule, bool) {
	folded := fold(message)
	if strings.TrimSpace(folded) == "" {
		return Rule{}, false
	}
	for _, rule := range rules {
		if rule.matches(folded) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Render expands the rule message for a period label.
func (r Rule) Render(periodLabel string) string {
	return strings.ReplaceAll(r.Message, "{period}", periodLabel)
}

func (r Rule) matches(folded string) bool {
	if len(r.Fragments) == 0 {
		return false
	}
	rest := folded
	for _, fragment := range r.Fragments {
		want := fold(fragment)
		idx := strings.Index(rest, want)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(want):]
	}
	return true
}
