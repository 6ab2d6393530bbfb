// Package feedback produces the placeholder grammar review shown for a
// chunk and keeps a local history of the reviews a user requested.
package feedback

import (
	"fmt"
	"regexp"
	"strings"
)

// CorrectedMarker is appended to every simulated correction.
const CorrectedMarker = " [CORRECTED VERSION]"

const (
	noChangesText   = "No corrections needed. Your text is well-written!"
	improvementText = "Grammar and style improvements:\n" +
		"• Fixed capitalization issues\n" +
		"• Corrected common spelling errors\n" +
		"• Improved punctuation"
)

type replacement struct {
	re   *regexp.Regexp
	with string
}

// Applied in order.
var replacements = []replacement{
	{regexp.MustCompile(`\bi\b`), "I"},
	{regexp.MustCompile(`\bteh\b`), "the"},
	{regexp.MustCompile(`\bthier\b`), "their"},
	{regexp.MustCompile(`\byoure\b`), "you're"},
	{regexp.MustCompile(`\bits(\s+[a-z])`), "it's$1"},
}

// Result is a simulated review of one chunk.
type Result struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Feedback  string `json:"feedback"`
	Changed   bool   `json:"changed"`
}

// Simulate runs the placeholder grammar pass over text.
func Simulate(text string) Result {
	fixed := fix(text)
	changed := fixed != text
	return Result{
		Original:  text,
		Corrected: fixed + CorrectedMarker,
		Feedback:  explain(changed),
		Changed:   changed,
	}
}

// Correct returns the simulated correction of text.
func Correct(text string) string {
	return fix(text) + CorrectedMarker
}

// StripMarker removes the marker Correct appends.
func StripMarker(corrected string) string {
	return strings.TrimSuffix(corrected, CorrectedMarker)
}

func fix(text string) string {
	for _, r := range replacements {
		text = r.re.ReplaceAllString(text, r.with)
	}
	return text
}

func explain(changed bool) string {
	if !changed {
		return noChangesText
	}
	return improvementText
}

// Language is a translation target.
type Language string

const (
	Kinyarwanda Language = "kinyarwanda"
	English     Language = "english"
)

// ParseLanguage accepts a language name or its short code.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kinyarwanda", "rw", "kin":
		return Kinyarwanda, nil
	case "english", "en", "eng":
		return English, nil
	default:
		return "", fmt.Errorf("unknown language %q (want kinyarwanda or english)", s)
	}
}

// Translate returns the placeholder translation of text.
func Translate(text string, lang Language) (string, error) {
	switch lang {
	case Kinyarwanda:
		return "Muri Kinyarwanda: " + text, nil
	case English:
		return "In English: " + text, nil
	default:
		return "", fmt.Errorf("unknown language %q", lang)
	}
}
