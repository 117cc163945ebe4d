// Package voice holds the output validator, the banned-phrase registry and the
// bank of hand-written messages used as prompt examples and static fallbacks.
package voice

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/futureyou/futureyou-os/internal/domain"
)

// Code classifies a validation failure.
type Code string

const (
	CodeBannedPhrase         Code = "BANNED_PHRASE"
	CodeGenericAI            Code = "GENERIC_AI"
	CodeMissingQuestions     Code = "MISSING_QUESTIONS"
	CodeTooLong              Code = "TOO_LONG"
	CodeTooShort             Code = "TOO_SHORT"
	CodeMissingDirectAddress Code = "MISSING_DIRECT_ADDRESS"
	CodeMissingName          Code = "MISSING_NAME"
	CodeUnfilledPlaceholder  Code = "UNFILLED_PLACEHOLDER"
)

type Violation struct {
	Code   Code
	Detail string
	// Phrase is the offending text for banned-phrase and generic-AI hits.
	Phrase string
}

func (v Violation) String() string {
	return string(v.Code) + ": " + v.Detail
}

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

type Options struct {
	MessageType domain.MessageType
	UserName    string
}

// Result is the outcome of Validate. Passed is true only with zero
// violations; Severity is informational.
type Result struct {
	Passed      bool
	Violations  []Violation
	Severity    Severity
	Suggestions []string
}

// Messages renders the violations as "CODE: detail" lines.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.String()
	}
	return out
}

// Feedback formats the violations for a retry prompt. It is empty when the
// result passed.
func (r Result) Feedback() string {
	if r.Passed {
		return ""
	}
	var b strings.Builder
	b.WriteString("VIOLATIONS:")
	for _, m := range r.Messages() {
		b.WriteString("\n- ")
		b.WriteString(m)
	}
	return b.String()
}

type rule struct {
	minQuestions int
	minLength    int
	maxLength    int
}

var rules = map[domain.MessageType]rule{
	domain.MessageBrief:   {minQuestions: 2, minLength: 200, maxLength: 1500},
	domain.MessageDebrief: {minQuestions: 2, minLength: 200, maxLength: 1500},
	domain.MessageNudge:   {minQuestions: 0, minLength: 50, maxLength: 350},
	domain.MessageLetter:  {minQuestions: 1, minLength: 400, maxLength: 2500},
	domain.MessageChat:    {minQuestions: 0, minLength: 20, maxLength: 1000},
}

var genericIndicators = []string{
	"as an ai",
	"i don't have personal",
	"i cannot",
	"i'm here to help",
	"let me know if",
	"feel free to",
	"happy to help",
	"that's a great",
	"great question",
	"absolutely",
	"certainly",
}

var (
	validStart  = regexp.MustCompile(`^[A-Z][a-z]+[,…\s]`)
	greeting    = regexp.MustCompile(`(?i)^(bro|listen|hey|look|alright|today|yesterday|this week)`)
	placeholder = regexp.MustCompile(`\[(NAME|HABIT|STREAK|EXCUSE|COUNT|DAYS?|TIME|TRIGGER|COMMITMENT)\]`)
	filler      = regexp.MustCompile(`(?i)^(I'd be happy to |I can help |Let me |Here's |Sure,? )`)
	blankRun    = regexp.MustCompile(`\n{3,}`)
)

// Validate runs every check against text. Checks never short-circuit, so a
// result lists all problems at once.
func Validate(text string, opts Options) Result {
	r := Result{Violations: []Violation{}, Suggestions: []string{}}
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, p := range bannedIn(lower) {
		r.Violations = append(r.Violations, Violation{Code: CodeBannedPhrase, Detail: fmt.Sprintf("contains %q", p), Phrase: p})
		r.Suggestions = append(r.Suggestions, fmt.Sprintf("Remove or rephrase %q", p))
	}
	for _, g := range genericIndicators {
		if strings.Contains(lower, g) {
			r.Violations = append(r.Violations, Violation{Code: CodeGenericAI, Detail: fmt.Sprintf("contains %q", g), Phrase: g})
		}
	}

	ru, ok := rules[opts.MessageType]
	if !ok {
		ru = rules[domain.MessageChat]
	}
	if q := strings.Count(trimmed, "?"); q < ru.minQuestions {
		r.Violations = append(r.Violations, Violation{Code: CodeMissingQuestions, Detail: fmt.Sprintf("found %d, need %d", q, ru.minQuestions)})
		r.Suggestions = append(r.Suggestions, "End with specific reflection questions")
	}

	n := utf8.RuneCountInString(trimmed)
	if n > ru.maxLength {
		r.Violations = append(r.Violations, Violation{Code: CodeTooLong, Detail: fmt.Sprintf("%d chars exceeds %d", n, ru.maxLength)})
	}
	if n < ru.minLength {
		r.Violations = append(r.Violations, Violation{Code: CodeTooShort, Detail: fmt.Sprintf("%d chars below %d", n, ru.minLength)})
	}

	name := strings.ToLower(strings.TrimSpace(opts.UserName))
	if opts.MessageType != domain.MessageChat {
		startsWithName := name != "" && strings.HasPrefix(lower, name)
		if !validStart.MatchString(trimmed) && !greeting.MatchString(trimmed) && !startsWithName {
			r.Violations = append(r.Violations, Violation{Code: CodeMissingDirectAddress, Detail: "should start with the user's name"})
			r.Suggestions = append(r.Suggestions, "Open by addressing the user directly")
		}
	}
	if name != "" && opts.MessageType != domain.MessageNudge && !strings.Contains(lower, name) {
		r.Violations = append(r.Violations, Violation{Code: CodeMissingName, Detail: "user's name not used"})
	}

	if placeholder.MatchString(trimmed) {
		r.Violations = append(r.Violations, Violation{Code: CodeUnfilledPlaceholder, Detail: "contains an unfilled placeholder"})
	}

	r.Passed = len(r.Violations) == 0
	r.Severity = severityOf(r.Violations)
	return r
}

func severityOf(vs []Violation) Severity {
	if len(vs) == 0 {
		return SeverityNone
	}
	for _, v := range vs {
		if v.Code == CodeBannedPhrase || v.Code == CodeGenericAI {
			return SeverityCritical
		}
	}
	if len(vs) >= 3 {
		return SeverityMajor
	}
	return SeverityMinor
}

// Clean strips assistant filler from the start of text, fills [NAME] and
// collapses runs of blank lines.
func Clean(text, userName string) string {
	s := strings.TrimSpace(text)
	s = filler.ReplaceAllString(s, "")
	if userName != "" {
		s = strings.ReplaceAll(s, "[NAME]", userName)
	}
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
