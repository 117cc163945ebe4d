package epistemic

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/futureyou/futureyou-os/internal/domain"
)

var observerPatterns = compileAll(
	`I've noticed you (tend to|always|never|usually)`,
	`Your pattern (shows|suggests|indicates|of)`,
	`\bYou (always|never|typically|usually|consistently)\b`,
	`\d+ hours? (of silence|ago|since|without)`,
	`I remember when you`,
	`You told me (that|about|when)`,
	`Based on your history`,
	`Your (typical|usual|normal) (behavior|pattern|approach)`,
	`I've seen you do this before`,
	`This is (a pattern|becoming a pattern|your pattern)`,
	`You've been (avoiding|struggling|failing|slipping)`,
	`Your track record (shows|suggests)`,
)

var architectPatterns = compileAll(
	`\bYou (always|never)\b`,
	`\d+ hours? (of silence|ago)`,
	`I remember when you`,
	`You told me that`,
)

var hourClaim = regexp.MustCompile(`(?i)(\d+)\s*hours?\s*(of silence|ago|since|without)`)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

func patternsFor(p domain.Phase) []*regexp.Regexp {
	switch p {
	case domain.PhaseObserver:
		return observerPatterns
	case domain.PhaseArchitect:
		return architectPatterns
	}
	return nil
}

// Clean rewrites claims the context does not permit and reports each one.
func (c Context) Clean(text string) (string, []string) {
	var violations []string
	cleaned := text

	for _, re := range patternsFor(c.Phase) {
		match := re.FindString(cleaned)
		if match == "" {
			continue
		}
		violations = append(violations, fmt.Sprintf("EPISTEMIC_VIOLATION: %q in %s phase", match, c.Phase))
		cleaned = re.ReplaceAllStringFunc(cleaned, func(m string) string {
			return matchCase(m, humbleReplacement(m))
		})
	}

	if !c.CanClaimTiming {
		if match := hourClaim.FindString(cleaned); match != "" {
			violations = append(violations, fmt.Sprintf("TIMING_VIOLATION: %q without timing data", match))
			cleaned = hourClaim.ReplaceAllString(cleaned, "recently")
		}
	}
	return cleaned, violations
}

func humbleReplacement(violation string) string {
	v := strings.ToLower(violation)
	switch {
	case strings.Contains(v, "noticed you tend"):
		return "I'm curious about"
	case strings.Contains(v, "pattern"):
		return "I'm starting to observe"
	case strings.Contains(v, "always"), strings.Contains(v, "never"):
		return "sometimes you"
	case strings.Contains(v, "hours"):
		return "recently"
	case strings.Contains(v, "remember when"):
		return "thinking about"
	case strings.Contains(v, "told me"):
		return "mentioned"
	}
	return "I'm noticing"
}

// matchCase capitalizes repl when the original match started a sentence.
func matchCase(orig, repl string) string {
	if orig == "" || repl == "" {
		return repl
	}
	first := []rune(orig)[0]
	r := []rune(repl)
	if unicode.IsUpper(first) {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}
