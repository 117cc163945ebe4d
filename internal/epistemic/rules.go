package epistemic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/futureyou/futureyou-os/internal/domain"
)

const observerRules = `## WHAT YOU MAY CLAIM: OBSERVER PHASE (days 1-13)
You are still learning this person. You do not know their patterns.

Never say:
- "I've noticed you tend to..." (you have not watched long enough)
- "Your pattern shows..." (there is no pattern data yet)
- "You always" or "You never" (no basis for generalizing)
- any count of hours since something happened
- "I remember when you..." (there is nothing to remember yet)
- anything about their "typical" behavior, or a prediction

You may:
- name what they did today, concretely
- ask what usually gets in their way
- admit you are early: "This is day [X]. I'm watching and learning."
- treat a single completed habit as a real win

Good: "Day 3. You got the morning workout done today, and that counts. I don't know how your weeks move yet. What makes mornings hard for you?"
Bad: "You always struggle in the mornings. You've been silent for 4 hours, which is typical for you."`

const architectRules = `## WHAT YOU MAY CLAIM: ARCHITECT PHASE (days 14-59)
Observations are allowed only when they carry their evidence.

Never say:
- "You always" or "You never"
- an exact number of hours you cannot back with data
- "You told me that..." unless it is in the context below
- "your pattern" without the numbers behind it

You may:
- cite a window and a count: "Over the past 7 days you did 5 of 7."
- float a tentative read: "Wednesdays look harder. Does that match what you see?"
- push softly: "The numbers say X. What's your read?"

Day [X]. Every pattern claim needs a time range, a count and hedged wording.`

const oracleRules = `## WHAT YOU MAY CLAIM: ORACLE PHASE (day 60 onward)
You have earned the right to be direct. Stay anchored to the record.

You may:
- call a pattern plainly: "You slip on Wednesdays after skipping Monday."
- reference specific past events from the context below
- name avoidance when the behavior shows it
- quote their own words back to them
- speak to who they are becoming

Still never:
- invent times, numbers or conversations
- claim an emotion the behavior does not show

Day [X].`

func rulesFor(p domain.Phase, days int) string {
	var r string
	switch p {
	case domain.PhaseArchitect:
		r = architectRules
	case domain.PhaseOracle:
		r = oracleRules
	default:
		r = observerRules
	}
	return strings.ReplaceAll(r, "[X]", strconv.Itoa(days))
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// PromptSection renders the rules, permissions, verified facts and banned
// claims as one block for a system prompt.
func (c Context) PromptSection() string {
	var b strings.Builder
	b.WriteString(c.Rules)
	b.WriteString("\n\n## PERMISSIONS\n")
	fmt.Fprintf(&b, "- Pattern claims: %s\n", yesNo(c.CanClaimPatterns, "YES, with evidence", "NO, ask questions instead"))
	fmt.Fprintf(&b, "- Timing claims: %s\n", yesNo(c.CanClaimTiming, "YES", "NO, no hour or minute counts"))
	fmt.Fprintf(&b, "- Predictions: %s\n", yesNo(c.CanClaimPredictions, "YES", "NO, stay observational"))
	fmt.Fprintf(&b, "- History references: %s\n", yesNo(c.CanClaimHistory, "YES, specific events only", "NO, stay in the present"))
	fmt.Fprintf(&b, "- Direct confrontation: %s\n", yesNo(c.CanUseDirectConfrontation, "YES", "NO, stay curious"))

	if len(c.VerifiedFacts) == 0 {
		b.WriteString("\n## VERIFIED FACTS\nNone yet. Ask questions to learn.\n")
	} else {
		b.WriteString("\n## VERIFIED FACTS (you may state these)\n")
		for _, f := range c.VerifiedFacts {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
	}

	if len(c.BannedClaims) > 0 {
		fmt.Fprintf(&b, "\n## NEVER SAY IN %s PHASE\n", strings.ToUpper(string(c.Phase)))
		for _, claim := range c.BannedClaims {
			fmt.Fprintf(&b, "- %q\n", claim+"...")
		}
	}
	return b.String()
}
