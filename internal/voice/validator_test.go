package voice

import (
	"strings"
	"testing"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanBrief = `Sam, three days straight on the gym and your reading streak is at nine.
Yesterday you finished two of three habits, and the one you skipped was meditation again.

Today the plan is simple: gym before work, ten pages tonight.
What made meditation slide yesterday?
What would make it easy to do right after the gym?`

func codes(r Result) []Code {
	out := make([]Code, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Code
	}
	return out
}

func TestValidate_CleanBriefPasses(t *testing.T) {
	r := Validate(cleanBrief, Options{MessageType: domain.MessageBrief, UserName: "Sam"})

	assert.True(t, r.Passed, r.Messages())
	assert.Empty(t, r.Violations)
	assert.Equal(t, SeverityNone, r.Severity)
	assert.Empty(t, r.Feedback())
}

func TestValidate_EveryBannedPhraseFails(t *testing.T) {
	for _, phrase := range BannedPhrases() {
		t.Run(phrase, func(t *testing.T) {
			text := strings.Replace(cleanBrief, "Today the plan", strings.ToUpper(phrase[:1])+phrase[1:]+". Today the plan", 1)

			r := Validate(text, Options{MessageType: domain.MessageBrief, UserName: "Sam"})
			require.False(t, r.Passed)
			assert.Equal(t, SeverityCritical, r.Severity)

			var phrases []string
			for _, v := range r.Violations {
				if v.Code == CodeBannedPhrase {
					phrases = append(phrases, v.Phrase)
				}
			}
			assert.Contains(t, phrases, phrase)
		})
	}
}

func TestValidate_GenericAI(t *testing.T) {
	text := cleanBrief + "\nAs an AI, I'm happy to help with anything else."
	r := Validate(text, Options{MessageType: domain.MessageBrief, UserName: "Sam"})

	assert.False(t, r.Passed)
	assert.Equal(t, SeverityCritical, r.Severity)
	assert.Equal(t, []Code{CodeGenericAI, CodeGenericAI}, codes(r))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	r := Validate("ok [HABIT]", Options{MessageType: domain.MessageBrief, UserName: "Sam"})

	assert.Equal(t, []Code{
		CodeMissingQuestions,
		CodeTooShort,
		CodeMissingDirectAddress,
		CodeMissingName,
		CodeUnfilledPlaceholder,
	}, codes(r))
	assert.Equal(t, SeverityMajor, r.Severity)
	assert.Equal(t, "MISSING_QUESTIONS: found 0, need 2", r.Messages()[0])
}

func TestValidate_MinorSeverity(t *testing.T) {
	text := strings.Replace(cleanBrief, "What would make it easy to do right after the gym?", "Do it right after the gym.", 1)
	r := Validate(text, Options{MessageType: domain.MessageBrief, UserName: "Sam"})

	assert.Equal(t, []Code{CodeMissingQuestions}, codes(r))
	assert.Equal(t, SeverityMinor, r.Severity)
	assert.Contains(t, r.Feedback(), "- MISSING_QUESTIONS: found 1, need 2")
}

func TestValidate_TooLong(t *testing.T) {
	text := "Sam, " + strings.Repeat("move. ", 70)
	r := Validate(text, Options{MessageType: domain.MessageNudge, UserName: "Sam"})

	assert.Equal(t, []Code{CodeTooLong}, codes(r))
}

func TestValidate_NudgeMayOmitName(t *testing.T) {
	r := Validate("Listen, one small action right now beats a perfect plan for later.", Options{MessageType: domain.MessageNudge, UserName: "Sam"})
	assert.True(t, r.Passed, r.Messages())
}

func TestValidate_ChatSkipsDirectAddress(t *testing.T) {
	r := Validate("that sounds like the same Tuesday dip, Sam. what happened after lunch?", Options{MessageType: domain.MessageChat, UserName: "Sam"})
	assert.True(t, r.Passed, r.Messages())

	r = Validate("that sounds like the same Tuesday dip, Sam. what happened after lunch?", Options{MessageType: domain.MessageNudge, UserName: "Sam"})
	assert.Equal(t, []Code{CodeMissingDirectAddress}, codes(r))
}

func TestValidate_DirectAddressForms(t *testing.T) {
	starts := []string{
		"Sam, ",
		"sam ",
		"Listen. ",
		"hey ",
		"Yesterday ",
		"This week ",
		"Alex… ",
	}
	for _, s := range starts {
		r := Validate(s+"one small action right now beats a perfect plan for later.", Options{MessageType: domain.MessageNudge, UserName: "sam"})
		assert.NotContains(t, codes(r), CodeMissingDirectAddress, s)
	}
}

func TestValidate_NameIsCaseInsensitive(t *testing.T) {
	text := strings.Replace(cleanBrief, "Sam,", "SAM,", 1)
	r := Validate(text, Options{MessageType: domain.MessageBrief, UserName: "sam"})
	assert.True(t, r.Passed, r.Messages())
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	// 50 runes, more bytes.
	text := "Sam… " + strings.Repeat("é", 45)
	r := Validate(text, Options{MessageType: domain.MessageNudge})
	assert.NotContains(t, codes(r), CodeTooShort)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"filler", "Sure, [NAME], one thing today.", "[NAME], one thing today."},
		{"filler case", "here's the deal.", "the deal."},
		{"name", "[NAME], go. [NAME] knows.", "Sam, go. Sam knows."},
		{"blank lines", "Sam,\n\n\n\nnext.", "Sam,\n\nnext."},
		{"trim", "  Sam, go.  \n", "Sam, go."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "Sam"
			if tt.name == "filler" {
				name = ""
			}
			assert.Equal(t, tt.want, Clean(tt.in, name))
		})
	}
}

func TestContainsBannedPhrase(t *testing.T) {
	p, ok := ContainsBannedPhrase("Honestly, YOU'VE GOT THIS.")
	assert.True(t, ok)
	assert.Equal(t, "you've got this", p)

	_, ok = ContainsBannedPhrase(cleanBrief)
	assert.False(t, ok)
}

func TestBannedPhrases_ReturnsCopy(t *testing.T) {
	list := BannedPhrases()
	list[0] = "mutated"
	assert.NotEqual(t, "mutated", BannedPhrases()[0])
}
