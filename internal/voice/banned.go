package voice

import "strings"

var bannedPhrases = []string{
	// therapy language
	"i hear you",
	"that must be hard",
	"holding space",
	"safe to feel",
	"your feelings are valid",
	"be gentle with yourself",
	"self-compassion",
	"process your emotions",

	// coaching cliches
	"you've got this",
	"believe in yourself",
	"stay focused",
	"keep pushing",
	"you're doing great",
	"i'm proud of you",
	"crushing it",
	"amazing progress",
	"stay positive",
	"keep going",
	"don't give up",

	// corporate
	"optimize",
	"productivity journey",
	"actionable steps",
	"leverage",
	"best practices",
	"moving forward",
	"circle back",

	// guru
	"the universe",
	"your journey",
	"inner wisdom",
	"manifest",
	"alignment",
	"vibration",
	"energy",
	"abundance mindset",
	"tapestry",
	"unfolding",
}

// BannedPhrases returns a copy of the banned list, lowercased.
func BannedPhrases() []string {
	return append([]string(nil), bannedPhrases...)
}

// ContainsBannedPhrase returns the first banned phrase found in text,
// matching case-insensitively.
func ContainsBannedPhrase(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range bannedPhrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// bannedIn lists every banned phrase in already-lowercased text.
func bannedIn(lower string) []string {
	var out []string
	for _, p := range bannedPhrases {
		if strings.Contains(lower, p) {
			out = append(out, p)
		}
	}
	return out
}
