package voice

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/futureyou/futureyou-os/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed examples.yaml
var examplesYAML []byte

// ProbeType names what a question template is trying to draw out.
type ProbeType string

const (
	ProbeExcuse     ProbeType = "excuse"
	ProbeFear       ProbeType = "fear"
	ProbePattern    ProbeType = "pattern"
	ProbeIdentity   ProbeType = "identity"
	ProbeCommitment ProbeType = "commitment"
	ProbeWin        ProbeType = "win"
)

// anyState marks a question template usable in every execution state.
const anyState = "any"

type QuestionTemplate struct {
	Probe    ProbeType `yaml:"probe"`
	State    string    `yaml:"state"`
	Template string    `yaml:"template"`
}

// state -> message type -> authority -> examples
type exampleTree map[string]map[string]map[string][]string

type bankFile struct {
	Examples  exampleTree        `yaml:"examples"`
	Questions []QuestionTemplate `yaml:"questions"`
}

var bank = mustLoadBank(examplesYAML)

func mustLoadBank(data []byte) bankFile {
	var b bankFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		panic(fmt.Sprintf("voice: parse example bank: %v", err))
	}
	return b
}

func stateKey(s domain.ExecutionState) string {
	return strings.ToLower(string(s))
}

// bankType maps a message type onto the bank section that serves it. Chat
// borrows the nudge examples.
func bankType(t domain.MessageType) string {
	if t == domain.MessageChat {
		return string(domain.MessageNudge)
	}
	return string(t)
}

// Examples returns the hand-written messages for a state, type and
// authority. An authority with no entries falls back to humble.
func Examples(state domain.ExecutionState, t domain.MessageType, a domain.Authority) []string {
	types, ok := bank.Examples[stateKey(state)]
	if !ok {
		return nil
	}
	auths, ok := types[bankType(t)]
	if !ok {
		return nil
	}
	if ex := auths[string(a)]; len(ex) > 0 {
		return append([]string(nil), ex...)
	}
	return append([]string(nil), auths[string(domain.AuthorityHumble)]...)
}

// Fallback returns the static message used when generation fails. It is the
// first example for the tuple with [NAME] filled, so the same inputs always
// give the same text. Unknown states use the middle bank.
func Fallback(state domain.ExecutionState, t domain.MessageType, a domain.Authority, userName string) string {
	ex := Examples(state, t, a)
	if len(ex) == 0 {
		ex = Examples(domain.StateMiddle, t, a)
	}
	if len(ex) == 0 {
		ex = Examples(domain.StateMiddle, domain.MessageNudge, domain.AuthorityHumble)
	}
	name := userName
	if name == "" {
		name = "Hey"
	}
	return Clean(ex[0], name)
}

// QuestionTemplates lists the templates usable in state, optionally narrowed
// to one probe type. An empty probe returns every probe type.
func QuestionTemplates(state domain.ExecutionState, probe ProbeType) []QuestionTemplate {
	key := stateKey(state)
	var out []QuestionTemplate
	for _, q := range bank.Questions {
		if q.State != key && q.State != anyState {
			continue
		}
		if probe != "" && q.Probe != probe {
			continue
		}
		out = append(out, q)
	}
	return out
}

// TemplateData fills question template placeholders. Empty strings leave
// their placeholder in place, where Validate will flag it.
type TemplateData struct {
	Name       string
	Habit      string
	Excuse     string
	Day        string
	Time       string
	Trigger    string
	Commitment string
	Count      int
	Days       int
}

// FillTemplate substitutes data into a question template.
func FillTemplate(template string, d TemplateData) string {
	pairs := []string{
		"[COUNT]", strconv.Itoa(d.Count),
		"[DAYS]", strconv.Itoa(d.Days),
	}
	for _, kv := range [][2]string{
		{"[NAME]", d.Name},
		{"[HABIT]", d.Habit},
		{"[EXCUSE]", d.Excuse},
		{"[DAY]", d.Day},
		{"[TIME]", d.Time},
		{"[TRIGGER]", d.Trigger},
		{"[COMMITMENT]", d.Commitment},
	} {
		if kv[1] != "" {
			pairs = append(pairs, kv[0], kv[1])
		}
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
