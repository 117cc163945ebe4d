package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

const (
	commitmentCheckWindow = 7 * 24 * time.Hour
	patternSurfaceMinDays = 14
)

type ConversationContext struct {
	RecentMessages []domain.ChatTurn
	EmotionalTone  string
	TopicThread    string
}

// Chat is the chat reply projection.
type Chat struct {
	*Base
	Conversation       ConversationContext
	Curiosities        []string
	PatternsToSurface  []string
	CommitmentsToCheck []domain.CommitmentRecord
	Psychology         domain.UserPsychology
}

func (s *Synthesizer) ForChat(ctx context.Context, userID string, history []domain.ChatTurn) (*Chat, error) {
	m, base, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ChatFrom(m, base, history), nil
}

// ChatFrom extends a base projection with the conversation so far.
func ChatFrom(m *domain.DeepUserModel, base *Base, history []domain.ChatTurn) *Chat {
	conv := AnalyzeConversation(history)
	return &Chat{
		Base:               base,
		Conversation:       conv,
		Curiosities:        curiosities(m, conv.TopicThread),
		PatternsToSurface:  patternsToSurface(m),
		CommitmentsToCheck: recentCommitments(m, base.Now),
		Psychology:         m.Psychology,
	}
}

type keywordRule struct {
	label string
	words []string
}

var toneRules = []keywordRule{
	{"frustrated", []string{"frustrated", "angry", "annoyed"}},
	{"energized", []string{"happy", "great", "excited"}},
	{"depleted", []string{"tired", "exhausted", "burnt"}},
	{"confused", []string{"confused", "lost", "don't know"}},
}

var topicRules = []keywordRule{
	{"habits", []string{"streak", "habit"}},
	{"purpose", []string{"goal", "purpose", "why"}},
	{"recovery", []string{"slip", "fail", "miss"}},
}

// AnalyzeConversation keeps the last ten turns and reads a tone from the
// latest user turn and a topic from the whole window.
func AnalyzeConversation(history []domain.ChatTurn) ConversationContext {
	recent := history
	if len(recent) > chatHistoryLimit {
		recent = recent[len(recent)-chatHistoryLimit:]
	}
	c := ConversationContext{
		RecentMessages: append([]domain.ChatTurn{}, recent...),
		EmotionalTone:  "neutral",
	}

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == "user" {
			c.EmotionalTone = firstMatch(strings.ToLower(recent[i].Content), toneRules, "neutral")
			break
		}
	}

	var all strings.Builder
	for _, t := range recent {
		all.WriteString(strings.ToLower(t.Content))
		all.WriteByte(' ')
	}
	c.TopicThread = firstMatch(all.String(), topicRules, "")
	return c
}

func firstMatch(text string, rules []keywordRule, fallback string) string {
	for _, r := range rules {
		if containsAny(text, r.words) {
			return r.label
		}
	}
	return fallback
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func curiosities(m *domain.DeepUserModel, topic string) []string {
	out := []string{}
	if top := m.Psychology.TopExcuse(); top != nil {
		out = append(out, fmt.Sprintf("What's really behind %q?", top.Phrase))
	}
	if c := m.Contradictions.Primary; c != nil {
		out = append(out, "How do they explain the gap: "+c.Description)
	}
	if avoided := habitTitles(&m.Behavior, m.Patterns.AvoidedHabits); len(avoided) > 0 {
		out = append(out, fmt.Sprintf("Why do they keep avoiding %s?", strings.Join(avoided, ", ")))
	}
	if topic == "recovery" && m.Behavior.DaysSinceLastAction > 2 {
		out = append(out, "What specifically pulled them away?")
	}
	return out
}

// patternsToSurface is empty before day 14.
func patternsToSurface(m *domain.DeepUserModel) []string {
	out := []string{}
	if m.Identity.DaysInSystem < patternSurfaceMinDays {
		return out
	}
	if w := m.Patterns.WeakestDay; w != nil {
		out = append(out, fmt.Sprintf("%s is consistently their weak day", w.DayName))
	}
	if len(m.Patterns.DriftWindows) > 0 {
		d := m.Patterns.DriftWindows[0]
		out = append(out, fmt.Sprintf("They drift around %s (%d%% completion)", hourLabel(d.HourOfDay), d.CompletionRate))
	}
	if fp := fingerprint(m); fp != nil && fp.CelebrationTrap.Type == domain.CelebrationCoast {
		out = append(out, "They tend to coast after hitting milestones")
	}
	return out
}

func recentCommitments(m *domain.DeepUserModel, now time.Time) []domain.CommitmentRecord {
	out := []domain.CommitmentRecord{}
	cutoff := now.Add(-commitmentCheckWindow)
	for _, c := range m.Learned.PendingCommitments() {
		if c.MadeAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}
