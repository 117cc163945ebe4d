// Package learning turns raw user activity into the learned model: regex
// classifiers run on every chat message, and a nightly worker re-derives the
// behavioral fingerprint from recent history.
package learning

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

const commitmentTextLimit = 200

// ExcuseClassifier finds excuse phrases in a message.
type ExcuseClassifier interface {
	Excuses(text string) []string
}

// NarrativeMatch is one self-story found in a message.
type NarrativeMatch struct {
	Narrative string
	Sentiment domain.NarrativeSentiment
}

// NarrativeClassifier finds self-stories in a message.
type NarrativeClassifier interface {
	Narratives(text string) []NarrativeMatch
}

// CommitmentClassifier extracts promises from a message. now anchors due
// dates.
type CommitmentClassifier interface {
	Commitments(text string, madeIn domain.MessageType, now time.Time) []domain.CommitmentRecord
}

type labeled struct {
	re    *regexp.Regexp
	label string
}

var excusePatterns = []labeled{
	{regexp.MustCompile(`(?i)didn'?t have time`), "didn't have time"},
	{regexp.MustCompile(`(?i)too tired`), "too tired"},
	{regexp.MustCompile(`(?i)too busy`), "too busy"},
	{regexp.MustCompile(`(?i)forgot`), "forgot"},
	{regexp.MustCompile(`(?i)wasn'?t in the mood`), "wasn't in the mood"},
	{regexp.MustCompile(`(?i)didn'?t feel like it`), "didn't feel like it"},
	{regexp.MustCompile(`(?i)had too much`), "had too much going on"},
	{regexp.MustCompile(`(?i)something came up`), "something came up"},
	{regexp.MustCompile(`(?i)got distracted`), "got distracted"},
	{regexp.MustCompile(`(?i)couldn'?t focus`), "couldn't focus"},
}

var narrativePatterns = []labeled{
	{regexp.MustCompile(`(?i)i always fail`), "I always fail"},
	{regexp.MustCompile(`(?i)i can'?t stay consistent`), "I can't stay consistent"},
	{regexp.MustCompile(`(?i)this is just who i am`), "This is just who I am"},
	{regexp.MustCompile(`(?i)i'?m not disciplined`), "I'm not disciplined"},
	{regexp.MustCompile(`(?i)i never follow through`), "I never follow through"},
	{regexp.MustCompile(`(?i)i'?m bad at`), "I'm bad at this"},
	{regexp.MustCompile(`(?i)it'?s too hard`), "It's too hard"},
}

var commitmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i'?ll do it (tomorrow|later|tonight|this evening)`),
	regexp.MustCompile(`(?i)i promise i'?ll`),
	regexp.MustCompile(`(?i)i'?m going to`),
	regexp.MustCompile(`(?i)starting (tomorrow|monday|next week)`),
}

// RegexExcuses matches the common excuse phrasings.
type RegexExcuses struct{}

func (RegexExcuses) Excuses(text string) []string {
	var out []string
	for _, p := range excusePatterns {
		if p.re.MatchString(text) {
			out = append(out, p.label)
		}
	}
	return out
}

// RegexNarratives matches limiting self-stories.
type RegexNarratives struct{}

func (RegexNarratives) Narratives(text string) []NarrativeMatch {
	var out []NarrativeMatch
	for _, p := range narrativePatterns {
		if p.re.MatchString(text) {
			out = append(out, NarrativeMatch{Narrative: p.label, Sentiment: domain.SentimentLimiting})
		}
	}
	return out
}

// RegexCommitments matches "I'll do it tomorrow" style promises. Every
// matching pattern yields its own record.
type RegexCommitments struct{}

func (RegexCommitments) Commitments(text string, madeIn domain.MessageType, now time.Time) []domain.CommitmentRecord {
	var out []domain.CommitmentRecord
	explicit := strings.Contains(strings.ToLower(text), "promise")
	for _, re := range commitmentPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var when string
		if len(m) > 1 {
			when = strings.ToLower(m[1])
		}
		phrase := when
		if phrase == "" {
			phrase = "tomorrow"
		}
		due := DueDate(phrase, now)
		out = append(out, domain.CommitmentRecord{
			Text:            truncate(text, commitmentTextLimit),
			ExtractedAction: m[0],
			ExtractedTime:   when,
			MadeAt:          now,
			MadeIn:          madeIn,
			DueBy:           &due,
			Status:          domain.CommitmentPending,
			WasExplicit:     explicit,
		})
	}
	return out
}

// DueDate resolves a commitment time phrase. Unknown phrases and "later"
// mean a day from now. "monday" is the next Monday, a week out when today is
// Monday.
func DueDate(phrase string, now time.Time) time.Time {
	switch strings.ToLower(phrase) {
	case "tonight", "this evening":
		y, m, d := now.Date()
		return time.Date(y, m, d, 21, 0, 0, 0, now.Location())
	case "monday":
		days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days)
	case "next week":
		return now.Add(7 * 24 * time.Hour)
	default:
		return now.Add(24 * time.Hour)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Sink receives what the classifiers find. usermodel.LearnedStore
// satisfies it.
type Sink interface {
	AddExcuse(ctx context.Context, userID, phrase string, followedBySlip bool) error
	AddNarrative(ctx context.Context, userID, narrative string, sentiment domain.NarrativeSentiment) error
	AddCommitment(ctx context.Context, userID string, rec domain.CommitmentRecord) (domain.CommitmentRecord, error)
}

// Classifiers bundles the three message classifiers.
type Classifiers struct {
	Excuses     ExcuseClassifier
	Narratives  NarrativeClassifier
	Commitments CommitmentClassifier
}

// DefaultClassifiers returns the regex implementations.
func DefaultClassifiers() Classifiers {
	return Classifiers{
		Excuses:     RegexExcuses{},
		Narratives:  RegexNarratives{},
		Commitments: RegexCommitments{},
	}
}

// Findings is what one message taught us.
type Findings struct {
	Excuses     []string
	Narratives  []NarrativeMatch
	Commitments []domain.CommitmentRecord
}

// Empty reports whether nothing was found.
func (f Findings) Empty() bool {
	return len(f.Excuses) == 0 && len(f.Narratives) == 0 && len(f.Commitments) == 0
}

// Classify runs every classifier over text.
func (c Classifiers) Classify(text string, madeIn domain.MessageType, now time.Time) Findings {
	var f Findings
	if c.Excuses != nil {
		f.Excuses = c.Excuses.Excuses(text)
	}
	if c.Narratives != nil {
		f.Narratives = c.Narratives.Narratives(text)
	}
	if c.Commitments != nil {
		f.Commitments = c.Commitments.Commitments(text, madeIn, now)
	}
	return f
}

// Learn classifies a user message and writes the findings to sink. Every
// write is attempted; the joined errors are returned.
func (c Classifiers) Learn(ctx context.Context, sink Sink, userID, text string, madeIn domain.MessageType, now time.Time) (Findings, error) {
	f := c.Classify(text, madeIn, now)
	var errs []error
	for _, e := range f.Excuses {
		errs = append(errs, sink.AddExcuse(ctx, userID, e, false))
	}
	for _, n := range f.Narratives {
		errs = append(errs, sink.AddNarrative(ctx, userID, n.Narrative, n.Sentiment))
	}
	for i, rec := range f.Commitments {
		stored, err := sink.AddCommitment(ctx, userID, rec)
		if err == nil {
			f.Commitments[i] = stored
		}
		errs = append(errs, err)
	}
	return f, errors.Join(errs...)
}
