package learning

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/behavior"
	"github.com/futureyou/futureyou-os/internal/domain"
)

const (
	day = 24 * time.Hour

	// ResponseWindow is how long after a nudge or message activity still
	// counts as a response to it.
	ResponseWindow = 6 * time.Hour

	preGhostWindow    = 48 * time.Hour
	recoveryDays      = 7
	milestoneWindow   = 3 * day
	milestoneInterval = 7

	suddenDayThreshold   = 2
	oscillatingVariance  = 2
	crashRatio           = 0.5
	defaultRecoveryDays  = 3
	defaultCrashRisk     = 0.3
	riseRateThreshold    = 0.5
	retreatRateThreshold = 0.4
	noNudgeConfidence    = 0.3
	coastRatio           = 0.5
	accelerateRatio      = 1.2
	celebrationShare     = 0.4

	shameBase              = 0.5
	shameAfterConfront     = 0.1
	shameAfterStreakBreak  = 0.15
	shameAfterIgnoredNudge = 0.1
	brokenStreakMin        = 7
	multiNudgeDaysMin      = 3

	minChainOccurrences = 2
	maxTriggerChains    = 5
	chainSignatureLen   = 3
	chainWindowHours    = 24

	minMessagesForPattern   = 5
	defaultOptimalIntensity = 5
)

var defaultRiskDays = []int{7, 14, 30}

func completed(e domain.Event) bool {
	switch p := e.Payload.(type) {
	case domain.HabitTickPayload:
		return p.Completed
	case domain.HabitActionPayload:
		return p.Completed
	}
	return false
}

func missed(e domain.Event) bool {
	switch p := e.Payload.(type) {
	case domain.HabitTickPayload:
		return !p.Completed
	case domain.HabitActionPayload:
		return !p.Completed
	}
	return false
}

func isNudge(e domain.Event) bool {
	return e.Type == domain.EventNudge || e.Type == domain.EventCoachNudge
}

// within returns the events strictly between from and to.
func within(events []domain.Event, from, to time.Time) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if e.Timestamp.After(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

func countCompleted(events []domain.Event) int {
	n := 0
	for _, e := range events {
		if completed(e) {
			n++
		}
	}
	return n
}

// DetectGhostPeriods sorts a copy of events and returns every silence of
// at least behavior.GhostGap.
func DetectGhostPeriods(events []domain.Event) []behavior.GhostPeriod {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b domain.Event) int { return a.Timestamp.Compare(b.Timestamp) })
	return behavior.GhostPeriods(sorted, behavior.GhostGap)
}

// recoveryCurve counts completions per day for the week after a ghost ends.
func recoveryCurve(events []domain.Event, g behavior.GhostPeriod) []int {
	curve := make([]int, recoveryDays)
	for _, e := range events {
		if !completed(e) || e.Timestamp.Before(g.End) {
			continue
		}
		d := int(e.Timestamp.Sub(g.End) / day)
		if d < recoveryDays {
			curve[d]++
		}
	}
	return curve
}

func variance(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean := sum / float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (float64(x) - mean) * (float64(x) - mean)
	}
	return v / float64(len(xs))
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func classifyRecovery(curve []int) domain.RecoveryType {
	switch {
	case curve[0] > suddenDayThreshold && curve[1] > suddenDayThreshold:
		return domain.RecoverySudden
	case variance(curve) > oscillatingVariance:
		return domain.RecoveryOscillating
	}
	return domain.RecoveryGradual
}

// InferRecoveryStyle classifies each ghost period's recovery week and takes
// the majority. Ties resolve gradual, then sudden, then oscillating.
func InferRecoveryStyle(events []domain.Event, ghosts []behavior.GhostPeriod) domain.RecoveryStyle {
	if len(ghosts) == 0 {
		return domain.RecoveryStyle{
			Type:                  domain.RecoveryGradual,
			AvgRecoveryDays:       defaultRecoveryDays,
			NeedsSmallWins:        true,
			CrashRiskAfterRestart: defaultCrashRisk,
			Evidence:              []string{},
		}
	}

	votes := map[domain.RecoveryType]int{}
	crashes, daysToGood := 0, 0
	for _, g := range ghosts {
		curve := recoveryCurve(events, g)
		votes[classifyRecovery(curve)]++
		if float64(sum(curve[4:])) < float64(sum(curve[:3]))*crashRatio {
			crashes++
		}
		first := slices.IndexFunc(curve, func(n int) bool { return n >= suddenDayThreshold })
		if first == -1 {
			first = recoveryDays
		}
		daysToGood += first
	}

	winner := domain.RecoveryGradual
	for _, t := range []domain.RecoveryType{domain.RecoverySudden, domain.RecoveryOscillating} {
		if votes[t] > votes[winner] {
			winner = t
		}
	}

	n := float64(len(ghosts))
	style := domain.RecoveryStyle{
		Type:                  winner,
		AvgRecoveryDays:       int(math.Round(float64(daysToGood) / n)),
		NeedsSmallWins:        winner == domain.RecoveryGradual,
		CrashRiskAfterRestart: float64(crashes) / n,
		Evidence:              []string{},
	}
	switch winner {
	case domain.RecoverySudden:
		style.Evidence = append(style.Evidence, "High activity immediately after returning")
		if style.CrashRiskAfterRestart > crashRatio {
			style.Evidence = append(style.Evidence, "Tends to crash after the initial restart burst")
		}
	case domain.RecoveryOscillating:
		style.Evidence = append(style.Evidence, "Inconsistent recovery with good days and bad days")
	default:
		style.Evidence = append(style.Evidence, "Slow, steady recovery")
	}
	return style
}

// InferChallengeResponse looks at the ResponseWindow after every nudge. A
// completion is a rise, silence is a retreat and anything else a freeze.
func InferChallengeResponse(events []domain.Event) domain.ChallengeResponse {
	var rise, retreat, freeze int
	for _, n := range events {
		if !isNudge(n) {
			continue
		}
		after := within(events, n.Timestamp, n.Timestamp.Add(ResponseWindow))
		switch {
		case countCompleted(after) > 0:
			rise++
		case len(after) == 0:
			retreat++
		default:
			freeze++
		}
	}

	total := rise + retreat + freeze
	if total == 0 {
		return domain.ChallengeResponse{
			Type:       domain.ChallengeRise,
			Confidence: noNudgeConfidence,
			Evidence:   []string{"Not enough nudge data to determine a pattern"},
		}
	}

	riseRate := float64(rise) / float64(total)
	retreatRate := float64(retreat) / float64(total)
	out := domain.ChallengeResponse{Confidence: math.Min(float64(total)/10, 1)}
	switch {
	case riseRate >= riseRateThreshold:
		out.Type = domain.ChallengeRise
		out.Evidence = []string{fmt.Sprintf("Completes habits after %d%% of nudges", percent(riseRate))}
	case retreatRate >= retreatRateThreshold:
		out.Type = domain.ChallengeRetreat
		out.Evidence = []string{fmt.Sprintf("Goes quiet after %d%% of nudges", percent(retreatRate))}
	default:
		out.Type = domain.ChallengeFreeze
		out.Evidence = []string{"Reads nudges but rarely acts right away"}
	}
	return out
}

func percent(r float64) int { return int(math.Round(r * 100)) }

// InferCelebrationTrap compares completions in the three days after each
// multiple-of-seven streak milestone with the user's typical three days.
// lookbackDays is the span events covers.
func InferCelebrationTrap(events []domain.Event, lookbackDays int) domain.CelebrationTrap {
	var milestones []time.Time
	for _, e := range events {
		p, ok := e.Payload.(domain.HabitTickPayload)
		if ok && p.Completed && p.Streak >= milestoneInterval && p.Streak%milestoneInterval == 0 {
			milestones = append(milestones, e.Timestamp)
		}
	}
	if len(milestones) < 2 || lookbackDays <= 0 {
		return domain.CelebrationTrap{
			Type:                domain.CelebrationMaintain,
			RiskDaysAfterStreak: slices.Clone(defaultRiskDays),
			Evidence:            []string{"Not enough streak data"},
		}
	}

	expected := float64(countCompleted(events)) / float64(lookbackDays) * 3
	var coast, accelerate int
	for _, at := range milestones {
		got := float64(countCompleted(within(events, at, at.Add(milestoneWindow))))
		switch {
		case got < expected*coastRatio:
			coast++
		case got > expected*accelerateRatio:
			accelerate++
		}
	}

	n := float64(len(milestones))
	switch {
	case float64(coast)/n > celebrationShare:
		return domain.CelebrationTrap{
			Type:                domain.CelebrationCoast,
			RiskDaysAfterStreak: []int{1, 2, 3},
			Evidence:            []string{"Eases up after hitting milestones"},
		}
	case float64(accelerate)/n > celebrationShare:
		return domain.CelebrationTrap{
			Type:                domain.CelebrationAccelerate,
			RiskDaysAfterStreak: slices.Clone(defaultRiskDays),
			Evidence:            []string{"Gains momentum after hitting milestones"},
		}
	}
	return domain.CelebrationTrap{
		Type:                domain.CelebrationMaintain,
		RiskDaysAfterStreak: slices.Clone(defaultRiskDays),
		Evidence:            []string{"Keeps a steady pace regardless of milestones"},
	}
}

// InferSlipSignature describes what the 48 hours before a ghost look like
// and what usually brings the user back.
func InferSlipSignature(events []domain.Event, ghosts []behavior.GhostPeriod, excuses []domain.RecurringExcuse) domain.SlipSignature {
	sig := domain.SlipSignature{
		WarningBehaviors: []string{},
		TypicalExcuses:   []string{},
		AvgGhostDuration: defaultRecoveryDays,
	}

	seen := map[string]bool{}
	warn := func(s string) {
		if !seen[s] {
			seen[s] = true
			sig.WarningBehaviors = append(sig.WarningBehaviors, s)
		}
	}
	returns := map[domain.EventType]int{}
	var order []domain.EventType
	totalDays := 0
	for _, g := range ghosts {
		before := within(events, g.Start.Add(-preGhostWindow), g.Start)
		short, misses := 0, 0
		for _, e := range before {
			if p, ok := e.Payload.(domain.AppSessionPayload); ok && p.DurationSeconds < 30 {
				short++
			}
			if missed(e) {
				misses++
			}
		}
		if short > 2 {
			warn("Short app sessions, checking without engaging")
		}
		if misses > 3 {
			warn("Several missed habits in a short period")
		}
		if returns[g.RecoveredWith] == 0 {
			order = append(order, g.RecoveredWith)
		}
		returns[g.RecoveredWith]++
		totalDays += g.DurationDays
	}
	if len(ghosts) > 0 {
		sig.AvgGhostDuration = int(math.Round(float64(totalDays) / float64(len(ghosts))))
	}
	for _, t := range order {
		if returns[t] > returns[sig.ReturnTrigger] {
			sig.ReturnTrigger = t
		}
	}

	ranked := slices.Clone(excuses)
	slices.SortStableFunc(ranked, func(a, b domain.RecurringExcuse) int { return cmp.Compare(b.Frequency, a.Frequency) })
	for _, e := range ranked {
		if len(sig.TypicalExcuses) == 3 {
			break
		}
		if e.Frequency >= 2 {
			sig.TypicalExcuses = append(sig.TypicalExcuses, e.Phrase)
		}
	}
	sig.Confidence = math.Min(float64(len(ghosts))/5, 1)
	return sig
}

var motivationCues = []struct {
	style    domain.MotivationStyle
	keywords []string
	evidence string
}{
	{domain.MotivationProgress, []string{"streak", "progress", "improvement"}, "Responds to streak numbers and progress tracking"},
	{domain.MotivationFear, []string{"afraid", "worried", "don't want to"}, "Motivated by avoiding bad outcomes"},
	{domain.MotivationIdentity, []string{"i am", "type of person", "who i"}, "Uses identity language"},
}

// InferMotivation counts motivational cues in the user's chat messages. The
// style with strictly the most mentions wins; identity wins any tie it is
// part of.
func InferMotivation(events []domain.Event) domain.MotivationProfile {
	counts := make([]int, len(motivationCues))
	for _, e := range events {
		p, ok := e.Payload.(domain.ChatMessagePayload)
		if !ok || p.Role != "user" {
			continue
		}
		text := strings.ToLower(p.Text)
		for i, c := range motivationCues {
			for _, k := range c.keywords {
				if strings.Contains(text, k) {
					counts[i]++
					break
				}
			}
		}
	}

	out := domain.MotivationProfile{Primary: domain.MotivationUnknown, Evidence: []string{}}
	progress, fear, identity := counts[0], counts[1], counts[2]
	switch {
	case progress > fear && progress > identity:
		out.Primary = domain.MotivationProgress
		out.Evidence = append(out.Evidence, motivationCues[0].evidence)
	case fear > progress && fear > identity:
		out.Primary = domain.MotivationFear
		out.Evidence = append(out.Evidence, motivationCues[1].evidence)
	case identity > 0:
		out.Primary = domain.MotivationIdentity
		out.Evidence = append(out.Evidence, motivationCues[2].evidence)
	}
	return out
}

// InferShameSensitivity starts neutral and raises the score for ghosting
// after nudges, ghosting after a broken streak and ignoring repeated
// nudges.
func InferShameSensitivity(events []domain.Event, ghosts []behavior.GhostPeriod) domain.ShameSensitivity {
	s := domain.ShameSensitivity{Score: shameBase}
	points := 0

	ghostWithin := func(at time.Time) bool {
		for _, g := range ghosts {
			if g.Start.After(at) && g.Start.Before(at.Add(preGhostWindow)) {
				return true
			}
		}
		return false
	}

	nudgesByDay := map[string]int{}
	for _, e := range events {
		if isNudge(e) {
			nudgesByDay[e.Timestamp.UTC().Format(domain.DateLayout)]++
			if ghostWithin(e.Timestamp) {
				s.GhostsAfterConfrontation = true
				s.Score += shameAfterConfront
				points++
			}
			continue
		}
		p, ok := e.Payload.(domain.HabitTickPayload)
		if ok && e.Type == domain.EventHabitTick && p.PreviousStreak > brokenStreakMin && p.Streak == 0 && ghostWithin(e.Timestamp) {
			s.GhostsAfterMissedStreak = true
			s.Score += shameAfterStreakBreak
			points++
		}
	}

	busyDays := 0
	for _, n := range nudgesByDay {
		if n >= 2 {
			busyDays++
		}
	}
	if busyDays > multiNudgeDaysMin {
		answered := 0
		for _, e := range events {
			if completed(e) && nudgesByDay[e.Timestamp.UTC().Format(domain.DateLayout)] >= 2 {
				answered++
			}
		}
		if answered < busyDays {
			s.IgnoresAfterMultipleNudge = true
			s.Score += shameAfterIgnoredNudge
			points++
		}
	}

	s.Score = math.Min(math.Max(s.Score, 0), 1)
	switch {
	case s.Score > 0.7:
		s.MaxMessageIntensity = 4
	case s.Score > 0.5:
		s.MaxMessageIntensity = 6
	default:
		s.MaxMessageIntensity = 8
	}
	s.RequiresSoftLanding = s.Score > 0.5
	s.Confidence = math.Min(float64(points)/10, 1)
	s.DataPoints = points
	return s
}

// DetectTriggerChains finds event-type sequences that preceded at least two
// ghost periods. A sequence is the first three event types in the 48 hours
// before a ghost. At most five chains are returned, most frequent first.
func DetectTriggerChains(events []domain.Event, ghosts []behavior.GhostPeriod, now time.Time) []domain.TriggerChain {
	if len(ghosts) < minChainOccurrences {
		return nil
	}

	type group struct {
		types     []domain.EventType
		count     int
		ghostDays int
		last      time.Time
	}
	groups := map[string]*group{}
	var order []string
	for _, g := range ghosts {
		before := within(events, g.Start.Add(-preGhostWindow), g.Start)
		if len(before) < 2 {
			continue
		}
		slices.SortStableFunc(before, func(a, b domain.Event) int { return a.Timestamp.Compare(b.Timestamp) })
		head := before[:min(chainSignatureLen, len(before))]
		types := make([]domain.EventType, len(head))
		parts := make([]string, len(head))
		for i, e := range head {
			types[i] = e.Type
			parts[i] = string(e.Type)
		}
		key := strings.Join(parts, "_")
		gr, ok := groups[key]
		if !ok {
			gr = &group{types: types}
			groups[key] = gr
			order = append(order, key)
		}
		gr.count++
		gr.ghostDays += g.DurationDays
		if head[0].Timestamp.After(gr.last) {
			gr.last = head[0].Timestamp
		}
	}

	var chains []domain.TriggerChain
	for _, key := range order {
		gr := groups[key]
		if gr.count < minChainOccurrences {
			continue
		}
		steps := make([]domain.TriggerChainStep, len(gr.types))
		for i, t := range gr.types {
			steps[i] = domain.TriggerChainStep{EventType: t, Required: i == 0, WindowHours: chainWindowHours}
		}
		chains = append(chains, domain.TriggerChain{
			ID:                      "chain_" + key,
			Name:                    ChainName(gr.types),
			Pattern:                 steps,
			Occurrences:             gr.count,
			LedToSlip:               gr.count,
			SlipProbability:         1,
			AvgTimeToSlipHours:      float64(gr.ghostDays) / float64(gr.count) * 24,
			InterventionPoint:       0,
			RecommendedIntervention: "soft_nudge",
			FirstDetected:           now,
			LastOccurred:            gr.last,
			Confidence:              math.Min(float64(gr.count)/5, 1),
		})
	}
	slices.SortStableFunc(chains, func(a, b domain.TriggerChain) int { return cmp.Compare(b.Occurrences, a.Occurrences) })
	if len(chains) > maxTriggerChains {
		chains = chains[:maxTriggerChains]
	}
	return chains
}

// ChainName labels a chain by its event types.
func ChainName(types []domain.EventType) string {
	if len(types) >= 2 && slices.Contains(types, domain.EventHabitTick) {
		return "missed_habit_spiral"
	}
	if slices.Contains(types, domain.EventAppSession) {
		return "disengagement_drift"
	}
	return "slip_pattern"
}

// Resolution is the verdict on one overdue commitment.
type Resolution struct {
	CommitmentID    string
	Kept            bool
	EvidenceEventID string
}

// ResolveCommitments judges every pending commitment whose due date has
// passed. A completion between making it and its due date means it was
// kept.
func ResolveCommitments(commitments []domain.CommitmentRecord, events []domain.Event, now time.Time) []Resolution {
	var out []Resolution
	for _, c := range commitments {
		if c.Status != domain.CommitmentPending || c.DueBy == nil || !c.DueBy.Before(now) {
			continue
		}
		r := Resolution{CommitmentID: c.ID}
		for _, e := range within(events, c.MadeAt, *c.DueBy) {
			if completed(e) {
				r.Kept = true
				r.EvidenceEventID = e.ID
				break
			}
		}
		out = append(out, r)
	}
	return out
}

var scoredMessages = []domain.MessageType{
	domain.MessageBrief,
	domain.MessageNudge,
	domain.MessageDebrief,
	domain.MessageLetter,
}

// AnalyzeMessageEffectiveness measures, per message type with at least five
// sends, how often any activity followed within ResponseWindow and how many
// completions followed on average.
func AnalyzeMessageEffectiveness(events []domain.Event) []domain.MessagePattern {
	var out []domain.MessagePattern
	for _, t := range scoredMessages {
		var sent []domain.Event
		for _, e := range events {
			if e.Type == t.EventType() || (t == domain.MessageNudge && e.Type == domain.EventNudge) {
				sent = append(sent, e)
			}
		}
		if len(sent) < minMessagesForPattern {
			continue
		}
		responded, completions := 0, 0
		for _, m := range sent {
			after := within(events, m.Timestamp, m.Timestamp.Add(ResponseWindow))
			if len(after) > 0 {
				responded++
			}
			completions += countCompleted(after)
		}
		n := float64(len(sent))
		out = append(out, domain.MessagePattern{
			MessageType:      t,
			Sent:             len(sent),
			ResponseRate:     float64(responded) / n,
			CompletionsAfter: float64(completions) / n,
			OptimalIntensity: defaultOptimalIntensity,
		})
	}
	return out
}

// ConfidenceTier maps an event count onto how far the learned model can be
// trusted.
func ConfidenceTier(events int) domain.ConfidenceLevel {
	switch {
	case events < 20:
		return domain.ConfidenceInsufficient
	case events < 50:
		return domain.ConfidenceLow
	case events < 150:
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceHigh
}
