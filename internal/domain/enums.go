package domain

import "slices"

type EventType string

const (
	EventHabitTick        EventType = "habit_tick"
	EventHabitAction      EventType = "habit_action"
	EventChatMessage      EventType = "chat_message"
	EventNudge            EventType = "nudge"
	EventCoachBrief       EventType = "coach_brief"
	EventCoachDebrief     EventType = "coach_debrief"
	EventCoachNudge       EventType = "coach_nudge"
	EventCoachLetter      EventType = "coach_letter"
	EventCoachChat        EventType = "coach_chat"
	EventReflectionAnswer EventType = "reflection_answer"
	EventAppSession       EventType = "app_session"
)

// ValidEventTypes is the canonical set of event types accepted at ingestion.
var ValidEventTypes = map[EventType]bool{
	EventHabitTick:        true,
	EventHabitAction:      true,
	EventChatMessage:      true,
	EventNudge:            true,
	EventCoachBrief:       true,
	EventCoachDebrief:     true,
	EventCoachNudge:       true,
	EventCoachLetter:      true,
	EventCoachChat:        true,
	EventReflectionAnswer: true,
	EventAppSession:       true,
}

// IsCoachOutput reports whether the event records a generated coach message.
func (t EventType) IsCoachOutput() bool {
	switch t {
	case EventCoachBrief, EventCoachDebrief, EventCoachNudge, EventCoachLetter, EventCoachChat:
		return true
	}
	return false
}

// IsHabitEvent reports whether the event carries a habit completion signal.
func (t EventType) IsHabitEvent() bool {
	return t == EventHabitTick || t == EventHabitAction
}

// IsNudge reports whether the event is a nudge, either system-sent or generated.
func (t EventType) IsNudge() bool {
	return t == EventNudge || t == EventCoachNudge
}

type MessageType string

const (
	MessageBrief   MessageType = "brief"
	MessageNudge   MessageType = "nudge"
	MessageDebrief MessageType = "debrief"
	MessageLetter  MessageType = "letter"
	MessageChat    MessageType = "chat"
)

// MessageTypes lists every generated message type in a stable order.
var MessageTypes = []MessageType{MessageBrief, MessageNudge, MessageDebrief, MessageLetter, MessageChat}

func (m MessageType) IsValid() bool {
	switch m {
	case MessageBrief, MessageNudge, MessageDebrief, MessageLetter, MessageChat:
		return true
	}
	return false
}

// EventType maps the message type to the coach_* event it is logged as.
func (m MessageType) EventType() EventType {
	return EventType("coach_" + string(m))
}

type ExecutionState string

const (
	StateOnTrack ExecutionState = "ON_TRACK"
	StateMiddle  ExecutionState = "MIDDLE"
	StateSlip    ExecutionState = "SLIP"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFromProbability buckets a probability into a risk level.
func RiskLevelFromProbability(p float64) RiskLevel {
	switch {
	case p >= 0.8:
		return RiskCritical
	case p >= 0.6:
		return RiskHigh
	case p >= 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}

type Authority string

const (
	AuthorityHumble  Authority = "humble"
	AuthorityGrowing Authority = "growing"
	AuthorityEarned  Authority = "earned"
	AuthorityDeep    Authority = "deep"
)

// Rank orders authority levels: humble < growing < earned < deep.
// Unknown values rank below humble.
func (a Authority) Rank() int {
	switch a {
	case AuthorityHumble:
		return 0
	case AuthorityGrowing:
		return 1
	case AuthorityEarned:
		return 2
	case AuthorityDeep:
		return 3
	}
	return -1
}

// MinAuthority returns the lower of two authority levels.
func MinAuthority(a, b Authority) Authority {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}

type DataQuality string

const (
	QualitySparse        DataQuality = "sparse"
	QualityDeveloping    DataQuality = "developing"
	QualityRich          DataQuality = "rich"
	QualityComprehensive DataQuality = "comprehensive"
)

// Rank orders data quality tiers from sparse (0) to comprehensive (3).
func (q DataQuality) Rank() int {
	switch q {
	case QualitySparse:
		return 0
	case QualityDeveloping:
		return 1
	case QualityRich:
		return 2
	case QualityComprehensive:
		return 3
	}
	return -1
}

type Phase string

const (
	PhaseObserver  Phase = "observer"
	PhaseArchitect Phase = "architect"
	PhaseOracle    Phase = "oracle"
)

type EngagementPattern string

const (
	EngagementDailyEngaged   EngagementPattern = "daily_engaged"
	EngagementWeekendWarrior EngagementPattern = "weekend_warrior"
	EngagementWeekdayWarrior EngagementPattern = "weekday_warrior"
	EngagementSporadic       EngagementPattern = "sporadic"
	EngagementFading         EngagementPattern = "fading"
	EngagementGhost          EngagementPattern = "ghost"
	EngagementNewUser        EngagementPattern = "new_user"
)

type ApproachStyle string

const (
	ApproachChallenge   ApproachStyle = "challenge"
	ApproachSupport     ApproachStyle = "support"
	ApproachNeutral     ApproachStyle = "neutral"
	ApproachCelebration ApproachStyle = "celebration"
)

type QuestionFocus string

const (
	FocusCelebrateProgress QuestionFocus = "celebrate_progress"
	FocusClarifyIntention  QuestionFocus = "clarify_intention"
	FocusProbeExcuse       QuestionFocus = "probe_excuse"
	FocusExtractFear       QuestionFocus = "extract_fear"
	FocusConfrontPattern   QuestionFocus = "confront_pattern"
)

type CommitmentStatus string

const (
	CommitmentPending CommitmentStatus = "pending"
	CommitmentKept    CommitmentStatus = "kept"
	CommitmentBroken  CommitmentStatus = "broken"
)

type ConfidenceLevel string

const (
	ConfidenceInsufficient ConfidenceLevel = "insufficient"
	ConfidenceLow          ConfidenceLevel = "low"
	ConfidenceMedium       ConfidenceLevel = "medium"
	ConfidenceHigh         ConfidenceLevel = "high"
)

type RecoveryType string

const (
	RecoveryGradual     RecoveryType = "gradual"
	RecoverySudden      RecoveryType = "sudden"
	RecoveryOscillating RecoveryType = "oscillating"
)

type ChallengeType string

const (
	ChallengeRise    ChallengeType = "rise"
	ChallengeRetreat ChallengeType = "retreat"
	ChallengeFreeze  ChallengeType = "freeze"
)

type CelebrationType string

const (
	CelebrationCoast      CelebrationType = "coast"
	CelebrationAccelerate CelebrationType = "accelerate"
	CelebrationMaintain   CelebrationType = "maintain"
)

type MotivationStyle string

const (
	MotivationProgress    MotivationStyle = "progress"
	MotivationFear        MotivationStyle = "fear"
	MotivationIdentity    MotivationStyle = "identity"
	MotivationSocial      MotivationStyle = "social"
	MotivationCompetition MotivationStyle = "competition"
	MotivationUnknown     MotivationStyle = "unknown"
)

type NarrativeSentiment string

const (
	SentimentLimiting   NarrativeSentiment = "limiting"
	SentimentEmpowering NarrativeSentiment = "empowering"
	SentimentNeutral    NarrativeSentiment = "neutral"
)

func oneOf[T comparable](v T, set ...T) bool { return slices.Contains(set, v) }

func (t EventType) IsValid() bool { return ValidEventTypes[t] }
func (a Authority) IsValid() bool { return a.Rank() >= 0 }
func (q DataQuality) IsValid() bool { return q.Rank() >= 0 }
func (s ExecutionState) IsValid() bool { return oneOf(s, StateOnTrack, StateMiddle, StateSlip) }
func (r RiskLevel) IsValid() bool { return oneOf(r, RiskLow, RiskMedium, RiskHigh, RiskCritical) }
func (p Phase) IsValid() bool { return oneOf(p, PhaseObserver, PhaseArchitect, PhaseOracle) }
func (s CommitmentStatus) IsValid() bool { return oneOf(s, CommitmentPending, CommitmentKept, CommitmentBroken) }
func (r RecoveryType) IsValid() bool { return oneOf(r, RecoveryGradual, RecoverySudden, RecoveryOscillating) }
func (c ChallengeType) IsValid() bool { return oneOf(c, ChallengeRise, ChallengeRetreat, ChallengeFreeze) }
func (c CelebrationType) IsValid() bool { return oneOf(c, CelebrationCoast, CelebrationAccelerate, CelebrationMaintain) }
func (s NarrativeSentiment) IsValid() bool { return oneOf(s, SentimentLimiting, SentimentEmpowering, SentimentNeutral) }

func (e EngagementPattern) IsValid() bool {
	return oneOf(e, EngagementDailyEngaged, EngagementWeekendWarrior, EngagementWeekdayWarrior,
		EngagementSporadic, EngagementFading, EngagementGhost, EngagementNewUser)
}

func (a ApproachStyle) IsValid() bool {
	return oneOf(a, ApproachChallenge, ApproachSupport, ApproachNeutral, ApproachCelebration)
}

func (f QuestionFocus) IsValid() bool {
	return oneOf(f, FocusCelebrateProgress, FocusClarifyIntention, FocusProbeExcuse, FocusExtractFear, FocusConfrontPattern)
}

func (c ConfidenceLevel) IsValid() bool {
	return oneOf(c, ConfidenceInsufficient, ConfidenceLow, ConfidenceMedium, ConfidenceHigh)
}

func (m MotivationStyle) IsValid() bool {
	return oneOf(m, MotivationProgress, MotivationFear, MotivationIdentity, MotivationSocial,
		MotivationCompetition, MotivationUnknown)
}
