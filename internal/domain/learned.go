package domain

import "time"

// LearnedUserModel holds slow-moving inferences written by the nightly
// learning worker and by real-time hooks. It is persisted as a JSON blob and
// only ever changed by merge, never rewritten wholesale.
type LearnedUserModel struct {
	Fingerprint      *BehavioralFingerprint `json:"fingerprint"`
	ShameSensitivity *ShameSensitivity      `json:"shameSensitivity"`
	TriggerChains    []TriggerChain         `json:"triggerChains"`
	MessagePatterns  []MessagePattern       `json:"messagePatterns"`
	Commitments      []CommitmentRecord     `json:"commitments"`
	Excuses          []RecurringExcuse      `json:"excuses"`
	Narratives       []LimitingNarrative    `json:"narratives"`
	DataPointsUsed   int                    `json:"dataPointsUsed"`
	ConfidenceLevel  ConfidenceLevel        `json:"confidenceLevel"`
	Milestones       []ArcMilestone         `json:"milestones"`
}

// LearnedUpdate is a partial update. Nil fields leave the stored value alone.
type LearnedUpdate struct {
	Fingerprint      *BehavioralFingerprint
	ShameSensitivity *ShameSensitivity
	TriggerChains    []TriggerChain
	MessagePatterns  []MessagePattern
	Commitments      []CommitmentRecord
	Excuses          []RecurringExcuse
	Narratives       []LimitingNarrative
	DataPointsUsed   *int
	ConfidenceLevel  *ConfidenceLevel
	Milestones       []ArcMilestone
}

// EmptyLearnedModel returns a model with no inferences and insufficient
// confidence.
func EmptyLearnedModel() *LearnedUserModel {
	return &LearnedUserModel{
		TriggerChains:   []TriggerChain{},
		MessagePatterns: []MessagePattern{},
		Commitments:     []CommitmentRecord{},
		Excuses:         []RecurringExcuse{},
		Narratives:      []LimitingNarrative{},
		ConfidenceLevel: ConfidenceInsufficient,
		Milestones:      []ArcMilestone{},
	}
}

// Normalize fills nil slices and an empty confidence level so a model read
// from an older blob behaves like a fresh one.
func (m *LearnedUserModel) Normalize() *LearnedUserModel {
	if m == nil {
		return nil
	}
	if m.TriggerChains == nil {
		m.TriggerChains = []TriggerChain{}
	}
	if m.MessagePatterns == nil {
		m.MessagePatterns = []MessagePattern{}
	}
	if m.Commitments == nil {
		m.Commitments = []CommitmentRecord{}
	}
	if m.Excuses == nil {
		m.Excuses = []RecurringExcuse{}
	}
	if m.Narratives == nil {
		m.Narratives = []LimitingNarrative{}
	}
	if m.Milestones == nil {
		m.Milestones = []ArcMilestone{}
	}
	if m.ConfidenceLevel == "" {
		m.ConfidenceLevel = ConfidenceInsufficient
	}
	return m
}

// Merge returns a copy of m with every field the update provides replaced.
func (m LearnedUserModel) Merge(u LearnedUpdate) LearnedUserModel {
	out := m
	if u.Fingerprint != nil {
		out.Fingerprint = u.Fingerprint
	}
	if u.ShameSensitivity != nil {
		out.ShameSensitivity = u.ShameSensitivity
	}
	if u.TriggerChains != nil {
		out.TriggerChains = u.TriggerChains
	}
	if u.MessagePatterns != nil {
		out.MessagePatterns = u.MessagePatterns
	}
	if u.Commitments != nil {
		out.Commitments = u.Commitments
	}
	if u.Excuses != nil {
		out.Excuses = u.Excuses
	}
	if u.Narratives != nil {
		out.Narratives = u.Narratives
	}
	if u.DataPointsUsed != nil {
		out.DataPointsUsed = *u.DataPointsUsed
	}
	if u.ConfidenceLevel != nil {
		out.ConfidenceLevel = *u.ConfidenceLevel
	}
	if u.Milestones != nil {
		out.Milestones = u.Milestones
	}
	return out
}

// PendingCommitments returns commitments that are still open.
func (m *LearnedUserModel) PendingCommitments() []CommitmentRecord {
	if m == nil {
		return nil
	}
	var out []CommitmentRecord
	for _, c := range m.Commitments {
		if c.Status == CommitmentPending {
			out = append(out, c)
		}
	}
	return out
}

type ShameSensitivity struct {
	Score                     float64 `json:"score"`
	GhostsAfterMissedStreak   bool    `json:"ghostsAfterMissedStreak"`
	GhostsAfterConfrontation  bool    `json:"ghostsAfterConfrontation"`
	DeletesHabitsAfterFailure bool    `json:"deletesHabitsAfterFailure"`
	RespondsToSoftReentry     bool    `json:"respondsToSoftReentry"`
	IgnoresAfterMultipleNudge bool    `json:"ignoresAfterMultipleNudges"`
	MaxMessageIntensity       int     `json:"maxMessageIntensity"`
	RequiresSoftLanding       bool    `json:"requiresSoftLanding"`
	Confidence                float64 `json:"confidence"`
	DataPoints                int     `json:"dataPoints"`
}

// DefaultShameSensitivity is assumed until the worker has evidence.
func DefaultShameSensitivity() ShameSensitivity {
	return ShameSensitivity{
		Score:               0.5,
		MaxMessageIntensity: 6,
	}
}

type RecurringExcuse struct {
	Phrase                  string     `json:"phrase"`
	Frequency               int        `json:"frequency"`
	LastUsedAt              *time.Time `json:"lastUsedAt"`
	TypicallyFollowedBySlip bool       `json:"typicallyFollowedBySlip"`
}

type LimitingNarrative struct {
	Narrative  string             `json:"narrative"`
	Sentiment  NarrativeSentiment `json:"sentiment"`
	Frequency  int                `json:"frequency"`
	Challenged bool               `json:"challenged"`
	LastSeenAt *time.Time         `json:"lastSeenAt"`
}

type RecoveryStyle struct {
	Type                  RecoveryType `json:"type"`
	AvgRecoveryDays       int          `json:"avgRecoveryDays"`
	NeedsSmallWins        bool         `json:"needsSmallWins"`
	CrashRiskAfterRestart float64      `json:"crashRiskAfterRestart"`
	Evidence              []string     `json:"evidence"`
}

type ChallengeResponse struct {
	Type       ChallengeType `json:"type"`
	Confidence float64       `json:"confidence"`
	Evidence   []string      `json:"evidence"`
}

type CelebrationTrap struct {
	Type                CelebrationType `json:"type"`
	RiskDaysAfterStreak []int           `json:"riskDaysAfterStreak"`
	Evidence            []string        `json:"evidence"`
}

type SlipSignature struct {
	WarningBehaviors []string  `json:"warningBehaviors"`
	TypicalExcuses   []string  `json:"typicalExcuses"`
	AvgGhostDuration int       `json:"avgGhostDuration"`
	ReturnTrigger    EventType `json:"returnTrigger,omitempty"`
	Confidence       float64   `json:"confidence"`
}

type MotivationProfile struct {
	Primary   MotivationStyle `json:"primary"`
	Secondary MotivationStyle `json:"secondary,omitempty"`
	Evidence  []string        `json:"evidence"`
}

type BehavioralFingerprint struct {
	RecoveryStyle     RecoveryStyle     `json:"recoveryStyle"`
	ChallengeResponse ChallengeResponse `json:"challengeResponse"`
	CelebrationTrap   CelebrationTrap   `json:"celebrationTrap"`
	SlipSignature     SlipSignature     `json:"slipSignature"`
	MotivationProfile MotivationProfile `json:"motivationProfile"`
	DataPoints        int               `json:"dataPoints"`
	LastUpdated       time.Time         `json:"lastUpdated"`
}

type TriggerChainStep struct {
	EventType   EventType `json:"eventType"`
	Required    bool      `json:"required"`
	WindowHours int       `json:"windowHours"`
}

// TriggerChain is a recurring short sequence of event types that has
// preceded ghost periods.
type TriggerChain struct {
	ID                      string             `json:"id"`
	Name                    string             `json:"name"`
	Pattern                 []TriggerChainStep `json:"pattern"`
	Occurrences             int                `json:"occurrences"`
	LedToSlip               int                `json:"ledToSlip"`
	SlipProbability         float64            `json:"slipProbability"`
	AvgTimeToSlipHours      float64            `json:"avgTimeToSlipHours"`
	InterventionPoint       int                `json:"interventionPoint"`
	RecommendedIntervention string             `json:"recommendedIntervention"`
	FirstDetected           time.Time          `json:"firstDetected"`
	LastOccurred            time.Time          `json:"lastOccurred"`
	Confidence              float64            `json:"confidence"`
}

type MessagePattern struct {
	MessageType      MessageType `json:"messageType"`
	Sent             int         `json:"sent"`
	ResponseRate     float64     `json:"responseRate"`
	CompletionsAfter float64     `json:"avgCompletionsAfter"`
	OptimalIntensity int         `json:"optimalIntensity"`
}

type CommitmentRecord struct {
	ID                  string           `json:"id"`
	Text                string           `json:"text"`
	ExtractedAction     string           `json:"extractedAction,omitempty"`
	ExtractedTime       string           `json:"extractedTime,omitempty"`
	MadeAt              time.Time        `json:"madeAt"`
	MadeIn              MessageType      `json:"madeIn"`
	DueBy               *time.Time       `json:"dueBy"`
	Status              CommitmentStatus `json:"status"`
	WasExplicit         bool             `json:"wasExplicit"`
	FollowUpSent        bool             `json:"followUpSent"`
	ResolvedAt          *time.Time       `json:"resolvedAt,omitempty"`
	KeptEvidenceEventID string           `json:"keptEvidenceEventId,omitempty"`
}

type ArcMilestone struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	AchievedAt   time.Time `json:"achievedAt"`
	Significance int       `json:"significance"`
}
