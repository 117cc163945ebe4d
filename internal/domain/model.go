package domain

import "time"

// DeepUserModel is a derived, cache-backed snapshot of everything the system
// believes about a user. It is rebuilt from the store on every cache miss and
// is never the source of truth.
type DeepUserModel struct {
	Identity                  UserIdentity
	Behavior                  UserBehavior
	Patterns                  UserPatterns
	Contradictions            ContradictionLayer
	Psychology                UserPsychology
	Predictions               UserPredictions
	Arc                       UserArc
	Learned                   *LearnedUserModel
	ActiveTriggerChainWarning *TriggerChainWarning
	ModelConfidence           ConfidenceLevel
	Volume                    DataVolume
	Recent                    RecentActivity
	BuiltAt                   time.Time
}

// DataVolume counts the stored history behind the model.
type DataVolume struct {
	TotalEvents      int
	TotalCompletions int
	ReflectionCount  int
}

// RecentActivity is the raw tail of the user's history that message
// synthesis reads directly.
type RecentActivity struct {
	Today    string // YYYY-MM-DD in the user's timezone
	Location *time.Location
	// Completions covers the last RecentCompletionDays days.
	Completions []Completion
	// Events covers the last RecentEventWindow, ascending.
	Events []Event
}

const (
	RecentCompletionDays = 14
	RecentEventWindow    = 48 * time.Hour
)

// CompletionsOn returns the completions recorded for one date.
func (r RecentActivity) CompletionsOn(date string) []Completion {
	var out []Completion
	for _, c := range r.Completions {
		if c.Date == date {
			out = append(out, c)
		}
	}
	return out
}

// EventsSince returns the recent events at or after t.
func (r RecentActivity) EventsSince(t time.Time) []Event {
	var out []Event
	for _, e := range r.Events {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

type UserIdentity struct {
	UserID             string
	Name               string
	Email              string
	Timezone           string
	Age                *int
	Purpose            string
	Values             []string
	Vision             string
	BurningQuestion    string
	DiscoveryCompleted bool
	DaysInSystem       int
	CreatedAt          time.Time
}

type HabitSummary struct {
	ID                string
	Title             string
	Streak            int
	LastTick          *time.Time
	CompletionRate7d  int
	CompletionRate30d int
	ScheduledTime     string
	Importance        int
}

type UserBehavior struct {
	Habits               []HabitSummary
	TotalHabits          int
	ActiveHabits         int
	DormantHabits        int
	NeverStartedHabits   int
	LongestCurrentStreak int
	LongestStreakHabit   string
	Last7DaysRate        int
	Last30DaysRate       int
	DaysSinceLastAction  int
	MostActiveHours      []int
	LeastActiveHours     []int
}

// HabitByID returns the summary for id, or nil.
func (b *UserBehavior) HabitByID(id string) *HabitSummary {
	for i := range b.Habits {
		if b.Habits[i].ID == id {
			return &b.Habits[i]
		}
	}
	return nil
}

type DriftWindow struct {
	HourOfDay      int
	DayOfWeek      *time.Weekday
	CompletionRate int
	SampleSize     int
	Description    string
}

type DayOfWeekPattern struct {
	Day            time.Weekday
	DayName        string
	CompletionRate int
	AvgCompletions float64
	IsStrongDay    bool
	IsWeakDay      bool
}

type UserPatterns struct {
	DriftWindows      []DriftWindow
	DayOfWeekPatterns []DayOfWeekPattern
	StrongestDay      *DayOfWeekPattern
	WeakestDay        *DayOfWeekPattern
	EngagementPattern EngagementPattern
	AvoidedHabits     []string
	ConsistencyScore  int
}

type ContradictionLayer struct {
	Active   []Contradiction
	Resolved []Contradiction
	Primary  *Contradiction
}

type UserPsychology struct {
	ShameSensitivity   ShameSensitivity
	RecurringExcuses   []RecurringExcuse
	TimeWasters        []string
	LimitingNarratives []LimitingNarrative
	MotivationStyle    MotivationStyle
}

// TopExcuse returns the most frequent recurring excuse, or nil.
func (p *UserPsychology) TopExcuse() *RecurringExcuse {
	var top *RecurringExcuse
	for i := range p.RecurringExcuses {
		if top == nil || p.RecurringExcuses[i].Frequency > top.Frequency {
			top = &p.RecurringExcuses[i]
		}
	}
	return top
}

type RiskDirection string

const (
	DirectionUp      RiskDirection = "up"
	DirectionDown    RiskDirection = "down"
	DirectionNeutral RiskDirection = "neutral"
)

type RiskFactor struct {
	Key         string
	Description string
	Weight      float64
	Direction   RiskDirection
}

type SlipRiskAssessment struct {
	Probability         float64
	Level               RiskLevel
	Factors             []RiskFactor
	PrimaryFactors      []string
	EstimatedTimeToSlip *int // hours
	Trend               string
}

type StreakRisk struct {
	HabitID    string
	HabitTitle string
	Streak     int
	RiskLevel  RiskLevel
	Reason     string
}

type UserPredictions struct {
	SlipRisk       SlipRiskAssessment
	EngagementRisk SlipRiskAssessment
	StreakRisks    []StreakRisk
}

type UserArc struct {
	Phase         Phase
	DaysInPhase   int
	Milestones    []ArcMilestone
	NextMilestone string
}

// TriggerChainWarning flags that the user's most recent events match the
// leading steps of a learned trigger chain.
type TriggerChainWarning struct {
	ChainID             string
	ChainName           string
	CurrentStage        int
	TotalStages         int
	EstimatedRisk       RiskLevel
	NextEventExpectedBy *time.Time
}
