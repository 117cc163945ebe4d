package domain

import (
	"strings"
	"time"
)

type User struct {
	ID        string
	Name      string
	Email     string
	Timezone  string
	CreatedAt time.Time
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DisplayName returns the name used in generated text: the stored name, the
// email local part, or "Friend".
func (u *User) DisplayName() string {
	if u == nil {
		return "Friend"
	}
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return "Friend"
}

// DaysInSystem is the number of whole days between account creation and now.
func (u *User) DaysInSystem(now time.Time) int {
	if u == nil || u.CreatedAt.IsZero() {
		return 0
	}
	d := int(now.Sub(u.CreatedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// UserFacts holds what the user told the system about themselves, plus
// stored contradictions. Persisted as one JSON document per user.
type UserFacts struct {
	UserID             string          `json:"-"`
	Purpose            string          `json:"purpose,omitempty"`
	Values             []string        `json:"values,omitempty"`
	Vision             string          `json:"vision,omitempty"`
	BurningQuestion    string          `json:"burningQuestion,omitempty"`
	Age                *int            `json:"age,omitempty"`
	DiscoveryCompleted bool            `json:"discoveryCompleted"`
	TimeWasters        []string        `json:"timeWasters,omitempty"`
	MotivationStyle    MotivationStyle `json:"motivationStyle,omitempty"`
	Contradictions     []Contradiction `json:"contradictions,omitempty"`
	UpdatedAt          time.Time       `json:"-"`
}

type ContradictionStatus string

const (
	ContradictionActive   ContradictionStatus = "active"
	ContradictionResolved ContradictionStatus = "resolved"
)

// Contradiction is a stated goal the user's behavior keeps disagreeing with.
type Contradiction struct {
	ID            string              `json:"id"`
	Description   string              `json:"description"`
	Evidence      string              `json:"evidence"`
	Severity      int                 `json:"severity"`
	Status        ContradictionStatus `json:"status"`
	DiscoveredAt  time.Time           `json:"discoveredAt"`
	LastUpdatedAt time.Time           `json:"lastUpdatedAt"`
}
