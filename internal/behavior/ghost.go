package behavior

import (
	"math"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

// GhostGap is the minimum silence between two consecutive events that counts
// as a ghost period.
const GhostGap = 72 * time.Hour

// GhostPeriod is a silence between two consecutive events.
type GhostPeriod struct {
	Start         time.Time
	End           time.Time
	DurationDays  int
	TriggeredBy   domain.EventType
	RecoveredWith domain.EventType
}

// GhostPeriods scans events (sorted ascending) for gaps of at least minGap.
func GhostPeriods(events []domain.Event, minGap time.Duration) []GhostPeriod {
	var out []GhostPeriod
	for i := 1; i < len(events); i++ {
		prev, next := events[i-1], events[i]
		gap := next.Timestamp.Sub(prev.Timestamp)
		if gap < minGap {
			continue
		}
		out = append(out, GhostPeriod{
			Start:         prev.Timestamp,
			End:           next.Timestamp,
			DurationDays:  int(math.Floor(gap.Hours() / 24)),
			TriggeredBy:   prev.Type,
			RecoveredWith: next.Type,
		})
	}
	return out
}
