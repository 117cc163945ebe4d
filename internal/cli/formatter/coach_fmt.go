package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/coach"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/learning"
	"github.com/futureyou/futureyou-os/internal/service"
)

const textWidth = 72

// FormatCoachOutput renders a generated message in a box with a one-line
// summary of how it was produced.
func FormatCoachOutput(title string, out coach.Output) string {
	m := out.Metadata
	meta := []string{
		StateBadge(m.ExecutionState),
		RiskIndicator(m.RiskLevel),
		Dim(fmt.Sprintf("authority %s · %s data · intensity %d", m.Authority, m.DataQuality, m.Intensity)),
	}
	if m.Trigger != "" {
		meta = append(meta, Dim("trigger "+m.Trigger))
	}
	if m.Fallback {
		meta = append(meta, StyleYellow.Render("fallback"))
	}
	return RenderBox(title, Wrap(out.Text, textWidth)) + "\n" + strings.Join(meta, "  ") + "\n"
}

// FormatHabits renders the habit list with derived streaks.
func FormatHabits(habits []service.HabitStatus, now time.Time) string {
	if len(habits) == 0 {
		return Dim("No habits yet. Add one with: futureyou habit add --title \"...\"") + "\n"
	}
	rows := make([][]string, 0, len(habits))
	for _, st := range habits {
		today := Dim("·")
		if st.DoneToday {
			today = StyleGreen.Render("✓")
		}
		last := Dim("never")
		if st.LastTick != nil {
			last = Ago(*st.LastTick, now)
		}
		schedule := st.Habit.ScheduleTime
		if schedule == "" {
			schedule = Dim("anytime")
		}
		rows = append(rows, []string{
			ShortID(st.Habit.ID),
			st.Habit.Title,
			schedule,
			today,
			ConsistencyBar(st.WeekDone, service.ConsistencyDays),
			Streak(st.Streak),
			last,
		})
	}
	return RenderTable([]string{"ID", "HABIT", "WHEN", "TODAY", "WEEK", "STREAK", "LAST"}, rows)
}

// FormatMessages renders the coach inbox, newest first.
func FormatMessages(msgs []service.Message, now time.Time) string {
	if len(msgs) == 0 {
		return Dim("No messages yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Header("Inbox"))
	b.WriteString("\n")
	for _, m := range msgs {
		label := StyleBold.Render(strings.ToUpper(string(m.Type)))
		fmt.Fprintf(&b, "%s  %s  %s\n", label, StateBadge(m.State), Dim(Ago(m.Timestamp, now)))
		fmt.Fprintf(&b, "  %s\n", Truncate(m.Text, 100))
	}
	return b.String()
}

// FormatUser renders a user's identity and stated facts.
func FormatUser(u *domain.User, facts *domain.UserFacts, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Bold(u.DisplayName()), Dim("("+u.ID+")"))
	fmt.Fprintf(&b, "  timezone  %s\n", u.Location())
	fmt.Fprintf(&b, "  in system %d days\n", u.DaysInSystem(now))
	if facts == nil {
		return b.String()
	}
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "  %-9s %s\n", label, v)
		}
	}
	line("purpose", facts.Purpose)
	line("vision", facts.Vision)
	line("values", strings.Join(facts.Values, ", "))
	line("wasters", strings.Join(facts.TimeWasters, ", "))
	line("style", string(facts.MotivationStyle))
	return b.String()
}

// FormatUsers renders the user list.
func FormatUsers(users []*domain.User, now time.Time) string {
	if len(users) == 0 {
		return Dim("No users yet. Add one with: futureyou user add --name \"...\"") + "\n"
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.ID,
			u.DisplayName(),
			u.Location().String(),
			fmt.Sprintf("%dd", u.DaysInSystem(now)),
		})
	}
	return RenderTable([]string{"ID", "NAME", "TIMEZONE", "IN SYSTEM"}, rows)
}

// FormatLearnReport summarizes one learning run.
func FormatLearnReport(r learning.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s scanned %d · processed %d · skipped %d · failed %d %s\n",
		Bold("Learning run:"), r.Scanned, r.Processed, r.Skipped, r.Failed,
		Dim("("+r.Duration.Round(time.Millisecond).String()+")"))
	for _, u := range r.Users {
		switch {
		case u.Err != nil:
			fmt.Fprintf(&b, "  %s %s %s\n", StyleRed.Render("✗"), ShortID(u.UserID), u.Err)
		case u.Skipped:
			fmt.Fprintf(&b, "  %s %s %s\n", Dim("-"), ShortID(u.UserID), Dim(fmt.Sprintf("%d events, not enough yet", u.Events)))
		default:
			fmt.Fprintf(&b, "  %s %s %s\n", StyleGreen.Render("✓"), ShortID(u.UserID), strings.Join(u.Updated, ", "))
			if len(u.StepErrors) > 0 {
				fmt.Fprintf(&b, "    %s\n", StyleYellow.Render("failed steps: "+strings.Join(u.StepErrors, ", ")))
			}
		}
	}
	return b.String()
}

// ShortID abbreviates an ID for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
