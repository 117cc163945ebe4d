package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/spf13/cobra"
)

// resolveHabitID accepts a full ID, a unique ID prefix, or a habit title
// (case-insensitive).
func resolveHabitID(ctx context.Context, app *App, userID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("habit is required")
	}
	habits, err := app.Habits.ListHabits(ctx, userID)
	if err != nil {
		return "", err
	}

	var prefix []string
	for _, st := range habits {
		h := st.Habit
		if h.ID == input || strings.EqualFold(h.Title, input) {
			return h.ID, nil
		}
		if strings.HasPrefix(h.ID, input) {
			prefix = append(prefix, h.ID)
		}
	}
	switch len(prefix) {
	case 0:
		return "", fmt.Errorf("habit not found: %q", input)
	case 1:
		return prefix[0], nil
	default:
		return "", fmt.Errorf("habit prefix %q is ambiguous (%d matches)", input, len(prefix))
	}
}

func newHabitCmd(app *App, currentUser userFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Manage habits",
	}
	cmd.AddCommand(
		newHabitAddCmd(app, currentUser),
		newHabitListCmd(app, currentUser),
		newHabitRemoveCmd(app, currentUser),
	)
	return cmd
}

func newHabitRemoveCmd(app *App, currentUser userFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <habit>",
		Aliases: []string{"remove"},
		Short:   "Stop tracking a habit and drop its completions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			habitID, err := resolveHabitID(cmd.Context(), app, id, args[0])
			if err != nil {
				return err
			}
			if err := app.Habits.DeleteHabit(cmd.Context(), id, habitID); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Stopped tracking %s\n", formatter.Dim(formatter.ShortID(habitID)))
			return nil
		},
	}
}

func newHabitAddCmd(app *App, currentUser userFunc) *cobra.Command {
	var title, at string
	var importance int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Track a new habit",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			h := &domain.Habit{UserID: id, Title: title, ScheduleTime: at, Importance: importance}
			if err := app.Habits.CreateHabit(cmd.Context(), h); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Tracking %s %s\n", formatter.Bold(h.Title), formatter.Dim(formatter.ShortID(h.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "What you will do")
	cmd.Flags().StringVar(&at, "at", "", "Scheduled time, HH:MM")
	cmd.Flags().IntVar(&importance, "importance", 3, "Importance 1-5")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newHabitListCmd(app *App, currentUser userFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List habits with their streaks",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			habits, err := app.Habits.ListHabits(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatHabits(habits, app.now()))
			return nil
		},
	}
}

// newTickCmd builds "tick" (done) or "untick" (explicitly not done).
func newTickCmd(app *App, currentUser userFunc, done bool) *cobra.Command {
	var date string

	use, short := "tick <habit>", "Mark a habit done"
	if !done {
		use, short = "untick <habit>", "Mark a habit not done"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			habitID, err := resolveHabitID(cmd.Context(), app, id, args[0])
			if err != nil {
				return err
			}
			ev, err := app.Habits.RecordCompletion(cmd.Context(), id, habitID, date, done)
			if err != nil {
				return err
			}
			tick := ev.Payload.(domain.HabitTickPayload)
			if done {
				fmt.Fprintf(out(cmd), "%s %s on %s · streak %s\n",
					formatter.StyleGreen.Render("✓"), tick.HabitTitle, tick.Date, formatter.Streak(tick.Streak))
				return nil
			}
			fmt.Fprintf(out(cmd), "%s %s on %s · streak was %d\n",
				formatter.Dim("✗"), tick.HabitTitle, tick.Date, tick.PreviousStreak)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to record, YYYY-MM-DD (default today)")
	return cmd
}
