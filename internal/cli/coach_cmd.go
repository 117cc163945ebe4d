package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/futureyou/futureyou-os/internal/coach"
	"github.com/spf13/cobra"
)

// newGenerateCmd builds a command that renders one generated message.
func newGenerateCmd(app *App, use, short, title string, currentUser userFunc, gen func(ctx context.Context, userID string) (coach.Output, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			stop := app.thinking(cmd)
			o, err := gen(cmd.Context(), id)
			stop()
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatCoachOutput(title, o))
			return nil
		},
	}
}

func newBriefCmd(app *App, currentUser userFunc) *cobra.Command {
	return newGenerateCmd(app, "brief", "Morning brief", "Morning brief", currentUser,
		func(ctx context.Context, id string) (coach.Output, error) { return app.Coach.GenerateBrief(ctx, id) })
}

func newDebriefCmd(app *App, currentUser userFunc) *cobra.Command {
	return newGenerateCmd(app, "debrief", "Evening debrief", "Evening debrief", currentUser,
		func(ctx context.Context, id string) (coach.Output, error) { return app.Coach.GenerateDebrief(ctx, id) })
}

func newLetterCmd(app *App, currentUser userFunc) *cobra.Command {
	return newGenerateCmd(app, "letter", "Weekly letter from future you", "Weekly letter", currentUser,
		func(ctx context.Context, id string) (coach.Output, error) { return app.Coach.GenerateWeeklyLetter(ctx, id) })
}

func newNudgeCmd(app *App, currentUser userFunc) *cobra.Command {
	var trigger, reason string
	var severity int

	cmd := &cobra.Command{
		Use:   "nudge",
		Short: "Send an in-the-moment nudge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if severity < 1 || severity > 5 {
				return fmt.Errorf("severity %d outside 1-5", severity)
			}
			id, err := currentUser()
			if err != nil {
				return err
			}
			stop := app.thinking(cmd)
			o, err := app.Coach.GenerateNudge(cmd.Context(), id, trigger, reason, severity)
			stop()
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatCoachOutput("Nudge", o))
			return nil
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "manual", "What prompted the nudge, e.g. missed_habit")
	cmd.Flags().StringVar(&reason, "reason", "", "Free-text context")
	cmd.Flags().IntVar(&severity, "severity", 2, "Severity 1-5")
	return cmd
}

func newMessagesCmd(app *App, currentUser userFunc) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"inbox"},
		Short:   "Show recent coach messages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			msgs, err := app.Messages.List(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatMessages(msgs, app.now()))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "How many messages")
	return cmd
}

func newReflectCmd(app *App, currentUser userFunc) *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "reflect <answer...>",
		Short: "Record a reflection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			if _, err := app.Reflections.Record(cmd.Context(), id, question, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), formatter.Dim("Noted."))
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "The question being answered")
	return cmd
}

func newLearnCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "learn",
		Short: "Run the pattern-learning pass once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Learner.Run(cmd.Context())
			fmt.Fprint(out(cmd), formatter.FormatLearnReport(report))
			return err
		},
	}
}
