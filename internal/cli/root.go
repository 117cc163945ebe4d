package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/futureyou/futureyou-os/internal/coach"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/learning"
	"github.com/futureyou/futureyou-os/internal/service"
	"github.com/spf13/cobra"
)

// Coach is the generation surface the commands call. coach.Engine
// satisfies it.
type Coach interface {
	GenerateBrief(ctx context.Context, userID string) (coach.Output, error)
	GenerateNudge(ctx context.Context, userID, trigger, reason string, severity int) (coach.Output, error)
	GenerateDebrief(ctx context.Context, userID string) (coach.Output, error)
	GenerateWeeklyLetter(ctx context.Context, userID string) (coach.Output, error)
	GenerateChatResponse(ctx context.Context, userID, message string, history []domain.ChatTurn) (coach.Output, error)
}

// Learner runs one pattern-learning pass. learning.Worker satisfies it.
type Learner interface {
	Run(ctx context.Context) (learning.Report, error)
}

// App holds everything the commands need.
type App struct {
	Users       service.UserService
	Habits      service.HabitService
	Reflections service.ReflectionService
	Messages    service.MessageService
	Coach       Coach
	Learner     Learner

	// DefaultUser is used when --user is not given.
	DefaultUser string

	// IsInteractive reports whether stdin is a terminal. Nil means never.
	IsInteractive func() bool

	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// thinking shows a spinner on stderr while a message is generated. Off a
// terminal it does nothing.
func (a *App) thinking(cmd *cobra.Command) (stop func()) {
	if !a.interactive() {
		return func() {}
	}
	return formatter.StartSpinner(cmd.ErrOrStderr(), "future you is thinking")
}

// NewRootCmd creates the top-level "futureyou" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	var userFlag string

	root := &cobra.Command{
		Use:           "futureyou",
		Short:         "Behavioral coach that earns the right to push you",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID (defaults to FUTUREYOU_USER)")

	currentUser := func() (string, error) {
		id := userFlag
		if id == "" {
			id = app.DefaultUser
		}
		if id == "" {
			return "", fmt.Errorf("no user selected: pass --user or set FUTUREYOU_USER")
		}
		return id, nil
	}

	root.AddCommand(
		newUserCmd(app, currentUser),
		newHabitCmd(app, currentUser),
		newTickCmd(app, currentUser, true),
		newTickCmd(app, currentUser, false),
		newReflectCmd(app, currentUser),
		newBriefCmd(app, currentUser),
		newNudgeCmd(app, currentUser),
		newDebriefCmd(app, currentUser),
		newLetterCmd(app, currentUser),
		newChatCmd(app, currentUser),
		newMessagesCmd(app, currentUser),
		newLearnCmd(app),
	)
	return root
}

type userFunc func() (string, error)

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
