package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/spf13/cobra"
)

const replyWidth = 72

func newChatCmd(app *App, currentUser userFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to future you",
		Long: "With a message, sends it and prints the reply. Without one on a terminal,\n" +
			"opens a conversation that keeps its history until you leave with esc or /quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return chatOnce(cmd, app, id, strings.Join(args, " "))
			}
			if !app.interactive() {
				return fmt.Errorf("message is required when not on a terminal")
			}

			view := newChatView(cmd.Context(), app.Coach, id)
			p := tea.NewProgram(view,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running chat: %w", err)
			}
			return view.err
		},
	}
}

// chatOnce sends a single message with no history and prints the reply.
func chatOnce(cmd *cobra.Command, app *App, userID, msg string) error {
	stop := app.thinking(cmd)
	o, err := app.Coach.GenerateChatResponse(cmd.Context(), userID, msg, nil)
	stop()
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "%s %s\n", formatter.StylePurple.Render("future you ›"), formatter.Wrap(o.Text, replyWidth))
	return nil
}
