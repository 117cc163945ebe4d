package cli

import (
	"fmt"
	"strings"

	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/spf13/cobra"
)

func newUserCmd(app *App, currentUser userFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users and what they told us",
	}
	cmd.AddCommand(
		newUserAddCmd(app),
		newUserListCmd(app),
		newUserShowCmd(app, currentUser),
		newUserFactsCmd(app, currentUser),
	)
	return cmd
}

func newUserAddCmd(app *App) *cobra.Command {
	var name, email, tz string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Long: "Creates a user from flags. On a terminal with neither --name nor --email,\n" +
			"asks for them in a short form instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ob := onboarding{Name: name, Email: email, Timezone: tz}
			flags := cmd.Flags()
			if app.interactive() && !flags.Changed("name") && !flags.Changed("email") {
				if err := newOnboardingForm(&ob).Run(); err != nil {
					return err
				}
			}

			u := &domain.User{Name: ob.Name, Email: strings.TrimSpace(ob.Email), Timezone: strings.TrimSpace(ob.Timezone)}
			if err := app.Users.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			if ob.Style != "" {
				style := domain.MotivationStyle(ob.Style)
				if _, err := app.Users.UpdateFacts(cmd.Context(), u.ID, func(f *domain.UserFacts) {
					f.MotivationStyle = style
				}); err != nil {
					return err
				}
			}
			fmt.Fprintf(out(cmd), "Created user %s %s\n", formatter.Bold(u.DisplayName()), formatter.Dim(u.ID))
			fmt.Fprintf(out(cmd), "%s\n", formatter.Dim("export FUTUREYOU_USER="+u.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "IANA timezone, e.g. Europe/Berlin")
	return cmd
}

func newUserListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := app.Users.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatUsers(users, app.now()))
			return nil
		},
	}
}

func newUserShowCmd(app *App, currentUser userFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			u, err := app.Users.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			facts, err := app.Users.GetFacts(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatUser(u, facts, app.now()))
			return nil
		},
	}
}

func newUserFactsCmd(app *App, currentUser userFunc) *cobra.Command {
	var purpose, vision, question, style string
	var values, wasters []string

	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Record purpose, values and vision",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUser()
			if err != nil {
				return err
			}
			if style != "" && !domain.MotivationStyle(style).IsValid() {
				return fmt.Errorf("unknown motivation style %q", style)
			}
			flags := cmd.Flags()
			facts, err := app.Users.UpdateFacts(cmd.Context(), id, func(f *domain.UserFacts) {
				if flags.Changed("purpose") {
					f.Purpose = strings.TrimSpace(purpose)
				}
				if flags.Changed("vision") {
					f.Vision = strings.TrimSpace(vision)
				}
				if flags.Changed("question") {
					f.BurningQuestion = strings.TrimSpace(question)
				}
				if flags.Changed("value") {
					f.Values = values
				}
				if flags.Changed("waster") {
					f.TimeWasters = wasters
				}
				if flags.Changed("style") {
					f.MotivationStyle = domain.MotivationStyle(style)
				}
				f.DiscoveryCompleted = f.Purpose != "" && len(f.Values) > 0 && f.Vision != ""
			})
			if err != nil {
				return err
			}
			u, err := app.Users.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatUser(u, facts, app.now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "Why you are doing this")
	cmd.Flags().StringVar(&vision, "vision", "", "Who you are becoming")
	cmd.Flags().StringVar(&question, "question", "", "The question you keep coming back to")
	cmd.Flags().StringSliceVar(&values, "value", nil, "A value (repeatable)")
	cmd.Flags().StringSliceVar(&wasters, "waster", nil, "A time waster (repeatable)")
	cmd.Flags().StringVar(&style, "style", "", "Motivation style: progress, fear, identity")
	return cmd
}
