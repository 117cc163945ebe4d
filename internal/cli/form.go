package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/futureyou/futureyou-os/internal/domain"
)

// onboarding is what the first-run form collects.
type onboarding struct {
	Name     string
	Email    string
	Timezone string
	Style    string
}

func newOnboardingForm(o *onboarding) *huh.Form {
	if o.Timezone == "" {
		o.Timezone = "UTC"
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What should future you call you?").
				Value(&o.Name),
			huh.NewInput().
				Title("Email (optional)").
				Value(&o.Email),
			huh.NewInput().
				Title("Timezone").
				Placeholder("Europe/Berlin").
				Value(&o.Timezone).
				Validate(validateTimezone),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What gets you moving?").
				Options(
					huh.NewOption("Seeing progress", string(domain.MotivationProgress)),
					huh.NewOption("Knowing what I'd lose", string(domain.MotivationFear)),
					huh.NewOption("Being who I said I'd be", string(domain.MotivationIdentity)),
					huh.NewOption("Not sure yet", ""),
				).
				Value(&o.Style),
		),
	).WithTheme(futureyouHuhTheme()).WithShowHelp(false)
}

func validateTimezone(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown timezone %q", s)
	}
	return nil
}

func futureyouHuhTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorOrange).Bold(true)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorOrange)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorOrange)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorOrange)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	return t
}
