package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/futureyou/futureyou-os/internal/cli/formatter"
	"github.com/futureyou/futureyou-os/internal/coach"
	"github.com/futureyou/futureyou-os/internal/domain"
)

// chatReplyMsg carries one finished generation back into the view.
type chatReplyMsg struct {
	message string
	out     coach.Output
	err     error
}

// chatView is the interactive conversation. History grows by one user and
// one assistant turn per exchange and is sent with every request.
type chatView struct {
	ctx    context.Context
	coach  Coach
	userID string

	input   textinput.Model
	spinner spinner.Model

	history    []domain.ChatTurn
	transcript []string
	pending    bool
	err        error
}

func newChatView(ctx context.Context, c Coach, userID string) *chatView {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "/quit or esc to leave"
	ti.CharLimit = 1000
	ti.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(formatter.ColorOrange)),
	)

	return &chatView{
		ctx:        ctx,
		coach:      c,
		userID:     userID,
		input:      ti,
		spinner:    sp,
		transcript: []string{formatter.Dim("What's on your mind?")},
	}
}

func (v *chatView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *chatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return v, tea.Quit
		case tea.KeyEnter:
			if v.pending {
				return v, nil
			}
			line := strings.TrimSpace(v.input.Value())
			v.input.Reset()
			switch line {
			case "":
				return v, nil
			case "/quit", "/exit":
				return v, tea.Quit
			}
			return v, v.send(line)
		}

	case chatReplyMsg:
		v.pending = false
		if msg.err != nil {
			v.err = msg.err
			return v, tea.Quit
		}
		v.history = append(v.history,
			domain.ChatTurn{Role: "user", Content: msg.message},
			domain.ChatTurn{Role: "assistant", Content: msg.out.Text},
		)
		v.transcript = append(v.transcript, formatter.StylePurple.Render("future you ›")+" "+formatter.Wrap(msg.out.Text, replyWidth))
		return v, nil

	case spinner.TickMsg:
		if !v.pending {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *chatView) send(line string) tea.Cmd {
	v.pending = true
	v.transcript = append(v.transcript, formatter.Dim("you ›")+" "+line)

	history := append([]domain.ChatTurn(nil), v.history...)
	generate := func() tea.Msg {
		out, err := v.coach.GenerateChatResponse(v.ctx, v.userID, line, history)
		return chatReplyMsg{message: line, out: out, err: err}
	}
	return tea.Batch(v.spinner.Tick, generate)
}

func (v *chatView) View() string {
	var b strings.Builder
	for _, line := range v.transcript {
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	if v.pending {
		b.WriteString(v.spinner.View() + " " + formatter.Dim("thinking"))
		return b.String()
	}
	b.WriteString(formatter.StyleOrange.Render("you ›") + " " + v.input.View())
	return b.String()
}
