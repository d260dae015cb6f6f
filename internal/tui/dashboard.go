// internal/tui/dashboard.go
// Package tui renders a live comparison view: one card per model with a
// progress bar while streaming and a metrics block once complete.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/comparison"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/util"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	cardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	metricStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	promptStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("250"))
)

// progressMsg carries one progress event from a model run into the UI.
type progressMsg comparison.ProgressEvent

// doneMsg carries the completed comparison result.
type doneMsg struct {
	result *comparison.Result
}

// modelCard holds per-model display state for one comparison column.
type modelCard struct {
	// modelID identifies the config this card tracks.
	modelID string
	// name is the display name shown in the card title.
	name string
	// bar renders streaming progress for the run.
	bar progress.Model
	// fraction is the latest reported progress in [0,1].
	fraction float64
	// metrics is the latest measurement for the run.
	metrics metrics.Metrics
	// err records a failed run.
	err error
	// done reports whether the run reached its terminal record.
	done bool
}

// Model is the Bubble Tea model for the live comparison view.
type Model struct {
	// prompt is the text fanned out to every model.
	prompt string
	// spinner animates while any run is still in flight.
	spinner spinner.Model
	// cards holds one column per compared model.
	cards []modelCard
	// result is set once the comparison resolves.
	result *comparison.Result
	// width and height capture the current terminal dimensions.
	width, height int
}

// newModel builds the initial view state for the given configs.
func newModel(prompt string, configs []appconfig.ModelConfig) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	cards := make([]modelCard, len(configs))
	for i, cfg := range configs {
		bar := progress.New(progress.WithDefaultGradient())
		cards[i] = modelCard{modelID: cfg.ID, name: cfg.DisplayName(), bar: bar}
	}
	return Model{prompt: prompt, spinner: sp, cards: cards}
}

// Init starts the spinner animation.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles progress events, completion, resizes, and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := m.cardWidth() - 4
		if barWidth < 10 {
			barWidth = 10
		}
		for i := range m.cards {
			m.cards[i].bar.Width = barWidth
		}
	case progressMsg:
		for i := range m.cards {
			if m.cards[i].modelID != msg.ModelID {
				continue
			}
			m.cards[i].fraction = msg.Fraction
			m.cards[i].metrics = msg.Metrics
			m.cards[i].err = msg.Err
			m.cards[i].done = msg.Done
		}
	case doneMsg:
		m.result = msg.result
		for i, card := range m.cards {
			for _, resp := range msg.result.Responses {
				if resp.ModelID != card.modelID {
					continue
				}
				m.cards[i].done = true
				m.cards[i].fraction = 1
				m.cards[i].metrics = resp.Metrics
				if resp.Error != "" {
					m.cards[i].err = fmt.Errorf("%s", resp.Error)
				}
			}
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the prompt line plus one card per model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render("Prompt: "+util.TruncateRunes(m.prompt, 80)) + "\n\n")

	cards := make([]string, len(m.cards))
	for i, card := range m.cards {
		cards[i] = m.renderCard(card)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n")
	if m.result == nil {
		b.WriteString(m.spinner.View() + " comparing... (q to quit)")
	}
	return b.String()
}

func (m Model) renderCard(card modelCard) string {
	width := m.cardWidth()
	var lines []string
	lines = append(lines, cardTitleStyle.Render(util.TruncateRunes(card.name, width-2)))

	switch {
	case card.err != nil:
		lines = append(lines, errorStyle.Render(util.TruncateToWidth(card.err.Error(), width-2)))
	case card.done:
		mt := card.metrics
		lines = append(lines,
			metricStyle.Render(fmt.Sprintf("%.1f tok/s", mt.TokensPerSecond)),
			metricStyle.Render(fmt.Sprintf("%d tokens (%d prompt / %d completion)", mt.TotalTokens, mt.PromptTokens, mt.CompletionTokens)),
			metricStyle.Render(fmt.Sprintf("%.2fs processing / %.2fs wall", mt.ProcessingTime.Seconds(), mt.ResponseTime.Seconds())),
		)
		if mt.Estimated {
			lines = append(lines, metricStyle.Render("token counts estimated"))
		}
	default:
		lines = append(lines, card.bar.ViewAs(card.fraction))
		lines = append(lines, metricStyle.Render(fmt.Sprintf("%.1f tok/s", card.metrics.TokensPerSecond)))
	}

	return cardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) cardWidth() int {
	if len(m.cards) == 0 {
		return 30
	}
	width := (m.width / len(m.cards)) - 2
	if width < 24 {
		width = 24
	}
	return width
}

// Run executes a comparison under the live view, blocking until the view
// exits, and returns the comparison result. Quitting the view early cancels
// the runs still in flight.
func Run(ctx context.Context, comparer *comparison.Comparer, prompt string, configs []appconfig.ModelConfig, opts ...tea.ProgramOption) (*comparison.Result, error) {
	program := tea.NewProgram(newModel(prompt, configs), opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan *comparison.Result, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := comparer.CompareModels(runCtx, prompt, configs, func(ev comparison.ProgressEvent) {
			program.Send(progressMsg(ev))
		})
		if err != nil {
			errCh <- err
			program.Send(doneMsg{result: &comparison.Result{Prompt: prompt}})
			return
		}
		resultCh <- result
		program.Send(doneMsg{result: result})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		return nil, err
	}

	// An early quit aborts the runs; cancelled models resolve as error-tagged
	// results, so the comparison still delivers below.
	cancel()

	select {
	case err := <-errCh:
		return nil, err
	case result := <-resultCh:
		return result, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("comparison did not resolve")
	}
}
