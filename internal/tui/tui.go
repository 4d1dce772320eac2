// Package tui is the interactive terminal front end for the publication
// wizard. It renders the current session step and drives the wizard
// through keyboard commands; all blocking work runs as tea commands so
// the UI stays responsive. The wizard session is touched only by one
// in-flight command at a time; View renders a snapshot taken when the
// command completed, never the live session.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newsdesk/internal/core"
	"newsdesk/internal/evaluate"
	"newsdesk/internal/wizard"
)

// sessionView is an immutable copy of the session state the UI renders.
// Commands produce one after each wizard operation; Update installs it
// on the event loop, so View never races the command goroutine.
type sessionView struct {
	active     bool
	step       core.Step
	rejected   bool
	published  bool
	article    *core.ArticleRecord
	evaluation *core.EvaluationRecord
	hasPublish bool
	hasImage   bool
	sources    int
}

// snapshot copies the renderable session state. Called only while the
// calling goroutine exclusively owns the session (inside a command after
// its operation returned, or on the event loop with no command in flight).
func snapshot(s *wizard.Session) sessionView {
	if s == nil {
		return sessionView{}
	}
	view := sessionView{
		active:    true,
		step:      s.Step,
		rejected:  s.Rejected,
		published: s.IsPublished(),
		sources:   len(s.Filtered),
	}
	if s.Article != nil {
		article := *s.Article
		view.article = &article
	}
	if s.Evaluation != nil {
		evaluation := *s.Evaluation
		view.evaluation = &evaluation
	}
	if s.Publish != nil {
		view.hasPublish = true
		view.hasImage = s.Publish.HasImage()
	}
	return view
}

// opDoneMsg reports completion of an asynchronous wizard operation,
// carrying the post-operation session snapshot.
type opDoneMsg struct {
	op   string
	err  error
	view sessionView
}

// publishedMsg carries the outcome of the final publish call.
type publishedMsg struct {
	result *core.PublishResult
	err    error
	view   sessionView
}

type model struct {
	wizard  *wizard.Wizard
	cluster core.Cluster
	bypass  bool

	view     sessionView
	busy     bool   // An async wizard operation is in flight
	status   string // One-line status shown under the header
	err      error  // Last operation error, cleared on the next command
	result   *core.PublishResult
	typing   bool   // Capturing free-text evaluation feedback
	input    string // Feedback buffer while typing
	width    int
	height   int
	quitting bool
}

// InitialModel builds the TUI model for one cluster.
func InitialModel(w *wizard.Wizard, cluster core.Cluster, bypass bool) model {
	return model{
		wizard:  w,
		cluster: cluster,
		bypass:  bypass,
		status:  "Starting draft...",
		busy:    true,
	}
}

// Init kicks off the initial draft composition.
func (m model) Init() tea.Cmd {
	return m.startCmd()
}

func (m model) startCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.wizard.Start(context.Background(), m.cluster, m.bypass)
		return opDoneMsg{op: "start", err: err, view: snapshot(m.wizard.Session())}
	}
}

func (m model) regenerateCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.wizard.Regenerate(context.Background())
		return opDoneMsg{op: "regenerate", err: err, view: snapshot(m.wizard.Session())}
	}
}

func (m model) evaluateCmd(feedback string) tea.Cmd {
	return func() tea.Msg {
		err := m.wizard.Evaluate(context.Background(), feedback)
		return opDoneMsg{op: "evaluate", err: err, view: snapshot(m.wizard.Session())}
	}
}

func (m model) acceptCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.wizard.Accept(context.Background())
		return opDoneMsg{op: "accept", err: err, view: snapshot(m.wizard.Session())}
	}
}

func (m model) regenerateImageCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.wizard.RegenerateImage(context.Background())
		return opDoneMsg{op: "image", err: err, view: snapshot(m.wizard.Session())}
	}
}

func (m model) publishCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.wizard.Publish(context.Background())
		return publishedMsg{result: result, err: err, view: snapshot(m.wizard.Session())}
	}
}

// Update handles messages and advances the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case opDoneMsg:
		m.busy = false
		m.err = msg.err
		m.view = msg.view
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed", msg.op)
			return m, nil
		}
		m.status = fmt.Sprintf("%s complete", msg.op)
		return m, nil

	case publishedMsg:
		m.busy = false
		m.err = msg.err
		m.result = msg.result
		m.view = msg.view
		if msg.err != nil {
			m.status = "publish failed"
		} else {
			m.status = fmt.Sprintf("published as article %d", msg.result.ArticleID)
		}
		return m, nil

	case tea.KeyMsg:
		if m.typing {
			return m.updateTyping(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

// updateTyping accumulates feedback text until enter or esc.
func (m model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.typing = false
		feedback := strings.TrimSpace(m.input)
		m.input = ""
		m.busy = true
		m.status = "Re-evaluating with feedback..."
		return m, m.evaluateCmd(feedback)
	case "esc":
		m.typing = false
		m.input = ""
		return m, nil
	case "backspace":
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil
	case " ":
		m.input += " "
		return m, nil
	default:
		if msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
		}
		return m, nil
	}
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	if !m.view.active {
		if key == "s" {
			m.busy = true
			m.status = "Starting draft..."
			return m, m.startCmd()
		}
		return m, nil
	}
	if m.view.rejected || m.view.published {
		return m, nil
	}

	switch m.view.step {
	case core.StepDraft:
		switch key {
		case "e":
			m.busy = true
			m.status = "Evaluating..."
			return m, m.evaluateCmd("")
		case "r":
			m.busy = true
			m.status = "Regenerating draft..."
			return m, m.regenerateCmd()
		}
	case core.StepReviewed:
		switch key {
		case "a":
			m.busy = true
			m.status = "Accepting and requesting images..."
			return m, m.acceptCmd()
		case "e":
			m.busy = true
			m.status = "Re-evaluating..."
			return m, m.evaluateCmd("")
		case "f":
			m.typing = true
			m.input = ""
			return m, nil
		}
	case core.StepIllustrated:
		switch key {
		case "i":
			m.busy = true
			m.status = "Regenerating image pair..."
			return m, m.regenerateImageCmd()
		case "n":
			// Synchronous transitions are safe here: no command in flight.
			if err := m.wizard.AdvanceToFinal(); err != nil {
				m.err = err
				m.status = "cannot advance"
			} else {
				m.err = nil
				m.status = "ready to publish"
			}
			m.view = snapshot(m.wizard.Session())
			return m, nil
		}
	case core.StepFinalReview:
		switch key {
		case "p":
			m.busy = true
			m.status = "Publishing..."
			return m, m.publishCmd()
		case "i":
			m.busy = true
			m.status = "Regenerating image pair..."
			return m, m.regenerateImageCmd()
		}
	}

	if key == "x" {
		m.wizard.Reject()
		m.view = snapshot(m.wizard.Session())
		m.status = "rejected"
		return m, nil
	}
	return m, nil
}

// View renders the TUI.
func (m model) View() string {
	if m.quitting {
		return "Quitting...\n"
	}

	docStyle := lipgloss.NewStyle().Margin(1, 2)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStepStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	bodyStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(maxInt(m.width-6, 40))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Publication Wizard"))
	sb.WriteString("\n")
	sb.WriteString(m.renderSteps(stepStyle, activeStepStyle))
	sb.WriteString("\n\n")
	sb.WriteString(bodyStyle.Render(m.renderBody()))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(stepStyle.Render(m.status))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderHelp())

	return docStyle.Render(sb.String())
}

func (m model) renderSteps(inactive, active lipgloss.Style) string {
	current := core.Step(0)
	if m.view.active {
		current = m.view.step
	}
	var parts []string
	for _, step := range []core.Step{core.StepDraft, core.StepReviewed, core.StepIllustrated, core.StepFinalReview} {
		label := fmt.Sprintf("%d. %s", int(step), step.String())
		if step == current {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	return strings.Join(parts, inactive.Render("  >  "))
}

func (m model) renderBody() string {
	if !m.view.active {
		return fmt.Sprintf("Cluster: %s\n\nPress [s] to compose a draft.", m.cluster.Subject)
	}
	if m.view.rejected {
		return "Session rejected. Press [q] to quit."
	}
	if m.view.published {
		link := ""
		if m.result != nil {
			link = m.result.Link
		}
		return fmt.Sprintf("Published.\n\n%s", link)
	}

	var sb strings.Builder
	if m.view.article != nil {
		sb.WriteString(fmt.Sprintf("Headline: %s\n\n", m.view.article.Headline))
		sb.WriteString(m.view.article.Haiku)
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("Summary: %s\n", m.view.article.Summary))
		sb.WriteString(fmt.Sprintf("\nSources: %d", m.view.sources))
	}
	if m.view.evaluation != nil {
		sb.WriteString(fmt.Sprintf("\n\nQuality %.1f | Bias %s (%.1f) | Trend %.1f | %s / %s",
			m.view.evaluation.QualityScore,
			m.view.evaluation.BiasLabel, m.view.evaluation.BiasNumeric,
			m.view.evaluation.TrendScore,
			m.view.evaluation.Category, m.view.evaluation.Topic))
		if m.view.evaluation.Reasoning != "" {
			quality, bias, propagation, ok := evaluate.SplitReasoning(m.view.evaluation.Reasoning)
			if ok {
				sb.WriteString(fmt.Sprintf("\n\nQuality: %s\nBias: %s\nPropagation: %s", quality, bias, propagation))
			} else {
				sb.WriteString("\n\n" + m.view.evaluation.Reasoning)
			}
		}
	}
	if m.view.hasPublish {
		if m.view.hasImage {
			sb.WriteString("\n\nImage pair attached.")
		} else {
			sb.WriteString("\n\nNo image attached yet.")
		}
	}
	if m.typing {
		sb.WriteString(fmt.Sprintf("\n\nFeedback: %s▌", m.input))
	}
	return sb.String()
}

func (m model) renderHelp() string {
	if m.typing {
		return "[enter] Submit feedback | [esc] Cancel"
	}
	if !m.view.active {
		return "[s] Start | [q] Quit"
	}
	if m.view.rejected || m.view.published {
		return "[q] Quit"
	}
	switch m.view.step {
	case core.StepDraft:
		return "[e] Evaluate | [r] Regenerate | [x] Reject | [q] Quit"
	case core.StepReviewed:
		return "[a] Accept | [e] Re-evaluate | [f] Feedback | [x] Reject | [q] Quit"
	case core.StepIllustrated:
		return "[n] Next | [i] New image | [x] Reject | [q] Quit"
	case core.StepFinalReview:
		return "[p] Publish | [i] New image | [x] Reject | [q] Quit"
	}
	return "[q] Quit"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Run starts the Bubble Tea program for one cluster session.
func Run(w *wizard.Wizard, cluster core.Cluster, bypass bool) error {
	p := tea.NewProgram(InitialModel(w, cluster, bypass), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	return nil
}
