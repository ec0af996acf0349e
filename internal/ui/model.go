package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/0xlemi/guitartuner/internal/feedback"
	"github.com/0xlemi/guitartuner/internal/notes"
	"github.com/0xlemi/guitartuner/internal/tuner"
	"github.com/0xlemi/guitartuner/internal/tuning"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// How often the sustain timer is re-evaluated
	tickInterval = 50 * time.Millisecond

	// Width of the offset meter in cells, covering one semitone each way
	meterWidth = 41
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	tunedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	inTuneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	offStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))

	// Note colors
	noteColors = map[byte]string{
		'C': "#E8D6B0", // Beige
		'D': "#A020F0", // Purple
		'E': "#FFFF00", // Yellow
		'F': "#FFA500", // Orange
		'G': "#00FF00", // Green
		'A': "#FF0000", // Red
		'B': "#0000FF", // Blue
	}
)

// noteStyle returns the box a target note is rendered in
func noteStyle(letter byte) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[letter])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(1, 3).
		MarginBottom(1)
}

// Controller is the part of the engine the UI drives
type Controller interface {
	SelectString(n int) error
	SelectChromaticNote(index int) error
	SetTuning(t tuning.Tuning) error
	TransposeUp() bool
	TransposeDown() bool
	TransposeStringUp(n int) (bool, error)
	TransposeStringDown(n int) (bool, error)
	MarkTuned(s tuner.State) bool
	SetAutoDetect(on bool)
	SetChromatic(on bool)
}

// Options configures a Model. Zero fields take defaults.
type Options struct {
	Sustain  *tuner.Sustain
	Planner  *feedback.Planner
	Tunings  []tuning.Tuning
	Feedback func(feedback.Request)
	Logger   *slog.Logger
	Clock    func() time.Time
}

// StateMsg carries a new engine state
type StateMsg tuner.State

// TickMsg represents a timer tick
type TickMsg time.Time

// Model renders engine states and forwards key presses as engine operations.
// It never changes tuner state except through the Controller.
type Model struct {
	engine   Controller
	states   <-chan tuner.State
	state    tuner.State
	sustain  *tuner.Sustain
	planner  *feedback.Planner
	tunings  []tuning.Tuning
	feedback func(feedback.Request)
	logger   *slog.Logger
	target   int
	now      time.Time
	clock    func() time.Time
}

// NewModel creates a UI model reading states from the subscription
func NewModel(engine Controller, states <-chan tuner.State, opts Options) Model {
	if opts.Sustain == nil {
		opts.Sustain = tuner.NewSustain()
	}
	if opts.Planner == nil {
		opts.Planner = feedback.NewPlanner()
	}
	if opts.Tunings == nil {
		opts.Tunings = tuning.Builtin()
	}
	if opts.Feedback == nil {
		opts.Feedback = func(feedback.Request) {}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return Model{
		engine:   engine,
		states:   states,
		sustain:  opts.Sustain,
		planner:  opts.Planner,
		tunings:  opts.Tunings,
		feedback: opts.Feedback,
		logger:   opts.Logger.With("component", "ui"),
		now:      opts.Clock(),
		clock:    opts.Clock,
	}
}

// Init starts listening for states and the sustain timer
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForState blocks on the next published state
func waitForState(states <-chan tuner.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return nil
		}
		return StateMsg(s)
	}
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.handleKey(msg.String())

	case TickMsg:
		m.now = time.Time(msg)
		m.updateSustain()
		return m, tick()

	case StateMsg:
		m.state = tuner.State(msg)
		m.now = m.clock()
		if target := m.state.Target(); target != m.target {
			m.target = target
			m.sustain.Reset()
		}
		if req, ok := m.planner.Observe(m.state); ok {
			m.logger.Debug("feedback requested", "request", req.String())
			m.feedback(req)
		}
		m.updateSustain()
		return m, waitForState(m.states)
	}

	return m, nil
}

// updateSustain marks the target tuned once it has held in tune long enough
func (m *Model) updateSustain() {
	if m.state.IsTuned() {
		return
	}
	if m.sustain.Update(m.state, m.now) && m.engine.MarkTuned(m.state) {
		m.logger.Info("target tuned", "note", notes.Name(m.state.Target()))
	}
}

func (m *Model) handleKey(key string) {
	s := m.state
	var err error

	switch key {
	case "a":
		m.engine.SetAutoDetect(!s.AutoDetect)
	case "c":
		m.engine.SetChromatic(!s.Chromatic)
	case "+", "=":
		m.engine.TransposeUp()
	case "-":
		m.engine.TransposeDown()
	case "]":
		_, err = m.engine.TransposeStringUp(s.SelectedString)
	case "[":
		_, err = m.engine.TransposeStringDown(s.SelectedString)
	case "t":
		err = m.engine.SetTuning(m.nextTuning())
	case "left", "right":
		step := 1
		if key == "left" {
			step = -1
		}
		if s.Chromatic {
			err = m.engine.SelectChromaticNote(notes.Clamp(s.SelectedNote + step))
		} else if n := s.SelectedString + step; n >= 0 && n < s.Tuning.NumStrings() {
			err = m.engine.SelectString(n)
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			err = m.engine.SelectString(int(key[0] - '1'))
		}
	}

	if err != nil {
		m.logger.Debug("key ignored", "key", key, "error", err)
	}
}

// nextTuning cycles through the catalogue after the current tuning
func (m *Model) nextTuning() tuning.Tuning {
	for i, t := range m.tunings {
		if t.EquivalentTo(m.state.Tuning) {
			return m.tunings[(i+1)%len(m.tunings)]
		}
	}
	return m.tunings[0]
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder
	s := m.state

	b.WriteString(titleStyle.Render("Guitar Tuner"))
	b.WriteString("\n")

	if s.Tuning.NumStrings() == 0 {
		b.WriteString(infoStyle.Render("Starting..."))
		return b.String()
	}

	b.WriteString(infoStyle.Render(s.Tuning.Label()) + "\n")
	b.WriteString(m.renderStrings() + "\n\n")

	target := notes.SymbolOf(s.Target())
	b.WriteString(noteStyle(target.Letter).Render(target.String()))
	b.WriteString("\n")

	if s.HasOffset {
		b.WriteString(renderMeter(s.Offset, m.sustain.Threshold, m.sustain.Progress(m.now)))
	} else {
		b.WriteString(infoStyle.Render("Listening for audio..."))
	}
	b.WriteString("\n\n")

	mode := "instrument"
	if s.Chromatic {
		mode = "chromatic"
	}
	auto := "manual"
	if s.AutoDetect {
		auto = "auto"
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("Mode: %s | Selection: %s", mode, auto)))
	b.WriteString("\n")

	if s.Err != nil {
		b.WriteString(errorStyle.Render(s.Err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render("1-9/←→ select  a auto  c chromatic  +/- transpose  [/] string  t tuning  q quit"))

	return b.String()
}

func (m Model) renderStrings() string {
	s := m.state
	parts := make([]string, s.Tuning.NumStrings())
	for i, str := range s.Tuning.Strings() {
		label := str.String()
		if i < len(s.Tuned) && s.Tuned[i] {
			label = tunedStyle.Render(label + "✓")
		}
		if !s.Chromatic && i == s.SelectedString {
			label = selectedStyle.Render(label)
		}
		parts[i] = label
	}
	return strings.Join(parts, "  ")
}

// renderMeter draws the offset as a needle on a one semitone scale
func renderMeter(offset, threshold, progress float64) string {
	half := meterWidth / 2
	pos := half + int(max(-1, min(1, offset))*float64(half))

	cells := []rune(strings.Repeat("─", meterWidth))
	cells[half] = '┼'
	cells[pos] = '●'
	bar := string(cells)

	cents := offset * 100
	var hint string
	switch {
	case tuner.IsInTune(offset, threshold):
		bar = inTuneStyle.Render(bar)
		hint = inTuneStyle.Render(fmt.Sprintf("in tune %3.0f%%", progress*100))
	case offset < 0:
		bar = offStyle.Render(bar)
		hint = offStyle.Render("tune up")
	default:
		bar = offStyle.Render(bar)
		hint = offStyle.Render("tune down")
	}

	return fmt.Sprintf("%s\n%+6.1f cents  %s", bar, cents, hint)
}
