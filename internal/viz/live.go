package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/mfjansen/mocsim/internal/coupling"
	"gonum.org/v1/gonum/floats"
)

const (
	canvasWidth     = 40
	canvasHeight    = 20
	historyCapacity = 600
	frameInterval   = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model advances a driver a few steps per frame and shows the column
// profiles and the strength of every link.
type Model struct {
	driver   *coupling.Driver
	name     string
	total    int
	perFrame int
	running  bool
	showHelp bool
	canvas   *Canvas
	snap     coupling.Snapshot
	// history holds the maximum transport of the first link per frame.
	history []float64
	err     error
}

// NewModel prepares a live view that stops after total steps.
func NewModel(d *coupling.Driver, name string, total, perFrame int) Model {
	if perFrame < 1 {
		perFrame = 1
	}
	return Model{
		driver:   d,
		name:     name,
		total:    total,
		perFrame: perFrame,
		running:  true,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		snap:     d.Snapshot(coupling.Transient),
		history:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.perFrame *= 2
		case "-", "_":
			m.perFrame = max(1, m.perFrame/2)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.done() && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) done() bool { return m.driver.Steps() >= m.total }

// Err is the error that stopped the run, if any.
func (m Model) Err() error { return m.err }

func (m *Model) advance() {
	n := min(m.perFrame, m.total-m.driver.Steps())
	if err := m.driver.Advance(context.Background(), n); err != nil {
		m.err = err
		m.running = false
	}
	m.snap = m.driver.Snapshot(coupling.Transient)
	if len(m.snap.Links) > 0 && len(m.snap.Links[0].Psi) > 0 {
		if len(m.history) == historyCapacity {
			m.history = m.history[1:]
		}
		m.history = append(m.history, floats.Max(m.snap.Links[0].Psi))
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	profiles := make([][]float64, len(m.snap.Columns))
	for i, c := range m.snap.Columns {
		profiles[i] = c.B
	}
	bounds := BoundsOf(m.snap.Z, profiles...)
	for _, p := range profiles {
		m.canvas.PlotCurve(p, m.snap.Z, bounds)
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := panelStyle().Render(m.canvas.String() + "\n" + Legend(columnNames(m.snap)))

	var s strings.Builder
	s.WriteString(titleStyle().Render(strings.ToUpper(m.name)) + "\n")
	status := "RUNNING"
	switch {
	case m.err != nil:
		status = lipgloss.NewStyle().Foreground(CurrentTheme.Warn).Render("FAILED: " + m.err.Error())
	case m.done():
		status = "DONE"
	case !m.running:
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle().Render(label) + valueStyle().Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.1f yr", m.snap.Time/(360*86400)))
	row("Step", fmt.Sprintf("%d / %d", m.snap.Step, m.total))
	row("Per frame", fmt.Sprintf("%d", m.perFrame))
	if m.total > 0 {
		s.WriteString(ProgressBar(float64(m.snap.Step)/float64(m.total), 30) + "\n")
	}

	s.WriteString("\nCOLUMNS (b bottom / surface)\n")
	for _, c := range m.snap.Columns {
		if len(c.B) == 0 {
			continue
		}
		row(c.Name, fmt.Sprintf("%.2e / %.2e", c.B[0], c.B[len(c.B)-1]))
	}
	s.WriteString("\nLINKS (psi min / max, Sv)\n")
	for _, l := range m.snap.Links {
		if len(l.Psi) == 0 {
			continue
		}
		row(l.Name, fmt.Sprintf("%.2f / %.2f", floats.Min(l.Psi), floats.Max(l.Psi)))
	}
	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(5), asciigraph.Width(30),
			asciigraph.Caption("max psi "+m.snap.Links[0].Name))
		s.WriteString("\n" + chart + "\n")
	}
	s.WriteString(hintStyle().Render("SP:Pause +/-:Speed T:Theme ?:Help Q:Quit"))

	body := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelStyle().Render(s.String()))
	if m.showHelp {
		help := panelStyle().Render(strings.Join([]string{
			"Space  pause or resume",
			"+ / -  double or halve steps per frame",
			"T      cycle color themes",
			"?      toggle this help",
			"Q      quit",
		}, "\n"))
		return help + "\n" + body
	}
	return body
}

func columnNames(s coupling.Snapshot) []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Run shows the live view until the user quits and returns the error that
// stopped the run, if any.
func Run(m Model) error {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}
