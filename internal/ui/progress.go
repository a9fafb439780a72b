package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kiln/internal/pipeline"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

type progressModel struct {
	title   string
	events  <-chan pipeline.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []scriptRow
	index   map[string]int
	side    string // активность вне списка скриптов: генерация общих артефактов
	width   int
	done    bool
}

type scriptRow struct {
	path     string
	status   string
	stage    pipeline.Stage
	finished bool
}

type eventMsg pipeline.Event

type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-script
// compilation progress fed from a pipeline event channel. The model quits
// once the channel is closed.
func NewProgressModel(title string, scripts []string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	rows := make([]scriptRow, 0, len(scripts))
	index := make(map[string]int, len(scripts))
	for i, script := range scripts {
		rows = append(rows, scriptRow{path: script, status: "queued"})
		index[script] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    rows,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.nextEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(pipeline.Event(msg))
		return m, tea.Batch(cmd, m.nextEvent())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		m.bar = updated.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	header := m.title
	if m.side != "" {
		header = fmt.Sprintf("%s (%s)", header, m.side)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 12
	pathWidth := m.width - statusWidth - 4
	if pathWidth < 20 {
		pathWidth = 20
	}

	for _, row := range m.rows {
		status := statusStyle(row.status).Render(fmt.Sprintf("%12s", row.status))
		b.WriteString(fmt.Sprintf("  %s %s\n", status, truncatePath(row.path, pathWidth)))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) nextEvent() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m *progressModel) applyEvent(evt pipeline.Event) tea.Cmd {
	idx, ok := m.index[evt.Script]
	if !ok {
		// Событие без своей строки: генерация артефактов, общих для всех скриптов.
		m.side = sideLabel(evt)
		return nil
	}

	row := &m.rows[idx]
	switch evt.Status {
	case pipeline.StatusQueued:
		row.status = "queued"
	case pipeline.StatusWorking:
		row.status = stageLabel(evt.Stage)
		row.stage = evt.Stage
	case pipeline.StatusDone:
		row.stage = evt.Stage
		if evt.Stage == pipeline.StageCompile {
			row.status = "done"
			row.finished = true
		} else {
			row.status = stageDoneLabel(evt.Stage)
		}
	case pipeline.StatusError:
		row.status = "error"
		row.finished = true
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range m.rows {
		if row.finished {
			sum++
			continue
		}
		sum += stageWeight(row.stage)
	}
	return sum / float64(len(m.rows))
}

func stageWeight(stage pipeline.Stage) float64 {
	switch stage {
	case pipeline.StageResolve:
		return 0.2
	case pipeline.StageGenerate:
		return 0.45
	case pipeline.StageCompile:
		return 0.8
	default:
		return 0
	}
}

func stageLabel(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageResolve:
		return "resolving"
	case pipeline.StageGenerate:
		return "generating"
	case pipeline.StageCompile:
		return "compiling"
	default:
		return "working"
	}
}

func stageDoneLabel(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageResolve:
		return "resolved"
	case pipeline.StageGenerate:
		return "generated"
	default:
		return "done"
	}
}

func sideLabel(evt pipeline.Event) string {
	if evt.Status != pipeline.StatusWorking {
		return ""
	}
	label := stageLabel(evt.Stage)
	name := filepath.Base(evt.Script)
	if evt.Total > 0 {
		return fmt.Sprintf("%s %s %d/%d", label, name, evt.Done, evt.Total)
	}
	if name != "" && name != "." {
		return fmt.Sprintf("%s %s", label, name)
	}
	return label
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "done", "resolved", "generated":
		return doneStyle
	case "error":
		return errorStyle
	case "resolving", "generating", "compiling":
		return runningStyle
	default:
		return idleStyle
	}
}

func truncatePath(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
