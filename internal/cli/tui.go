package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/emberglow-cli/internal/orchestrator"
	"github.com/dgnsrekt/emberglow-cli/internal/project"
)

type tuiEventMsg orchestrator.Event

// tuiActionMsg reports the outcome of a user-triggered orchestrator call.
type tuiActionMsg struct {
	notice string
	err    error
}

type tuiModel struct {
	theme tuiTheme
	app   *app

	snap     orchestrator.Snapshot
	bar      progress.Model
	selected int
	notice   string

	width    int
	height   int
	showHelp bool
	leaving  bool
}

func newTUIModel(a *app) tuiModel {
	return tuiModel{
		theme: newTUITheme(),
		app:   a,
		snap:  a.orch.Snapshot(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
		),
	}
}

// runTUI drives the interactive view until the user quits or the project
// reaches a final state the user acknowledges. The orchestrator keeps
// running underneath; quitting never cancels the server-side job.
func runTUI(ctx context.Context, a *app) error {
	p := tea.NewProgram(newTUIModel(a), tea.WithAltScreen())

	go func() {
		for {
			select {
			case e := <-a.orch.Events():
				p.Send(tuiEventMsg(e))
			case <-ctx.Done():
				p.Send(tea.Quit())
				return
			}
		}
	}()

	_, err := p.Run()
	return err
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := m.width - 20
		if barWidth < 10 {
			barWidth = 10
		}
		m.bar.Width = barWidth

	case tuiEventMsg:
		m.snap = m.app.orch.Snapshot()
		switch msg.Kind {
		case orchestrator.EventError, orchestrator.EventChunkError:
			m.notice = msg.Message
		case orchestrator.EventStitched:
			m.notice = "final audio ready: " + msg.Message
		case orchestrator.EventCancelled:
			m.notice = "project cancelled"
		case orchestrator.EventDone:
			m.notice = ""
		}
		m.clampSelection()

	case tuiActionMsg:
		m.snap = m.app.orch.Snapshot()
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else if msg.notice != "" {
			m.notice = msg.notice
		}
		m.clampSelection()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.leaving = true
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if p := m.snap.Project; p != nil && m.selected < len(p.Chunks)-1 {
			m.selected++
		}

	case "r":
		index := m.selected
		return m, func() tea.Msg {
			err := m.app.orch.Regenerate(context.Background(), index)
			return tuiActionMsg{notice: fmt.Sprintf("regenerating chunk %d", index), err: err}
		}

	case "c":
		return m, func() tea.Msg {
			err := m.app.orch.Cancel(context.Background())
			return tuiActionMsg{notice: "cancelling; the in-flight chunk finishes first", err: err}
		}

	case "s":
		return m, func() tea.Msg {
			filename, err := m.app.orch.Stitch(context.Background())
			if err != nil {
				return tuiActionMsg{err: err}
			}
			return tuiActionMsg{notice: "stitched: " + filename}
		}

	case "d":
		filename := m.snap.FinalFilename
		if filename == "" {
			m.notice = "nothing to download yet; stitch first"
			return m, nil
		}
		return m, func() tea.Msg {
			path, info, err := m.app.downloads.Final(context.Background(), filename)
			if err != nil {
				return tuiActionMsg{err: err}
			}
			return tuiActionMsg{notice: fmt.Sprintf("saved %s (%s)", path, info.Duration().Round(time.Second))}
		}
	}

	return m, nil
}

func (m *tuiModel) clampSelection() {
	p := m.snap.Project
	if p == nil || len(p.Chunks) == 0 {
		m.selected = 0
		return
	}
	if m.selected >= len(p.Chunks) {
		m.selected = len(p.Chunks) - 1
	}
}

func (m tuiModel) View() string {
	t := m.theme
	var b strings.Builder

	p := m.snap.Project
	title := "emberglow"
	if m.snap.DisplayName != "" {
		title += " · " + m.snap.DisplayName
	}
	b.WriteString(t.title.Render(title))
	b.WriteString("\n")

	if p == nil {
		b.WriteString(t.muted.Render("no active project"))
		if m.notice != "" {
			b.WriteString("\n" + t.warn.Render(m.notice))
		}
		b.WriteString("\n" + t.help.Render("q quit"))
		return b.String()
	}

	b.WriteString(t.muted.Render("project " + p.ID))
	b.WriteString("\n\n")

	status := string(p.Status)
	if m.snap.Cancelling {
		status = "cancelling"
	}
	b.WriteString(m.renderRail())
	b.WriteString("\n")
	b.WriteString(t.subtitle.Render("Status ") + t.statusStyle(status).Render(status))
	b.WriteString("\n")

	completed, total := p.Progress()
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		m.bar.ViewAs(pct),
		t.muted.Render(fmt.Sprintf(" %d/%d chunks", completed, total)),
	))
	b.WriteString("\n\n")

	for i, ch := range p.Chunks {
		line := fmt.Sprintf("chunk %2d  %-10s", ch.Index, ch.Status)
		if ch.Error != "" {
			line += "  " + ch.Error
		}
		if i == m.selected {
			b.WriteString(t.selected.Render(line))
		} else {
			b.WriteString(t.statusStyle(string(ch.Status)).Render(line))
		}
		b.WriteString("\n")
	}

	if m.snap.Stitched {
		b.WriteString("\n" + t.ok.Render("final audio: "+m.snap.FinalFilename) + "\n")
	}
	if m.snap.Err != "" {
		b.WriteString("\n" + t.danger.Render(m.snap.Err) + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + t.warn.Render(m.notice) + "\n")
	}

	help := "q quit · r regenerate · c cancel · s stitch · d download · ? help"
	if m.showHelp {
		help = strings.Join([]string{
			"q        leave the view (the server-side job keeps running)",
			"up/down  select a chunk",
			"r        regenerate the selected chunk (not chunk 0)",
			"c        cancel the project after the in-flight chunk",
			"s        stitch all completed chunks into the final audio",
			"d        download the final audio",
		}, "\n")
	}
	b.WriteString("\n" + t.help.Render(help))

	return b.String()
}

var railPhases = []string{"Submit", "Normalize", "Generate", "Review", "Stitch"}

// railPhase maps the project state to the lifecycle rail position.
func railPhase(snap orchestrator.Snapshot) int {
	if snap.Stitched {
		return 4
	}
	p := snap.Project
	if p == nil {
		return 0
	}
	switch p.Status {
	case project.StatusPending:
		return 0
	case project.StatusNormalizing:
		return 1
	case project.StatusProcessing, project.StatusCancelling:
		return 2
	case project.StatusStitched:
		return 4
	default:
		return 3
	}
}

func (m tuiModel) renderRail() string {
	current := railPhase(m.snap)
	parts := make([]string, 0, len(railPhases))
	for i, phase := range railPhases {
		switch {
		case i < current:
			parts = append(parts, m.theme.ok.Render("● "+phase))
		case i == current:
			parts = append(parts, m.theme.info.Render("◉ "+phase))
		default:
			parts = append(parts, m.theme.muted.Render("○ "+phase))
		}
	}
	return strings.Join(parts, m.theme.muted.Render(" ── "))
}

// chunkLabel is used by plain-text renderings shared with the status
// command.
func chunkLabel(ch project.Chunk) string {
	label := fmt.Sprintf("chunk %d: %s", ch.Index, ch.Status)
	if ch.AudioFilename != "" {
		label += " (" + ch.AudioFilename + ")"
	}
	if ch.Error != "" {
		label += " error: " + ch.Error
	}
	return label
}
