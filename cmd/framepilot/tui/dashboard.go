package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/framepilot/pkg/framepilot/adaptive"
	"github.com/jamesainslie/framepilot/pkg/framepilot/optimizer"
	"github.com/jamesainslie/framepilot/pkg/sim"
)

// RefreshInterval is how often the dashboard polls for a new snapshot.
const RefreshInterval = 250 * time.Millisecond

// Options wires the dashboard to a running optimizer.
type Options struct {
	Snapshot func() optimizer.Snapshot
	// Engine reports simulated engine counters. May be nil.
	Engine func() sim.Stats
	// Cancel stops the run when the user quits. May be nil.
	Cancel    func()
	TargetFPS int
	DeadBand  int
	Duration  time.Duration
}

// DoneMsg is sent when the simulation run has finished.
type DoneMsg struct {
	Stats sim.RunStats
}

type refreshMsg time.Time

// Model is the dashboard.
type Model struct {
	opts     Options
	spinner  spinner.Model
	bar      progress.Model
	snap     optimizer.Snapshot
	engine   sim.Stats
	start    time.Time
	width    int
	done     bool
	result   sim.RunStats
	quitting bool
}

// New creates the dashboard model.
func New(opts Options) Model {
	if opts.TargetFPS <= 0 {
		opts.TargetFPS = adaptive.DefaultTargetFPS
	}
	if opts.DeadBand <= 0 {
		opts.DeadBand = adaptive.DefaultDeadBand
	}

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		opts:    opts,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		start:   time.Now(),
		width:   80,
	}
}

func refresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Init starts the spinner and the polling loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			if m.opts.Cancel != nil {
				m.opts.Cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case refreshMsg:
		m.poll()
		if m.done {
			return m, nil
		}
		return m, refresh()

	case DoneMsg:
		m.done = true
		m.result = msg.Stats
		m.poll()
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) poll() {
	if m.opts.Snapshot != nil {
		m.snap = m.opts.Snapshot()
	}
	if m.opts.Engine != nil {
		m.engine = m.opts.Engine()
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	contentWidth := max(m.width-4, 50)

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(m.renderController())
	b.WriteString("\n")
	b.WriteString(m.renderPools())
	b.WriteString("\n")
	b.WriteString(m.renderCaches())
	if m.opts.Engine != nil {
		b.WriteString("\n")
		b.WriteString(m.renderEngine())
	}

	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return outerBoxStyle.Width(contentWidth + 2).Render(b.String())
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("FRAMEPILOT")
	info := mutedTextStyle.Render(fmt.Sprintf("  %s device  •  %s ticks",
		m.snap.Device, humanize.Comma(int64(m.snap.Ticks))))

	var status string
	switch {
	case m.done:
		status = successTextStyle.Render(fmt.Sprintf("  ✓ done, %.1f fps average", m.result.FPS()))
	case m.snap.Closed:
		status = warningTextStyle.Render("  stopped")
	default:
		status = "  " + m.spinner.View() + mutedTextStyle.Render(" running "+m.elapsedLabel())
	}

	return " " + title + info + status
}

func (m Model) elapsedLabel() string {
	elapsed := time.Since(m.start).Round(time.Second)
	if m.opts.Duration > 0 {
		return fmt.Sprintf("%s / %s", elapsed, m.opts.Duration)
	}
	return elapsed.String()
}

func (m Model) renderController() string {
	d := m.snap.RenderDistance
	span := float64(adaptive.MaxDistance - adaptive.MinDistance)
	pct := float64(adaptive.Clamp(d)-adaptive.MinDistance) / span

	fps := m.snap.LastWindow.FPS
	fpsText := "-"
	if fps > 0 {
		fpsText = fmt.Sprintf("%d", fps)
	}

	var b strings.Builder
	b.WriteString(statsLabelStyle.Render("Render distance"))
	b.WriteString(statsValueStyle.Render(padLeft(fmt.Sprintf("%d", d), 3)))
	b.WriteString("  ")
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString("\n")

	b.WriteString(statsLabelStyle.Render("Frame rate"))
	b.WriteString(fpsStyle(fps, m.opts.TargetFPS, m.opts.DeadBand).Render(padLeft(fpsText, 3)))
	b.WriteString(mutedTextStyle.Render(fmt.Sprintf("  target %d ± %d", m.opts.TargetFPS, m.opts.DeadBand)))
	b.WriteString("\n")

	b.WriteString(statsLabelStyle.Render("Light at player"))
	b.WriteString(statsValueStyle.Render(fmt.Sprintf("%.2f", m.snap.Light)))
	b.WriteString("\n")

	b.WriteString(statsLabelStyle.Render("GPU deletes"))
	b.WriteString(statsValueStyle.Render(humanize.Comma(int64(m.snap.GPUDeletes))))
	if m.snap.PendingDeletes > 0 {
		b.WriteString(mutedTextStyle.Render(fmt.Sprintf("  (%d pending)", m.snap.PendingDeletes)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderPools() string {
	var b strings.Builder
	b.WriteString(columnHeaderStyle.Render(fmt.Sprintf("%-14s %7s %7s %10s %8s %8s", "POOL", "WORKERS", "QUEUED", "COMPLETED", "DROPPED", "PANICS")))
	b.WriteString("\n")
	for _, p := range m.snap.Pools {
		workers := fmt.Sprintf("%d", p.Workers)
		if p.Workers == 0 {
			workers = "cached"
		}
		line := fmt.Sprintf("%-14s %7s %7d %10s %8d %8d",
			p.Name, workers, p.Queued, humanize.Comma(int64(p.Completed)), p.Dropped, p.Panicked)
		if p.Retired {
			b.WriteString(mutedTextStyle.Render(line + "  retired"))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCaches() string {
	names := make([]string, 0, len(m.snap.Caches))
	for name := range m.snap.Caches {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(columnHeaderStyle.Render(fmt.Sprintf("%-14s %7s %10s %10s %8s", "CACHE", "ENTRIES", "HITS", "MISSES", "EVICTED")))
	b.WriteString("\n")
	for _, name := range names {
		c := m.snap.Caches[name]
		fmt.Fprintf(&b, "%-14s %7d %10s %10s %8s\n",
			name, c.Entries, humanize.Comma(int64(c.Hits)), humanize.Comma(int64(c.Misses)), humanize.Comma(int64(c.Evictions)))
	}
	return b.String()
}

func (m Model) renderEngine() string {
	e := m.engine
	return mutedTextStyle.Render(fmt.Sprintf(
		"Engine: %s updates  •  %s rendered  •  %s chunks  •  %d textures live",
		humanize.Comma(int64(e.EntityUpdates)),
		humanize.Comma(int64(e.RenderedEntities)),
		humanize.Comma(int64(e.ChunkLoads)),
		e.LiveTextures)) + "\n"
}

func (m Model) renderFooter() string {
	return keyStyle.Render("q") + keyDescStyle.Render(" quit")
}
