package cli

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/videorag-go/internal/service"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	Accent     lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	Accent:     lipgloss.Color("#D7AF5F"), // amber
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) headingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

// tickMsg triggers reading the job state
type tickMsg time.Time

// progressModel is the bubbletea model for ingest progress.
type progressModel struct {
	job      *service.Job
	snap     service.JobSnapshot
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model.
func newProgressModel(job *service.Job) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		job:      job,
		snap:     job.Snapshot(),
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.snap = m.job.Snapshot()

		switch m.snap.Status {
		case service.JobStatusCompleted:
			m.done = true
			return m, tea.Quit
		case service.JobStatusFailed:
			m.done = true
			m.err = fmt.Errorf("%s", m.snap.Error)
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var pct float64
	if m.snap.Total > 0 {
		pct = float64(m.snap.Progress) / float64(m.snap.Total)
	}

	stage := m.snap.Stage
	if stage == "" {
		stage = string(m.snap.Status)
	}
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", stage))
	counts := fmt.Sprintf("%d/%d segments", m.snap.Progress, m.snap.Total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nIngest cancelled.\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Ingest failed: %s\n", m.err))
	}
	return formatIngestResult(m.theme, m.snap.Result)
}

// formatIngestResult renders an ingest summary.
func formatIngestResult(theme Theme, r *service.IngestResult) string {
	if r == nil {
		return theme.completedStyle().Render("✓ Completed") + "\n"
	}

	var b strings.Builder
	if r.Skipped {
		b.WriteString(theme.completedStyle().Render("✓ Already indexed") + "\n\n")
		fmt.Fprintf(&b, "  Video:     %s\n", r.Video.ID)
		fmt.Fprintf(&b, "  Segments:  %d\n", r.Segments)
		b.WriteString(theme.hintStyle().Render("  Use --force to re-index.") + "\n")
		return b.String()
	}

	b.WriteString(theme.completedStyle().Render("✓ Completed") + "\n\n")
	fmt.Fprintf(&b, "  Video:       %s\n", r.Video.ID)
	fmt.Fprintf(&b, "  Collection:  %s\n", r.Video.Collection)
	fmt.Fprintf(&b, "  Cues parsed: %d\n", r.Cues)
	fmt.Fprintf(&b, "  Segments:    %d\n", r.Segments)
	if !r.Embedded {
		b.WriteString(theme.hintStyle().Render("  No embedding provider: search uses full-text scoring.") + "\n")
	}
	return b.String()
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunJobProgress runs the interactive progress UI until the job finishes.
// Returns an error when the job fails or the user cancels.
func RunJobProgress(job *service.Job) error {
	p := tea.NewProgram(newProgressModel(job))

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return fmt.Errorf("ingest cancelled")
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
