package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderPhases(&b, m)
	if len(m.Resources) > 0 {
		renderResources(&b, m)
	}
	if m.Err != nil {
		b.WriteString(sectionStyle.Render("  Error"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "    %s\n", failedStyle.Render(m.Err.Error()))
	}
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("  hstack apply: %s", m.StackName)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if m.Location != "" {
		b.WriteString(subtitleStyle.Render("  location: " + m.Location))
		b.WriteString("\n")
	}
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(b, "  %s %d%%\n", bar, int(progress*100))
}

func renderPhases(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Phases"))
	b.WriteString("\n")

	for _, phase := range m.Phases {
		var icon string
		var style styleFunc
		switch {
		case phase.Err != nil:
			icon = crossMark
			style = sf(failedStyle)
		case phase.Done:
			icon = checkMark
			style = sf(readyStyle)
		case phase.Active:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}
		line := phase.Name
		if phase.Active && m.Progress.Phase == phase.Name && m.Progress.Total > 0 {
			line = fmt.Sprintf("%s %d/%d", line, m.Progress.Current, m.Progress.Total)
		}
		fmt.Fprintf(b, "    %s %s\n", style(icon), style(line))
	}
}

func renderResources(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Resources"))
	b.WriteString("\n")
	for _, r := range m.Resources {
		fmt.Fprintf(b, "    %s %s\n", r.Name, dimStyle.Render(r.Detail))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	parts := []string{"elapsed: " + formatDuration(time.Since(m.StartTime))}
	if m.LastLog != "" {
		parts = append(parts, m.LastLog)
	}
	status := "q: quit"
	if m.Quit {
		status = warningStyle.Render("interrupted")
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  %s", strings.Join(parts, "  |  "), status)))
	b.WriteString("\n")
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress weighs every phase equally. The active phase counts
// fractionally when it reports progress.
func calculateProgress(m Model) float64 {
	if m.Done && m.Err == nil {
		return 1.0
	}
	if len(m.Phases) == 0 {
		return 0
	}

	var done float64
	for _, p := range m.Phases {
		switch {
		case p.Done:
			done++
		case p.Active && m.Progress.Phase == p.Name && m.Progress.Total > 0:
			done += float64(m.Progress.Current) / float64(m.Progress.Total)
		}
	}
	return min(done/float64(len(m.Phases)), 1.0)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
