package tui

import (
	"fmt"
	"strings"

	"github.com/handiism/album-dl/internal/model"
)

const mb = 1024 * 1024

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("♪ album-dl"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Resumable album downloader"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		m.writeInput(&b)
	case StateInitializing:
		b.WriteString(m.spinner.View() + " " + promptStyle.Render("Fetching album listing...") + "\n\n")
		m.writeLogs(&b)
	case StateDownloading:
		m.writeDownloading(&b)
	case StateComplete:
		m.writeSummary(&b)
	case StateError:
		b.WriteString(failStyle.Render("✗ Error occurred:") + "\n\n")
		if m.err != nil {
			b.WriteString("  " + m.err.Error())
		}
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help()))
	return b.String()
}

func (m Model) writeInput(b *strings.Builder) {
	b.WriteString(promptStyle.Render("Enter album URL:") + "\n\n")
	b.WriteString(m.textInput.View() + "\n\n")

	b.WriteString(noteStyle.Render("Options:") + "\n")
	fmt.Fprintf(b, "  %s Prefix file names with track ID (alt+n)\n", checkbox(m.naming == model.NamingTrack))
	fmt.Fprintf(b, "  Output format: %s (alt+e)\n", m.ext)
	fmt.Fprintf(b, "  %s Create playlist (alt+p)\n", checkbox(m.playlist))
	fmt.Fprintf(b, "  %s Verbose/debug output (alt+v)\n\n", checkbox(m.verbose))
	b.WriteString(mutedStyle.Render("Download path: "+m.settings.OutputRoot) + "\n")
}

func (m Model) writeDownloading(b *strings.Builder) {
	if m.job != nil {
		b.WriteString(jobStyle.Render(fmt.Sprintf("♪ %s (%d tracks)", m.job.Title, len(m.job.Items))))
		b.WriteString("\n\n")
	}

	b.WriteString(m.progress.ViewAs(m.stats.fraction()) + "\n")
	b.WriteString(noteStyle.Render(fmt.Sprintf("Files: %d/%d | Received: %.2f MB",
		m.stats.files, m.stats.allFiles, float64(m.stats.received)/mb)))
	b.WriteString("\n\n")
	m.writeLogs(b)
}

func (m Model) writeSummary(b *strings.Builder) {
	var title string
	if m.job != nil {
		title = m.job.Title
	}
	var total, failed int
	if m.result != nil {
		total, failed = m.result.Total, m.result.Failed
	}

	headline := okStyle.Render("✓ Download Complete!")
	if failed > 0 {
		headline = warnStyle.Render(fmt.Sprintf("! Finished with %d failed item(s)", failed))
	}
	b.WriteString(summaryStyle.Render(fmt.Sprintf("%s\n\nAlbum: %s\nItems: %d\nFailed: %d\nSize: %.2f MB",
		headline, title, total, failed, float64(m.stats.received)/mb)))
	b.WriteString("\n")

	if failed == 0 {
		return
	}
	for i, f := range m.result.Failures {
		if i == maxFailures {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  … and %d more", failed-i)) + "\n")
			break
		}
		b.WriteString(failStyle.Render(fmt.Sprintf("  ✗ %s: %s", f.Ref.ID, model.Kind(f.Err))) + "\n")
	}
	b.WriteString(warnStyle.Render("Run the same URL again to resume the failed items.") + "\n")
}

func (m Model) writeLogs(b *strings.Builder) {
	for _, entry := range m.logs {
		style, bullet := eventStyle(entry.Level)
		b.WriteString(style.Render(bullet+" "+entry.Message) + "\n")
	}
}

func (m Model) help() string {
	k := m.keys
	switch {
	case m.state == StateInput:
		return helpLine(k.Start, k.Naming, k.Format, k.Playlist, k.Verbose) + " • esc: quit"
	case m.state.busy():
		return helpLine(k.Cancel)
	default:
		return helpLine(k.Restart, k.Quit)
	}
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}
