package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/services"
)

// ProgressTracker follows chapter downloads as reported by the downloader.
// Finished and skipped chapters drop out; failed ones stay listed until
// Clear.
type ProgressTracker struct {
	downloads map[string]services.DownloadProgress
	order     []string
	width     int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		downloads: make(map[string]services.DownloadProgress),
		width:     width,
	}
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

func (p *ProgressTracker) Update(progress services.DownloadProgress) {
	key := progress.MangaID + ":" + progress.ChapterID
	switch progress.Status {
	case services.StatusComplete, services.StatusSkipped:
		p.remove(key)
	default:
		if _, ok := p.downloads[key]; !ok {
			p.order = append(p.order, key)
		}
		p.downloads[key] = progress
	}
}

func (p *ProgressTracker) remove(key string) {
	if _, ok := p.downloads[key]; !ok {
		return
	}
	delete(p.downloads, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *ProgressTracker) Clear() {
	p.downloads = make(map[string]services.DownloadProgress)
	p.order = nil
}

// HasActive reports whether a chapter is still downloading or processing.
func (p *ProgressTracker) HasActive() bool {
	return len(p.downloads) > p.Failed()
}

func (p *ProgressTracker) Failed() int {
	failed := 0
	for _, progress := range p.downloads {
		if progress.Status == services.StatusError {
			failed++
		}
	}
	return failed
}

func (p *ProgressTracker) View() string {
	if len(p.downloads) == 0 {
		return ""
	}

	var b strings.Builder
	header := fmt.Sprintf("Downloads (%d active)", len(p.downloads)-p.Failed())
	if failed := p.Failed(); failed > 0 {
		header = fmt.Sprintf("Downloads (%d active, %d failed)", len(p.downloads)-failed, failed)
	}
	b.WriteString(styles.TitleStyle.Render(header))
	b.WriteString("\n")

	for _, key := range p.order {
		b.WriteString(p.renderRow(p.downloads[key]))
		b.WriteString("\n")
	}
	return b.String()
}

func (p *ProgressTracker) renderRow(progress services.DownloadProgress) string {
	label := fmt.Sprintf("Chapter %-6s", progress.ChapterNumber)
	if progress.ChapterNumber == "" {
		label = "Preparing     "
	}

	statusStyle := styles.StatusStyle(progress.Status)
	if progress.Error != nil {
		return styles.TextStyle.Render(label) + " " +
			styles.StatusError.Render(fmt.Sprintf("Error: %s", progress.Error))
	}
	if progress.TotalPages == 0 {
		return styles.TextStyle.Render(label) + " " + statusStyle.Render(progress.Status)
	}

	counter := fmt.Sprintf("%d/%d pages", progress.CurrentPage, progress.TotalPages)
	barWidth := p.width - len(label) - len(counter) - len(progress.Status) - 4
	return fmt.Sprintf("%s %s %s %s",
		styles.TextStyle.Render(label),
		renderProgressBar(progress.CurrentPage, progress.TotalPages, min(barWidth, 40)),
		styles.MutedStyle.Render(counter),
		statusStyle.Render(progress.Status),
	)
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	filled = max(0, min(filled, width))

	return styles.ProgressBarStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// SimpleProgress renders a bare progress bar.
func SimpleProgress(current, total, width int) string {
	return renderProgressBar(current, total, width)
}
