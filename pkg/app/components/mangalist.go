package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/data"
)

// cardLines is the height of one rendered library card, borders included.
const cardLines = 8

type MangaListItem struct {
	Manga           *data.Manga
	ChapterCount    int
	DownloadedCount int
	Progress        *data.ReadingProgress
}

// MangaList shows the library as cards, scrolled so the selected card stays
// visible.
type MangaList struct {
	Items         []MangaListItem
	SelectedIndex int
	Width         int
	Height        int
}

func NewMangaList() *MangaList {
	return &MangaList{
		Items:  []MangaListItem{},
		Width:  80,
		Height: 20,
	}
}

// SetItems replaces the list content. The selected manga stays selected when
// it is still present.
func (m *MangaList) SetItems(items []MangaListItem) {
	var current string
	if selected := m.Selected(); selected != nil {
		current = selected.Manga.ID
	}

	m.Items = items
	m.SelectedIndex = 0
	for i, item := range items {
		if item.Manga.ID == current {
			m.SelectedIndex = i
			break
		}
	}
}

func (m *MangaList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex = (m.SelectedIndex + 1) % len(m.Items)
}

func (m *MangaList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex = (m.SelectedIndex - 1 + len(m.Items)) % len(m.Items)
}

func (m *MangaList) Selected() *MangaListItem {
	if m.SelectedIndex < 0 || m.SelectedIndex >= len(m.Items) {
		return nil
	}
	return &m.Items[m.SelectedIndex]
}

// window returns the range of items that fit in Height.
func (m *MangaList) window() (start, end int) {
	visible := max(1, m.Height/cardLines)
	if len(m.Items) <= visible {
		return 0, len(m.Items)
	}
	start = m.SelectedIndex - visible/2
	start = max(0, min(start, len(m.Items)-visible))
	return start, start + visible
}

func (m *MangaList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render("No manga in library. Press tab to search.")
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var b strings.Builder
	start, end := m.window()
	for i := start; i < end; i++ {
		cardStyle := styles.CardStyle
		if i == m.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}
		b.WriteString(cardStyle.Width(max(20, m.Width-4)).Render(m.renderCard(m.Items[i])))
		b.WriteString("\n")
	}

	if start > 0 || end < len(m.Items) {
		b.WriteString(styles.MutedStyle.Render(
			fmt.Sprintf("Showing %d-%d of %d manga", start+1, end, len(m.Items)),
		))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *MangaList) renderCard(item MangaListItem) string {
	status := item.Manga.Status
	if status == "" {
		status = "ready"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.TitleStyle.Render(item.Manga.Name),
		styles.TextStyle.Render(truncate(item.Manga.Description, max(10, m.Width-10))),
		styles.MutedStyle.Render(
			fmt.Sprintf("Chapters: %d / %d downloaded", item.DownloadedCount, item.ChapterCount),
		),
		m.renderReading(item.Progress),
		styles.StatusStyle(item.Manga.Status).Render("Status: "+status)+
			styles.MutedStyle.Render(" • "+item.Manga.Source),
	)
}

func (m *MangaList) renderReading(progress *data.ReadingProgress) string {
	if progress == nil || progress.PageCount == 0 {
		return styles.MutedStyle.Render("Not started")
	}
	label := fmt.Sprintf("Reading: page %d/%d ", progress.Page+1, progress.PageCount)
	bar := SimpleProgress(progress.Page+1, progress.PageCount, max(10, min(30, m.Width-len(label)-10)))
	return styles.TextStyle.Render(label) + bar
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
