package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/data"
)

// ChapterList is a striped list of the readable chapters of a manga.
// External chapters are hidden; a row keeps the stripe of its position in the
// full chapter list.
type ChapterList struct {
	chapters []*data.Chapter
	visible  []int
	selected int
	Width    int
	Height   int
}

func NewChapterList() *ChapterList {
	return &ChapterList{Width: 80, Height: 10}
}

func (l *ChapterList) SetChapters(chapters []*data.Chapter) {
	var current string
	if c := l.Selected(); c != nil {
		current = c.ID
	}

	l.chapters = chapters
	l.visible = l.visible[:0]
	l.selected = 0
	for i, chapter := range chapters {
		if chapter.External {
			continue
		}
		if chapter.ID == current {
			l.selected = len(l.visible)
		}
		l.visible = append(l.visible, i)
	}
}

func (l *ChapterList) Len() int {
	return len(l.visible)
}

// Hidden is the number of external chapters left out.
func (l *ChapterList) Hidden() int {
	return len(l.chapters) - len(l.visible)
}

func (l *ChapterList) Next() {
	if l.selected < len(l.visible)-1 {
		l.selected++
	}
}

func (l *ChapterList) Prev() {
	if l.selected > 0 {
		l.selected--
	}
}

func (l *ChapterList) Selected() *data.Chapter {
	if len(l.visible) == 0 {
		return nil
	}
	return l.chapters[l.visible[l.selected]]
}

func (l *ChapterList) View() string {
	if len(l.visible) == 0 {
		return styles.MutedStyle.Render("No readable chapters")
	}

	height := max(1, l.Height)
	start := max(0, l.selected-height/2)
	end := min(len(l.visible), start+height)
	start = max(0, end-height)

	rows := make([]string, 0, end-start+1)
	for pos := start; pos < end; pos++ {
		index := l.visible[pos]
		chapter := l.chapters[index]

		icon := "○"
		if chapter.Downloaded {
			icon = "●"
		}
		line := fmt.Sprintf(" %s %s", icon, chapter.Label())

		style := lipgloss.NewStyle().Foreground(styles.Foreground).Background(styles.RowColor(index))
		if chapter.Downloaded {
			style = style.Foreground(styles.Success)
		}
		if pos == l.selected {
			style = styles.SelectedRowStyle
		}
		rows = append(rows, style.Width(l.Width).MaxWidth(l.Width).Render(line))
	}

	if len(l.visible) > height {
		rows = append(rows, styles.MutedStyle.Render(
			fmt.Sprintf("Showing %d-%d of %d chapters", start+1, end, len(l.visible)),
		))
	}
	return strings.Join(rows, "\n")
}
