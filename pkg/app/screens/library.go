package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangareader/pkg/app/components"
	"github.com/kerbaras/mangareader/pkg/app/styles"
)

type LibraryScreen struct {
	ctx        context.Context
	controller Controller
	mangaList  *components.MangaList
	width      int
	height     int
	status     string
	err        error
}

func NewLibraryScreen(ctx context.Context, controller Controller) *LibraryScreen {
	return &LibraryScreen{
		ctx:        ctx,
		controller: controller,
		mangaList:  components.NewMangaList(),
	}
}

func (s *LibraryScreen) Init() tea.Cmd {
	return s.loadLibrary
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.mangaList.Width = msg.Width - 4
		s.mangaList.Height = msg.Height - 10

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.mangaList.Prev()
		case "down", "j":
			s.mangaList.Next()
		case "r":
			return s, s.loadLibrary
		case "d":
			if selected := s.mangaList.Selected(); selected != nil {
				return s, s.deleteManga(selected.Manga.ID)
			}
		case "e":
			if selected := s.mangaList.Selected(); selected != nil {
				s.status = fmt.Sprintf("Exporting %s...", selected.Manga.Name)
				return s, s.generateEPUB(selected.Manga.ID)
			}
		case "enter":
			if selected := s.mangaList.Selected(); selected != nil {
				return s, switchTo(screenDetails, selected.Manga.ID)
			}
		}

	case libraryLoadedMsg:
		s.mangaList.SetItems(msg.items)
		s.err = msg.err

	case epubGeneratedMsg:
		s.err = msg.err
		s.status = ""
		if msg.err == nil {
			s.status = fmt.Sprintf("EPUB written to %s", msg.path)
		}
		return s, s.loadLibrary

	case mangaDeletedMsg:
		s.err = msg.err
		return s, s.loadLibrary
	}

	return s, nil
}

func (s *LibraryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("📚 Manga Library")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
		errorMsg += "\n\n"
	} else if s.status != "" {
		errorMsg = styles.StatusCompleted.Render(s.status) + "\n\n"
	}

	listView := s.mangaList.View()

	help := styles.HelpStyle.Render(
		"↑/k: up • ↓/j: down • enter: details • e: export EPUB • d: delete • r: refresh • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, listView, help)
}

// Messages
type libraryLoadedMsg struct {
	items []components.MangaListItem
	err   error
}

type mangaDeletedMsg struct {
	err error
}

// Commands
func (s *LibraryScreen) loadLibrary() tea.Msg {
	entries, err := s.controller.Library()
	if err != nil {
		return libraryLoadedMsg{err: err}
	}

	items := make([]components.MangaListItem, len(entries))
	for i, entry := range entries {
		items[i] = components.MangaListItem{
			Manga:           entry.Manga,
			ChapterCount:    entry.Chapters,
			DownloadedCount: entry.Downloaded,
			Progress:        entry.Progress,
		}
	}
	return libraryLoadedMsg{items: items}
}

func (s *LibraryScreen) generateEPUB(mangaID string) tea.Cmd {
	return func() tea.Msg {
		path, err := s.controller.ExportEPUB(s.ctx, mangaID, "")
		return epubGeneratedMsg{path: path, err: err}
	}
}

func (s *LibraryScreen) deleteManga(mangaID string) tea.Cmd {
	return func() tea.Msg {
		return mangaDeletedMsg{err: s.controller.DeleteManga(mangaID)}
	}
}
