package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/services"
)

type screenType int

const (
	libraryView screenType = iota
	searchView
	detailsView
	readerView
)

type RootScreen struct {
	ctx        context.Context
	controller Controller

	currentView screenType
	library     *LibraryScreen
	search      *SearchScreen
	details     *DetailsScreen
	reader      *ReaderScreen
	initial     tea.Cmd

	width  int
	height int
}

func NewRootScreen(ctx context.Context, controller Controller) *RootScreen {
	return &RootScreen{
		ctx:         ctx,
		controller:  controller,
		currentView: libraryView,
		library:     NewLibraryScreen(ctx, controller),
		search:      NewSearchScreen(ctx, controller),
	}
}

// StartReading makes the program open straight into the reader.
func (r *RootScreen) StartReading(mangaID, chapterID string) {
	r.initial = switchTo(screenReader, ReaderTarget{MangaID: mangaID, ChapterID: chapterID})
}

func (r *RootScreen) Init() tea.Cmd {
	return tea.Batch(r.library.Init(), r.listenForProgress, r.initial)
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		// Every screen keeps its layout, not only the active one.
		r.library.Update(msg)
		r.search.Update(msg)
		if r.details != nil {
			r.details.Update(msg)
		}
		if r.reader != nil {
			r.reader.Update(msg)
		}
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if r.reader != nil {
				r.reader.Close()
			}
			return r, tea.Quit
		case "q":
			if r.currentView == libraryView {
				return r, tea.Quit
			}
		case "tab":
			if r.currentView != libraryView && r.currentView != searchView {
				break
			}
			if r.currentView == libraryView {
				r.currentView = searchView
				cmd = r.search.Init()
			} else {
				r.currentView = libraryView
				cmd = r.library.Init()
			}
			return r, cmd
		}

	case services.DownloadProgress:
		var cmds []tea.Cmd
		if r.details != nil {
			_, detailsCmd := r.details.Update(msg)
			cmds = append(cmds, detailsCmd)
		}
		if msg.Status == services.StatusComplete && r.currentView == libraryView {
			cmds = append(cmds, r.library.Init())
		}
		cmds = append(cmds, r.listenForProgress)
		return r, tea.Batch(cmds...)

	case SwitchScreenMsg:
		return r, r.switchScreen(msg)

	case readerOpenedMsg:
		// The reader may have been left or replaced while the chapter opened;
		// it still owns the session and closes it.
		if msg.screen != nil {
			_, cmd = msg.screen.Update(msg)
		}
		return r, cmd
	}

	// Forward message to active screen
	switch r.currentView {
	case libraryView:
		newModel, newCmd := r.library.Update(msg)
		r.library = newModel.(*LibraryScreen)
		return r, newCmd
	case searchView:
		newModel, newCmd := r.search.Update(msg)
		r.search = newModel.(*SearchScreen)
		return r, newCmd
	case detailsView:
		if r.details != nil {
			newModel, newCmd := r.details.Update(msg)
			r.details = newModel.(*DetailsScreen)
			return r, newCmd
		}
	case readerView:
		if r.reader != nil {
			newModel, newCmd := r.reader.Update(msg)
			r.reader = newModel.(*ReaderScreen)
			return r, newCmd
		}
	}

	return r, cmd
}

func (r *RootScreen) switchScreen(msg SwitchScreenMsg) tea.Cmd {
	size := tea.WindowSizeMsg{Width: r.width, Height: r.height}

	switch msg.Screen {
	case screenLibrary:
		r.currentView = libraryView
		return r.library.Init()
	case screenSearch:
		r.currentView = searchView
		return r.search.Init()
	case screenDetails:
		mangaID, ok := msg.Data.(string)
		if !ok {
			return nil
		}
		if r.details == nil || r.details.mangaID != mangaID {
			r.details = NewDetailsScreen(r.ctx, r.controller, mangaID)
			r.details.Update(size)
		}
		r.currentView = detailsView
		return r.details.Init()
	case screenReader:
		target, ok := msg.Data.(ReaderTarget)
		if !ok {
			return nil
		}
		if r.reader != nil {
			r.reader.Close()
		}
		r.reader = NewReaderScreen(r.ctx, r.controller, target.MangaID, target.ChapterID)
		r.reader.Update(size)
		r.currentView = readerView
		return r.reader.Init()
	}
	return nil
}

func (r *RootScreen) View() string {
	var content string
	switch r.currentView {
	case libraryView:
		content = r.library.View()
	case searchView:
		content = r.search.View()
	case detailsView:
		if r.details != nil {
			content = r.details.View()
		}
	case readerView:
		if r.reader != nil {
			return r.reader.View()
		}
	}

	if r.currentView == detailsView {
		return content
	}
	return fmt.Sprintf("%s\n\n%s", r.renderTabs(), content)
}

func (r *RootScreen) renderTabs() string {
	libraryTab := "Library"
	searchTab := "Search"

	if r.currentView == libraryView {
		libraryTab = styles.ActiveTabStyle.Render(libraryTab)
		searchTab = styles.InactiveTabStyle.Render(searchTab)
	} else {
		libraryTab = styles.InactiveTabStyle.Render(libraryTab)
		searchTab = styles.ActiveTabStyle.Render(searchTab)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, libraryTab, searchTab)
}

func (r *RootScreen) listenForProgress() tea.Msg {
	progress, ok := <-r.controller.DownloadProgress()
	if !ok {
		return nil
	}
	return progress
}

// Close stops an open reader, saving its position.
func (r *RootScreen) Close() {
	if r.reader != nil {
		r.reader.Close()
	}
}
