package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/data"
)

type SearchScreen struct {
	ctx        context.Context
	controller Controller
	input      textinput.Model
	results    []*data.Manga
	selected   int
	searching  bool
	adding     bool
	width      int
	height     int
	err        error
}

func NewSearchScreen(ctx context.Context, controller Controller) *SearchScreen {
	ti := textinput.New()
	ti.Placeholder = "Search manga..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	return &SearchScreen{
		ctx:        ctx,
		controller: controller,
		input:      ti,
	}
}

func (s *SearchScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *SearchScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		if s.searching || s.adding {
			return s, nil
		}

		switch msg.String() {
		case "enter":
			if s.input.Focused() {
				query := strings.TrimSpace(s.input.Value())
				if query != "" {
					s.searching = true
					s.err = nil
					return s, s.performSearch(query)
				}
			} else if len(s.results) > 0 {
				s.adding = true
				return s, s.addManga(s.results[s.selected].ID)
			}
			return s, nil

		case "esc":
			// Switch focus between input and results
			if s.input.Focused() {
				s.input.Blur()
			} else {
				s.input.Focus()
				cmd = textinput.Blink
			}
			return s, cmd

		case "up", "k":
			if !s.input.Focused() && len(s.results) > 0 {
				s.selected--
				if s.selected < 0 {
					s.selected = len(s.results) - 1
				}
				return s, nil
			}

		case "down", "j":
			if !s.input.Focused() && len(s.results) > 0 {
				s.selected++
				if s.selected >= len(s.results) {
					s.selected = 0
				}
				return s, nil
			}
		}

	case searchResultMsg:
		s.searching = false
		s.results = msg.results
		s.selected = 0
		s.err = msg.err
		if len(s.results) > 0 {
			s.input.Blur()
		}
		return s, nil

	case mangaAddedMsg:
		s.adding = false
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		return s, switchTo(screenDetails, msg.manga.ID)
	}

	if s.input.Focused() {
		s.input, cmd = s.input.Update(msg)
	}

	return s, cmd
}

func (s *SearchScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("🔍 Search Manga")

	inputStyle := styles.InputStyle
	if s.input.Focused() {
		inputStyle = styles.FocusedInputStyle
	}
	inputView := inputStyle.Render(s.input.View())

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
		errorMsg += "\n\n"
	}

	var resultsView string
	switch {
	case s.searching:
		resultsView = styles.StatusDownloading.Render("Searching...")
	case s.adding:
		resultsView = styles.StatusDownloading.Render("Adding to library...")
	case len(s.results) > 0:
		resultsView = s.renderResults()
	case s.input.Value() != "" && s.err == nil:
		resultsView = styles.MutedStyle.Render("No results found")
	}

	help := styles.HelpStyle.Render(
		"enter: search/add • esc: switch focus • ↑/k ↓/j: navigate • tab: switch view • ctrl+c: quit",
	)

	return fmt.Sprintf("%s\n\n%s\n\n%s%s\n\n%s",
		header,
		inputView,
		errorMsg,
		resultsView,
		help,
	)
}

func (s *SearchScreen) renderResults() string {
	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Found %d results:", len(s.results))))
	b.WriteString("\n\n")

	for i, manga := range s.results {
		cardStyle := styles.CardStyle
		if i == s.selected && !s.input.Focused() {
			cardStyle = styles.ActiveCardStyle
		}

		desc := []rune(manga.Description)
		if len(desc) > 120 {
			desc = append(desc[:117], []rune("...")...)
		}

		cardContent := lipgloss.JoinVertical(
			lipgloss.Left,
			styles.TitleStyle.Render(manga.Name),
			styles.TextStyle.Render(string(desc)),
			styles.MutedStyle.Render(fmt.Sprintf("Source: %s • ID: %s", manga.Source, manga.ID)),
		)

		b.WriteString(cardStyle.Width(max(20, s.width-6)).Render(cardContent))
		b.WriteString("\n")
	}

	return b.String()
}

// Messages
type searchResultMsg struct {
	results []*data.Manga
	err     error
}

type mangaAddedMsg struct {
	manga *data.Manga
	err   error
}

// Commands
func (s *SearchScreen) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := s.controller.Search(s.ctx, query)
		return searchResultMsg{results: results, err: err}
	}
}

func (s *SearchScreen) addManga(mangaID string) tea.Cmd {
	return func() tea.Msg {
		manga, _, err := s.controller.AddManga(s.ctx, mangaID)
		return mangaAddedMsg{manga: manga, err: err}
	}
}
