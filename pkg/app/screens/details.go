package screens

import (
	"context"
	"fmt"
	"image"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/components"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/services"
)

const (
	coverWidth  = 30
	coverHeight = 20
)

type DetailsScreen struct {
	ctx             context.Context
	controller      Controller
	mangaID         string
	manga           *data.Manga
	chapters        []*data.Chapter
	chapterList     *components.ChapterList
	cover           *components.ImageView
	description     viewport.Model
	spinner         spinner.Model
	progressTracker *components.ProgressTracker
	detailsLoaded   bool
	coverLoaded     bool
	status          string
	width           int
	height          int
	err             error
}

func NewDetailsScreen(ctx context.Context, controller Controller, mangaID string) *DetailsScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	cover := components.NewImageView()
	cover.SetSize(coverWidth, coverHeight)

	return &DetailsScreen{
		ctx:             ctx,
		controller:      controller,
		mangaID:         mangaID,
		chapterList:     components.NewChapterList(),
		cover:           cover,
		description:     viewport.New(40, 6),
		spinner:         sp,
		progressTracker: components.NewProgressTracker(80),
	}
}

func (s *DetailsScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.loadDetails)
}

func (s *DetailsScreen) loading() bool {
	return !s.detailsLoaded || !s.coverLoaded
}

func (s *DetailsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.progressTracker.SetWidth(msg.Width - 4)
		s.description.Width = max(20, msg.Width-coverWidth-8)
		s.chapterList.Width = msg.Width - 4
		s.chapterList.Height = max(3, msg.Height-coverHeight-12)

	case spinner.TickMsg:
		if !s.loading() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.chapterList.Prev()
		case "down", "j":
			s.chapterList.Next()
		case "pgup":
			s.description.LineUp(1)
		case "pgdown":
			s.description.LineDown(1)
		case "r":
			return s, s.loadDetails
		case "enter":
			if chapter := s.chapterList.Selected(); chapter != nil {
				return s, switchTo(screenReader, ReaderTarget{MangaID: s.mangaID, ChapterID: chapter.ID})
			}
		case "d":
			if chapter := s.chapterList.Selected(); chapter != nil {
				s.status = fmt.Sprintf("Downloading chapter %s...", chapter.Number)
				return s, s.downloadChapter(chapter.ID)
			}
		case "e":
			s.status = "Exporting EPUB..."
			return s, s.generateEPUB()
		case "esc", "backspace":
			return s, switchTo(screenLibrary, nil)
		}

	case detailsLoadedMsg:
		s.err = msg.err
		if msg.err != nil {
			s.detailsLoaded = true
			s.coverLoaded = true
			return s, nil
		}
		first := s.manga == nil
		s.manga = msg.manga
		s.chapters = msg.chapters
		s.chapterList.SetChapters(msg.chapters)
		s.description.SetContent(styles.TextStyle.Width(s.description.Width).Render(msg.manga.Description))
		s.detailsLoaded = true
		if first {
			return s, s.loadCover(msg.manga)
		}

	case coverLoadedMsg:
		// A missing cover does not keep the screen loading.
		s.coverLoaded = true
		if msg.err == nil {
			s.cover.SetImage(msg.img)
		}

	case services.DownloadProgress:
		if msg.MangaID == s.mangaID {
			s.progressTracker.Update(msg)
		}

	case downloadFinishedMsg:
		s.status = ""
		if msg.err != nil {
			s.err = msg.err
		}
		return s, s.loadDetails

	case epubGeneratedMsg:
		s.status = ""
		if msg.err != nil {
			s.err = msg.err
		} else {
			s.status = fmt.Sprintf("EPUB written to %s", msg.path)
		}
		return s, s.loadDetails
	}

	return s, nil
}

func (s *DetailsScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}
	if s.loading() {
		return fmt.Sprintf("\n  %s Loading manga...", s.spinner.View())
	}
	if s.manga == nil {
		return styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n" +
			styles.HelpStyle.Render("r: retry • esc: back")
	}

	header := styles.TitleStyle.Render(fmt.Sprintf("📖 %s", s.manga.Name))

	var statusMsg string
	if s.err != nil {
		statusMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	} else if s.status != "" {
		statusMsg = styles.StatusDownloading.Render(s.status) + "\n\n"
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, s.renderCover(), "  ", s.renderMangaInfo())

	var chapters string
	if s.chapterList.Len() > 0 {
		chapters = styles.SubtitleStyle.Render(fmt.Sprintf("Chapters (%d readable):", s.chapterList.Len())) + "\n\n"
	}
	chapters += s.chapterList.View()

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: read • d: download • e: export EPUB • pgup/pgdown: scroll description • r: refresh • esc: back",
	)

	return fmt.Sprintf("%s\n\n%s%s\n\n%s\n%s\n%s",
		header,
		statusMsg,
		top,
		chapters,
		s.progressTracker.View(),
		help,
	)
}

func (s *DetailsScreen) renderCover() string {
	view := s.cover.View()
	if view == "" {
		view = styles.MutedStyle.Render("No cover")
	}
	return lipgloss.NewStyle().Width(coverWidth).Render(view)
}

func (s *DetailsScreen) renderMangaInfo() string {
	status := styles.StatusStyle(s.manga.Status).Render(s.manga.Status)
	if s.manga.Status == "" {
		status = styles.MutedStyle.Render("Ready")
	}

	info := lipgloss.JoinVertical(
		lipgloss.Left,
		s.description.View(),
		"",
		styles.MutedStyle.Render(fmt.Sprintf("Source: %s", s.manga.Source)),
		status,
	)

	return styles.CardStyle.Width(s.description.Width + 4).Render(info)
}

// Messages
type detailsLoadedMsg struct {
	manga    *data.Manga
	chapters []*data.Chapter
	err      error
}

type coverLoadedMsg struct {
	img image.Image
	err error
}

// Commands
func (s *DetailsScreen) loadDetails() tea.Msg {
	manga, chapters, err := s.controller.LoadDetails(s.ctx, s.mangaID)
	return detailsLoadedMsg{manga: manga, chapters: chapters, err: err}
}

func (s *DetailsScreen) loadCover(manga *data.Manga) tea.Cmd {
	return func() tea.Msg {
		img, err := s.controller.LoadCover(s.ctx, manga)
		return coverLoadedMsg{img: img, err: err}
	}
}

func (s *DetailsScreen) downloadChapter(chapterID string) tea.Cmd {
	return func() tea.Msg {
		err := s.controller.Download(s.ctx, s.mangaID, chapterID)
		return downloadFinishedMsg{mangaID: s.mangaID, err: err}
	}
}

func (s *DetailsScreen) generateEPUB() tea.Cmd {
	return func() tea.Msg {
		path, err := s.controller.ExportEPUB(s.ctx, s.mangaID, "")
		return epubGeneratedMsg{path: path, err: err}
	}
}
