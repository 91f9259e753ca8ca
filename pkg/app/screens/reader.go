package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangareader/pkg/app/components"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/reader"
)

// ReaderScreen shows one chapter a page at a time.
type ReaderScreen struct {
	ctx        context.Context
	controller Controller
	mangaID    string
	chapterID  string

	session *reader.Session
	chapter *data.Chapter
	state   reader.PaginationState
	image   *components.ImageView
	closed  bool

	width  int
	height int
	err    error
}

func NewReaderScreen(ctx context.Context, controller Controller, mangaID, chapterID string) *ReaderScreen {
	return &ReaderScreen{
		ctx:        ctx,
		controller: controller,
		mangaID:    mangaID,
		chapterID:  chapterID,
		image:      components.NewImageView(),
	}
}

func (s *ReaderScreen) Init() tea.Cmd {
	return s.openChapter
}

func (s *ReaderScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.image.SetSize(msg.Width, max(1, msg.Height-4))

	case readerOpenedMsg:
		if s.closed {
			if msg.session != nil {
				msg.session.Close()
			}
			return s, nil
		}
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		s.session = msg.session
		s.chapter = msg.chapter
		s.setState(msg.session.State())
		msg.session.Start(s.ctx)
		return s, s.listen(msg.session)

	case pageStateMsg:
		if msg.session != s.session || !msg.ok {
			return s, nil
		}
		s.setState(msg.state)
		return s, s.listen(msg.session)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			s.Close()
			return s, switchTo(screenDetails, s.mangaID)
		}
		if s.session == nil {
			return s, nil
		}
		switch msg.String() {
		case "l", "right", " ", "n":
			s.setState(s.session.Advance(1))
		case "h", "left", "p":
			s.setState(s.session.Advance(-1))
		case "g", "home":
			s.setState(s.session.Advance(-s.state.Index()))
		case "G", "end":
			s.setState(s.session.Advance(s.state.PageCount() - 1 - s.state.Index()))
		}
	}

	return s, nil
}

func (s *ReaderScreen) setState(state reader.PaginationState) {
	s.state = state
	if state.IsReady() {
		s.image.SetImage(state.Content())
	}
}

// Close stores the reading position and stops the session.
func (s *ReaderScreen) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.session == nil {
		return
	}
	if s.chapter != nil {
		if err := s.controller.SaveProgress(s.mangaID, s.chapter.ID, s.session.State()); err != nil {
			s.err = err
		}
	}
	s.session.Close()
}

func (s *ReaderScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}
	if s.err != nil && s.session == nil {
		return styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n" +
			styles.HelpStyle.Render("esc: back")
	}
	if s.session == nil {
		return styles.StatusDownloading.Render("Opening chapter...")
	}

	header := styles.TitleStyle.Render(s.chapterTitle())

	var body string
	switch {
	case !s.state.IsReady():
		percent := int(s.state.Progress() * 100)
		body = fmt.Sprintf("%s\n%s",
			styles.StatusDownloading.Render(fmt.Sprintf("Loading page... %d%%", percent)),
			components.SimpleProgress(percent, 100, max(10, s.width/2)),
		)
	case s.state.Content() == nil:
		msg := "Failed to load page"
		if err := s.session.Err(); err != nil {
			msg = fmt.Sprintf("%s: %s", msg, err)
		}
		body = styles.StatusError.Render(msg)
	default:
		body = s.image.View()
	}

	footer := styles.HelpStyle.Render(fmt.Sprintf(
		"page %d/%d • ←/h: prev • →/l/space: next • g/G: first/last • esc: back",
		s.state.Index()+1, s.state.PageCount(),
	))

	return fmt.Sprintf("%s\n%s\n%s", header, body, footer)
}

func (s *ReaderScreen) chapterTitle() string {
	if s.chapter == nil {
		return "📖 Reader"
	}
	return "📖 " + s.chapter.Label()
}

// Messages
type readerOpenedMsg struct {
	screen  *ReaderScreen
	session *reader.Session
	chapter *data.Chapter
	err     error
}

type pageStateMsg struct {
	session *reader.Session
	state   reader.PaginationState
	ok      bool
}

// Commands
func (s *ReaderScreen) openChapter() tea.Msg {
	session, chapter, err := s.controller.OpenReader(s.ctx, s.mangaID, s.chapterID)
	return readerOpenedMsg{screen: s, session: session, chapter: chapter, err: err}
}

func (s *ReaderScreen) listen(session *reader.Session) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-session.Updates()
		return pageStateMsg{session: session, state: state, ok: ok}
	}
}
