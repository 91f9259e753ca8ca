package screens

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/reader"
	"github.com/kerbaras/mangareader/pkg/services"
)

type instantLoader struct {
	pages int
}

func (l *instantLoader) PageCount() int { return l.pages }

func (l *instantLoader) LoadPage(ctx context.Context, index int, progress func(float64)) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(index * 40), A: 255})
		}
	}
	progress(1)
	return img, nil
}

type savedProgress struct {
	mangaID   string
	chapterID string
	page      int
}

type fakeController struct {
	mu sync.Mutex

	library    []services.LibraryEntry
	results    []*data.Manga
	manga      *data.Manga
	chapters   []*data.Chapter
	cover      image.Image
	coverErr   error
	pages      int
	progressCh chan services.DownloadProgress

	searches  []string
	added     []string
	downloads [][]string
	deleted   []string
	saved     []savedProgress
}

func newFakeController() *fakeController {
	return &fakeController{
		manga: &data.Manga{ID: "m-1", Name: "One Piece", Description: "Pirates", Source: "mangadex"},
		chapters: []*data.Chapter{
			{ID: "c-1", MangaID: "m-1", Number: "1"},
			{ID: "c-2", MangaID: "m-1", Number: "2", External: true},
			{ID: "c-3", MangaID: "m-1", Number: "3"},
		},
		pages:      3,
		progressCh: make(chan services.DownloadProgress, 10),
	}
}

func (f *fakeController) Search(ctx context.Context, query string) ([]*data.Manga, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	return f.results, nil
}

func (f *fakeController) AddManga(ctx context.Context, id string) (*data.Manga, []*data.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, id)
	return &data.Manga{ID: id}, nil, nil
}

func (f *fakeController) Library() ([]services.LibraryEntry, error) {
	return f.library, nil
}

func (f *fakeController) LoadDetails(ctx context.Context, mangaID string) (*data.Manga, []*data.Chapter, error) {
	if mangaID != f.manga.ID {
		return nil, nil, services.ErrMangaNotFound
	}
	return f.manga, f.chapters, nil
}

func (f *fakeController) LoadCover(ctx context.Context, manga *data.Manga) (image.Image, error) {
	return f.cover, f.coverErr
}

func (f *fakeController) OpenReader(ctx context.Context, mangaID, chapterID string) (*reader.Session, *data.Chapter, error) {
	for _, c := range f.chapters {
		if c.ID == chapterID {
			session, err := reader.NewSession(&instantLoader{pages: f.pages}, 0)
			return session, c, err
		}
	}
	return nil, nil, services.ErrChapterNotFound
}

func (f *fakeController) SaveProgress(mangaID, chapterID string, state reader.PaginationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedProgress{mangaID, chapterID, state.Index()})
	return nil
}

func (f *fakeController) Download(ctx context.Context, mangaID string, chapterIDs ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, chapterIDs)
	return nil
}

func (f *fakeController) ExportEPUB(ctx context.Context, mangaID, outputDir string) (string, error) {
	return "/tmp/" + mangaID + ".epub", nil
}

func (f *fakeController) DeleteManga(mangaID string) error {
	f.deleted = append(f.deleted, mangaID)
	return nil
}

func (f *fakeController) DownloadProgress() <-chan services.DownloadProgress {
	return f.progressCh
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func expectSwitch(t *testing.T, cmd tea.Cmd, screen string) SwitchScreenMsg {
	t.Helper()
	if cmd == nil {
		t.Fatalf("Expected a command switching to %s", screen)
	}
	raw := cmd()
	msg, ok := raw.(SwitchScreenMsg)
	if !ok {
		t.Fatalf("Expected SwitchScreenMsg, got %T", raw)
	}
	if msg.Screen != screen {
		t.Fatalf("Expected switch to %s, got %s", screen, msg.Screen)
	}
	return msg
}

var size = tea.WindowSizeMsg{Width: 100, Height: 50}

func TestLibraryScreenLoadsEntries(t *testing.T) {
	ctrl := newFakeController()
	ctrl.library = []services.LibraryEntry{
		{Manga: &data.Manga{ID: "m-1", Name: "One Piece"}, Chapters: 10, Downloaded: 4},
	}

	s := NewLibraryScreen(context.Background(), ctrl)
	s.Update(size)
	s.Update(s.Init()())

	if !strings.Contains(s.View(), "One Piece") {
		t.Errorf("Expected manga in view, got:\n%s", s.View())
	}

	msg := expectSwitch(t, func() tea.Cmd { _, cmd := s.Update(keyMsg("enter")); return cmd }(), screenDetails)
	if msg.Data != "m-1" {
		t.Errorf("Expected details for m-1, got %v", msg.Data)
	}
}

func TestLibraryScreenDelete(t *testing.T) {
	ctrl := newFakeController()
	ctrl.library = []services.LibraryEntry{{Manga: &data.Manga{ID: "m-1", Name: "One Piece"}}}

	s := NewLibraryScreen(context.Background(), ctrl)
	s.Update(s.Init()())

	_, cmd := s.Update(keyMsg("d"))
	if cmd == nil {
		t.Fatal("Expected delete command")
	}
	s.Update(cmd())

	if len(ctrl.deleted) != 1 || ctrl.deleted[0] != "m-1" {
		t.Errorf("Expected m-1 to be deleted, got %v", ctrl.deleted)
	}
}

func TestSearchScreenSearchAndAdd(t *testing.T) {
	ctrl := newFakeController()
	ctrl.results = []*data.Manga{{ID: "m-9", Name: "Berserk"}}

	s := NewSearchScreen(context.Background(), ctrl)
	s.Update(size)
	for _, r := range "berserk" {
		s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	_, cmd := s.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("Expected search command")
	}
	s.Update(cmd())

	if len(ctrl.searches) != 1 || ctrl.searches[0] != "berserk" {
		t.Errorf("Expected one search for berserk, got %v", ctrl.searches)
	}
	if !strings.Contains(s.View(), "Berserk") {
		t.Errorf("Expected result in view, got:\n%s", s.View())
	}

	_, cmd = s.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("Expected add command")
	}
	_, cmd = s.Update(cmd())
	msg := expectSwitch(t, cmd, screenDetails)
	if msg.Data != "m-9" {
		t.Errorf("Expected details for m-9, got %v", msg.Data)
	}
	if len(ctrl.added) != 1 || ctrl.added[0] != "m-9" {
		t.Errorf("Expected m-9 to be added, got %v", ctrl.added)
	}
}

func TestSearchScreenIgnoresBlankQuery(t *testing.T) {
	ctrl := newFakeController()
	s := NewSearchScreen(context.Background(), ctrl)
	s.Update(keyMsg(" "))

	_, cmd := s.Update(keyMsg("enter"))
	if cmd != nil {
		t.Error("Expected no command for a blank query")
	}
}

func loadedDetails(t *testing.T, ctrl *fakeController) *DetailsScreen {
	t.Helper()
	s := NewDetailsScreen(context.Background(), ctrl, "m-1")
	s.Update(size)

	_, cmd := s.Update(s.loadDetails())
	if cmd == nil {
		t.Fatal("Expected cover command after first load")
	}
	s.Update(cmd())
	return s
}

func TestDetailsScreenLoading(t *testing.T) {
	ctrl := newFakeController()
	s := NewDetailsScreen(context.Background(), ctrl, "m-1")
	s.Update(size)

	if !strings.Contains(s.View(), "Loading manga") {
		t.Errorf("Expected spinner before load, got:\n%s", s.View())
	}

	s.Update(s.loadDetails())
	if !s.loading() {
		t.Error("Expected screen to keep loading until the cover arrives")
	}
}

func TestDetailsScreenCoverErrorStillLoads(t *testing.T) {
	ctrl := newFakeController()
	ctrl.coverErr = errors.New("no cover")

	s := loadedDetails(t, ctrl)
	if s.loading() {
		t.Fatal("Expected screen to be loaded")
	}

	view := s.View()
	if !strings.Contains(view, "One Piece") {
		t.Errorf("Expected title in view, got:\n%s", view)
	}
	if !strings.Contains(view, "No cover") {
		t.Errorf("Expected cover placeholder, got:\n%s", view)
	}
}

func TestDetailsScreenOpenReader(t *testing.T) {
	ctrl := newFakeController()
	s := loadedDetails(t, ctrl)

	s.Update(keyMsg("down"))
	_, cmd := s.Update(keyMsg("enter"))
	msg := expectSwitch(t, cmd, screenReader)

	target, ok := msg.Data.(ReaderTarget)
	if !ok {
		t.Fatalf("Expected ReaderTarget, got %T", msg.Data)
	}
	if target.MangaID != "m-1" || target.ChapterID != "c-3" {
		t.Errorf("Expected m-1/c-3, got %+v", target)
	}
}

func TestDetailsScreenDownload(t *testing.T) {
	ctrl := newFakeController()
	s := loadedDetails(t, ctrl)

	_, cmd := s.Update(keyMsg("d"))
	if cmd == nil {
		t.Fatal("Expected download command")
	}
	msg, ok := cmd().(downloadFinishedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("Expected successful downloadFinishedMsg, got %+v", msg)
	}
	if len(ctrl.downloads) != 1 || len(ctrl.downloads[0]) != 1 || ctrl.downloads[0][0] != "c-1" {
		t.Errorf("Expected c-1 download, got %v", ctrl.downloads)
	}

	s.Update(services.DownloadProgress{MangaID: "m-1", ChapterID: "c-1", ChapterNumber: "1", Status: services.StatusDownloading, TotalPages: 4, CurrentPage: 1})
	if !s.progressTracker.HasActive() {
		t.Error("Expected active download in tracker")
	}
	s.Update(services.DownloadProgress{MangaID: "m-2", ChapterID: "x", Status: services.StatusDownloading})
	if !strings.Contains(s.View(), "Chapter 1") {
		t.Errorf("Expected chapter progress in view, got:\n%s", s.View())
	}
}

func TestDetailsScreenBack(t *testing.T) {
	s := loadedDetails(t, newFakeController())
	_, cmd := s.Update(keyMsg("esc"))
	expectSwitch(t, cmd, screenLibrary)
}

func openReader(t *testing.T, ctrl *fakeController) *ReaderScreen {
	t.Helper()
	s := NewReaderScreen(context.Background(), ctrl, "m-1", "c-1")
	s.Update(size)

	_, cmd := s.Update(s.Init()())
	for i := 0; i < 10 && !s.state.IsReady(); i++ {
		if cmd == nil {
			t.Fatal("Expected the screen to keep listening for page updates")
		}
		_, cmd = s.Update(cmd())
	}
	if !s.state.IsReady() {
		t.Fatal("Expected first page to become ready")
	}
	return s
}

func TestReaderScreenShowsPage(t *testing.T) {
	ctrl := newFakeController()
	s := openReader(t, ctrl)
	defer s.Close()

	view := s.View()
	if !strings.Contains(view, "page 1/3") {
		t.Errorf("Expected page counter, got:\n%s", view)
	}
	if !strings.Contains(view, "▀") {
		t.Errorf("Expected rendered image, got:\n%s", view)
	}
}

func TestReaderScreenNavigation(t *testing.T) {
	ctrl := newFakeController()
	s := openReader(t, ctrl)
	defer s.Close()

	s.Update(keyMsg("l"))
	if s.state.Index() != 1 {
		t.Errorf("Expected page 1, got %d", s.state.Index())
	}

	s.Update(keyMsg("G"))
	if s.state.Index() != 2 {
		t.Errorf("Expected last page, got %d", s.state.Index())
	}

	s.Update(keyMsg("l"))
	if s.state.Index() != 2 {
		t.Errorf("Expected to stay on the last page, got %d", s.state.Index())
	}

	s.Update(keyMsg("g"))
	if s.state.Index() != 0 {
		t.Errorf("Expected first page, got %d", s.state.Index())
	}

	s.Update(keyMsg("h"))
	if s.state.Index() != 0 {
		t.Errorf("Expected to stay on the first page, got %d", s.state.Index())
	}
}

func TestReaderScreenSavesProgressOnExit(t *testing.T) {
	ctrl := newFakeController()
	s := openReader(t, ctrl)

	s.Update(keyMsg("l"))
	_, cmd := s.Update(keyMsg("esc"))
	msg := expectSwitch(t, cmd, screenDetails)
	if msg.Data != "m-1" {
		t.Errorf("Expected details for m-1, got %v", msg.Data)
	}

	if len(ctrl.saved) != 1 {
		t.Fatalf("Expected one saved position, got %d", len(ctrl.saved))
	}
	if got := ctrl.saved[0]; got.chapterID != "c-1" || got.page != 1 {
		t.Errorf("Expected c-1 page 1, got %+v", got)
	}

	// Closing twice saves once.
	s.Close()
	if len(ctrl.saved) != 1 {
		t.Errorf("Expected Close to be idempotent, got %d saves", len(ctrl.saved))
	}
}

func TestReaderScreenOpenError(t *testing.T) {
	ctrl := newFakeController()
	s := NewReaderScreen(context.Background(), ctrl, "m-1", "missing")
	s.Update(size)
	s.Update(s.Init()())

	if !strings.Contains(s.View(), "chapter not found") {
		t.Errorf("Expected error in view, got:\n%s", s.View())
	}
}

func TestRootScreenTabSwitchesViews(t *testing.T) {
	root := NewRootScreen(context.Background(), newFakeController())
	root.Update(size)

	if root.currentView != libraryView {
		t.Fatal("Expected library view first")
	}
	root.Update(keyMsg("tab"))
	if root.currentView != searchView {
		t.Errorf("Expected search view after tab, got %d", root.currentView)
	}
	root.Update(keyMsg("tab"))
	if root.currentView != libraryView {
		t.Errorf("Expected library view after second tab, got %d", root.currentView)
	}
}

func TestRootScreenSwitchToDetails(t *testing.T) {
	root := NewRootScreen(context.Background(), newFakeController())
	root.Update(size)

	root.Update(SwitchScreenMsg{Screen: screenDetails, Data: "m-1"})
	if root.currentView != detailsView {
		t.Fatalf("Expected details view, got %d", root.currentView)
	}
	if root.details == nil || root.details.mangaID != "m-1" {
		t.Fatal("Expected details screen for m-1")
	}

	first := root.details
	root.Update(SwitchScreenMsg{Screen: screenDetails, Data: "m-1"})
	if root.details != first {
		t.Error("Expected the details screen to be reused for the same manga")
	}
}

func TestRootScreenQuitOnlyFromLibrary(t *testing.T) {
	root := NewRootScreen(context.Background(), newFakeController())
	root.Update(size)
	root.Update(SwitchScreenMsg{Screen: screenSearch})

	root.Update(keyMsg("q"))
	if root.search.input.Value() != "q" {
		t.Errorf("Expected q to be typed into search, got %q", root.search.input.Value())
	}
}

func TestRootScreenClosesSessionOpenedAfterLeaving(t *testing.T) {
	root := NewRootScreen(context.Background(), newFakeController())
	root.Update(size)

	_, cmd := root.Update(SwitchScreenMsg{Screen: screenReader, Data: ReaderTarget{MangaID: "m-1", ChapterID: "c-1"}})
	if root.currentView != readerView || cmd == nil {
		t.Fatal("Expected the reader to start opening the chapter")
	}
	opened, ok := cmd().(readerOpenedMsg)
	if !ok || opened.session == nil {
		t.Fatal("Expected an opened session")
	}

	root.Update(keyMsg("esc"))
	root.Update(opened)

	select {
	case _, open := <-opened.session.Updates():
		if open {
			t.Error("Expected no page updates from an abandoned session")
		}
	default:
		t.Error("Expected the abandoned session to be closed")
	}
}
