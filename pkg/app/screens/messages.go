package screens

import (
	"context"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/reader"
	"github.com/kerbaras/mangareader/pkg/services"
)

// Controller is the part of services.MangaController the screens use.
type Controller interface {
	Search(ctx context.Context, query string) ([]*data.Manga, error)
	AddManga(ctx context.Context, id string) (*data.Manga, []*data.Chapter, error)
	Library() ([]services.LibraryEntry, error)
	LoadDetails(ctx context.Context, mangaID string) (*data.Manga, []*data.Chapter, error)
	LoadCover(ctx context.Context, manga *data.Manga) (image.Image, error)
	OpenReader(ctx context.Context, mangaID, chapterID string) (*reader.Session, *data.Chapter, error)
	SaveProgress(mangaID, chapterID string, state reader.PaginationState) error
	Download(ctx context.Context, mangaID string, chapterIDs ...string) error
	ExportEPUB(ctx context.Context, mangaID, outputDir string) (string, error)
	DeleteManga(mangaID string) error
	DownloadProgress() <-chan services.DownloadProgress
}

const (
	screenLibrary = "library"
	screenSearch  = "search"
	screenDetails = "details"
	screenReader  = "reader"
)

// SwitchScreenMsg asks the root screen to change the active view.
type SwitchScreenMsg struct {
	Screen string
	Data   interface{}
}

// ReaderTarget is the SwitchScreenMsg payload for the reader view.
type ReaderTarget struct {
	MangaID   string
	ChapterID string
}

func switchTo(screen string, data interface{}) tea.Cmd {
	return func() tea.Msg {
		return SwitchScreenMsg{Screen: screen, Data: data}
	}
}

type epubGeneratedMsg struct {
	path string
	err  error
}

type downloadFinishedMsg struct {
	mangaID string
	err     error
}
