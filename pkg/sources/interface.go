package sources

import (
	"context"
	"errors"

	"github.com/kerbaras/mangareader/pkg/data"
)

var ErrNotFound = errors.New("not found")

type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]*data.Manga, error)
	GetManga(ctx context.Context, id string) (*data.Manga, error)
	GetChapters(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error)
	// GetPages returns the image URLs of a chapter in reading order.
	GetPages(ctx context.Context, chapter *data.Chapter) ([]string, error)
}
