package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kerbaras/mangareader/pkg/config"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/integrations"
	"github.com/kerbaras/mangareader/pkg/reader"
	"github.com/kerbaras/mangareader/pkg/sources"
	"github.com/rs/zerolog"
)

var (
	ErrMangaNotFound   = errors.New("manga not found in library")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrExternalChapter = errors.New("chapter is hosted externally")
	ErrNoPages         = errors.New("chapter has no pages")
)

// readerMaxWidth bounds decoded pages kept in the reader cache.
const readerMaxWidth = 1200

// LibraryEntry is a stored manga with its chapter counts and the last
// reading position, if any.
type LibraryEntry struct {
	Manga      *data.Manga
	Chapters   int
	Downloaded int
	Progress   *data.ReadingProgress
}

// MangaController is the application facade used by the CLI and the TUI.
type MangaController struct {
	source     sources.Source
	repo       Repository
	downloader *Downloader
	fetcher    *Fetcher
	throttled  *Fetcher
	processor  *integrations.PageProcessor
	language   string
	readerCfg  config.ReaderConfig
	exportDir  string
	closers    []io.Closer
	log        zerolog.Logger
}

// NewMangaController opens the library database and wires the MangaDex
// source, the downloader and the reader according to cfg.
func NewMangaController(cfg *config.Config, log zerolog.Logger) (*MangaController, error) {
	repo, err := data.NewDuckDBRepository(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	source := sources.NewMangaDex(
		sources.WithBaseURL(cfg.Source.BaseURL),
		sources.WithCoverURL(cfg.Source.CoverURL),
		sources.WithDataSaver(cfg.Source.DataSaver),
	)

	c := newMangaController(source, repo, cfg, http.DefaultClient, log)
	c.closers = append(c.closers, repo)
	return c, nil
}

func newMangaController(source sources.Source, repo Repository, cfg *config.Config, client *http.Client, log zerolog.Logger) *MangaController {
	log = log.With().Str("component", "controller").Logger()
	throttled := NewFetcher(client, time.Duration(cfg.Source.RateLimitMS)*time.Millisecond)

	return &MangaController{
		source: source,
		repo:   repo,
		downloader: NewDownloader(
			source,
			repo,
			integrations.NewDirectoryProcessor(cfg.Downloads.Dir),
			throttled,
			cfg.Downloads.Concurrency,
			log,
		),
		fetcher:   NewFetcher(client, 0),
		throttled: throttled,
		processor: integrations.NewPageProcessor(integrations.PageSettings{
			MaxWidth:  readerMaxWidth,
			Grayscale: cfg.Reader.Grayscale,
			Contrast:  cfg.Reader.Contrast,
		}),
		language:  cfg.Source.Language,
		readerCfg: cfg.Reader,
		exportDir: filepath.Join(cfg.Downloads.Dir, "epub"),
		log:       log,
	}
}

// DownloadProgress reports the progress of every download started through
// the controller.
func (c *MangaController) DownloadProgress() <-chan DownloadProgress {
	return c.downloader.GetProgressChannel()
}

func (c *MangaController) Search(ctx context.Context, query string) ([]*data.Manga, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	return c.source.Search(ctx, query)
}

// AddManga stores a manga from the source in the library and refreshes its
// chapter list. Download state of known chapters is preserved.
func (c *MangaController) AddManga(ctx context.Context, id string) (*data.Manga, []*data.Chapter, error) {
	manga, err := c.source.GetManga(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get manga %s: %w", id, err)
	}

	existing, err := c.repo.GetManga(manga.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		manga.Status = existing.Status
	}
	if err := c.repo.SaveManga(manga); err != nil {
		return nil, nil, err
	}

	chapters, err := c.syncChapters(ctx, manga)
	if err != nil {
		return manga, nil, err
	}

	c.log.Info().Str("manga", manga.ID).Str("name", manga.Name).Int("chapters", len(chapters)).Msg("manga added")
	return manga, chapters, nil
}

func (c *MangaController) syncChapters(ctx context.Context, manga *data.Manga) ([]*data.Chapter, error) {
	chapters, err := c.source.GetChapters(ctx, manga, c.language)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}

	stored, err := c.repo.GetChapters(manga.ID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]*data.Chapter, len(stored))
	for _, chapter := range stored {
		known[chapter.ID] = chapter
	}

	for _, chapter := range chapters {
		if prev, ok := known[chapter.ID]; ok {
			chapter.Downloaded = prev.Downloaded
			chapter.FilePath = prev.FilePath
		}
		if err := c.repo.SaveChapter(chapter); err != nil {
			return nil, err
		}
	}

	return c.repo.GetChapters(manga.ID)
}

func (c *MangaController) Library() ([]LibraryEntry, error) {
	mangas, err := c.repo.ListMangas()
	if err != nil {
		return nil, err
	}

	entries := make([]LibraryEntry, 0, len(mangas))
	for _, manga := range mangas {
		_, total, downloaded, err := c.repo.GetMangaWithChapterCount(manga.ID)
		if err != nil {
			return nil, err
		}
		progress, err := c.repo.GetProgress(manga.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("manga", manga.ID).Msg("failed to read progress")
		}
		entries = append(entries, LibraryEntry{
			Manga:      manga,
			Chapters:   total,
			Downloaded: downloaded,
			Progress:   progress,
		})
	}
	return entries, nil
}

// FindManga resolves a library manga by ID, exact name or name fragment.
func (c *MangaController) FindManga(ref string) (*data.Manga, error) {
	mangas, err := c.repo.ListMangas()
	if err != nil {
		return nil, err
	}

	var partial *data.Manga
	for _, manga := range mangas {
		if manga.ID == ref || strings.EqualFold(manga.Name, ref) {
			return manga, nil
		}
		if partial == nil && strings.Contains(strings.ToLower(manga.Name), strings.ToLower(ref)) {
			partial = manga
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMangaNotFound, ref)
}

// FindChapter resolves a chapter by ID or by chapter number. Readable
// chapters win over external ones with the same number.
func (c *MangaController) FindChapter(mangaID, ref string) (*data.Chapter, error) {
	chapters, err := c.repo.GetChapters(mangaID)
	if err != nil {
		return nil, err
	}

	var external *data.Chapter
	for _, chapter := range chapters {
		if chapter.ID != ref && chapter.Number != ref {
			continue
		}
		if !chapter.External {
			return chapter, nil
		}
		if external == nil {
			external = chapter
		}
	}
	if external != nil {
		return external, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, ref)
}

// LoadDetails returns a library manga and its chapters, fetching the chapter
// list from the source the first time.
func (c *MangaController) LoadDetails(ctx context.Context, mangaID string) (*data.Manga, []*data.Chapter, error) {
	manga, err := c.repo.GetManga(mangaID)
	if err != nil {
		return nil, nil, err
	}
	if manga == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMangaNotFound, mangaID)
	}

	chapters, err := c.repo.GetChapters(mangaID)
	if err != nil {
		return nil, nil, err
	}
	if len(chapters) == 0 {
		chapters, err = c.syncChapters(ctx, manga)
		if err != nil {
			return manga, nil, err
		}
	}
	return manga, chapters, nil
}

func (c *MangaController) LoadCover(ctx context.Context, manga *data.Manga) (image.Image, error) {
	if manga.CoverURL == "" {
		return nil, fmt.Errorf("manga %s has no cover", manga.ID)
	}
	content, _, err := c.fetcher.Fetch(ctx, manga.CoverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cover: %w", err)
	}
	return integrations.DecodePage(content)
}

// OpenReader creates a reading session for a chapter. Downloaded chapters are
// read from disk. The session resumes at the stored page when the chapter is
// the one last read.
func (c *MangaController) OpenReader(ctx context.Context, mangaID, chapterID string) (*reader.Session, *data.Chapter, error) {
	chapter, err := c.FindChapter(mangaID, chapterID)
	if err != nil {
		return nil, nil, err
	}
	if chapter.External {
		return nil, chapter, fmt.Errorf("%w: %s", ErrExternalChapter, chapter.Label())
	}

	loader, err := c.pageLoader(ctx, chapter)
	if err != nil {
		return nil, chapter, err
	}
	if loader.PageCount() == 0 {
		return nil, chapter, fmt.Errorf("%w: %s", ErrNoPages, chapter.Label())
	}

	start := 0
	progress, err := c.repo.GetProgress(mangaID)
	if err != nil {
		c.log.Warn().Err(err).Str("manga", mangaID).Msg("failed to read progress")
	} else if progress != nil && progress.ChapterID == chapter.ID && progress.Page < loader.PageCount() {
		start = progress.Page
	}

	session, err := reader.NewSession(loader, start,
		reader.WithPrefetch(c.readerCfg.Prefetch),
		reader.WithCacheSize(c.readerCfg.CacheSize),
		reader.WithLogger(c.log),
	)
	if err != nil {
		return nil, chapter, fmt.Errorf("failed to open %s: %w", chapter.Label(), err)
	}
	return session, chapter, nil
}

func (c *MangaController) pageLoader(ctx context.Context, chapter *data.Chapter) (reader.PageLoader, error) {
	if chapter.Downloaded && chapter.FilePath != "" {
		loader, err := NewLocalPageLoader(chapter.FilePath, c.processor)
		if err == nil {
			return loader, nil
		}
		c.log.Warn().Err(err).Str("chapter", chapter.ID).Msg("downloaded pages unavailable, reading online")
	}

	urls, err := c.source.GetPages(ctx, chapter)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	return NewRemotePageLoader(c.fetcher, urls, c.processor), nil
}

func (c *MangaController) SaveProgress(mangaID, chapterID string, state reader.PaginationState) error {
	return c.repo.SaveProgress(&data.ReadingProgress{
		MangaID:   mangaID,
		ChapterID: chapterID,
		Page:      state.Index(),
		PageCount: state.PageCount(),
	})
}

func (c *MangaController) Progress(mangaID string) (*data.ReadingProgress, error) {
	return c.repo.GetProgress(mangaID)
}

// Download downloads the given chapters of a library manga, or all of them
// when no IDs are passed.
func (c *MangaController) Download(ctx context.Context, mangaID string, chapterIDs ...string) error {
	manga, err := c.repo.GetManga(mangaID)
	if err != nil {
		return err
	}
	if manga == nil {
		return fmt.Errorf("%w: %s", ErrMangaNotFound, mangaID)
	}

	chapters, err := c.repo.GetChapters(mangaID)
	if err != nil {
		return err
	}
	if len(chapterIDs) > 0 {
		wanted := make(map[string]bool, len(chapterIDs))
		for _, id := range chapterIDs {
			wanted[id] = true
		}
		selected := chapters[:0:0]
		for _, chapter := range chapters {
			if wanted[chapter.ID] {
				selected = append(selected, chapter)
			}
		}
		if len(selected) == 0 {
			return fmt.Errorf("%w: %s", ErrChapterNotFound, strings.Join(chapterIDs, ", "))
		}
		chapters = selected
	}
	if len(chapters) == 0 {
		return fmt.Errorf("manga %s has no chapters", manga.Name)
	}

	return c.downloader.DownloadManga(ctx, manga, chapters)
}

// ExportEPUB compiles the downloaded chapters of a manga into one EPUB under
// outputDir, or the default export directory when outputDir is empty.
func (c *MangaController) ExportEPUB(ctx context.Context, mangaID, outputDir string) (string, error) {
	manga, err := c.repo.GetManga(mangaID)
	if err != nil {
		return "", err
	}
	if manga == nil {
		return "", fmt.Errorf("%w: %s", ErrMangaNotFound, mangaID)
	}
	chapters, err := c.repo.GetChapters(mangaID)
	if err != nil {
		return "", err
	}

	if outputDir == "" {
		outputDir = c.exportDir
	}
	builder := integrations.NewEPubBuilder(outputDir)

	if manga.CoverURL != "" {
		content, contentType, err := c.fetcher.Fetch(ctx, manga.CoverURL, nil)
		if err == nil {
			err = builder.SetCover(integrations.CoverData{Content: content, ContentType: contentType})
		}
		if err != nil {
			c.log.Warn().Err(err).Str("manga", mangaID).Msg("exporting without cover")
		}
	}

	path, err := builder.CreateEPub(manga, chapters)
	if err != nil {
		return "", err
	}
	c.log.Info().Str("manga", mangaID).Str("path", path).Msg("epub exported")
	return path, nil
}

// DeleteManga removes a manga from the library along with its downloaded
// pages.
func (c *MangaController) DeleteManga(mangaID string) error {
	chapters, err := c.repo.GetChapters(mangaID)
	if err != nil {
		return err
	}
	if err := c.repo.DeleteManga(mangaID); err != nil {
		return err
	}
	for _, chapter := range chapters {
		if chapter.Downloaded && chapter.FilePath != "" {
			if err := os.RemoveAll(chapter.FilePath); err != nil {
				c.log.Warn().Err(err).Str("path", chapter.FilePath).Msg("failed to remove chapter files")
			}
		}
	}
	return nil
}

func (c *MangaController) Close() error {
	c.downloader.Close()
	c.fetcher.Close()
	c.throttled.Close()

	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
