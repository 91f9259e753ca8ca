package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/integrations"
	"github.com/kerbaras/mangareader/pkg/sources"
	"github.com/rs/zerolog"
)

const (
	StatusDownloading = "downloading"
	StatusProcessing  = "processing"
	StatusComplete    = "complete"
	StatusSkipped     = "skipped"
	StatusError       = "error"
)

// DownloadProgress represents the progress of a download operation
type DownloadProgress struct {
	MangaID       string
	ChapterID     string
	ChapterNumber string
	CurrentPage   int
	TotalPages    int
	Status        string
	Error         error
}

// Repository is the part of the library store the services need.
type Repository interface {
	SaveManga(manga *data.Manga) error
	GetManga(id string) (*data.Manga, error)
	ListMangas() ([]*data.Manga, error)
	DeleteManga(mangaID string) error
	GetMangaWithChapterCount(mangaID string) (*data.Manga, int, int, error)
	SaveChapter(chapter *data.Chapter) error
	GetChapters(mangaID string) ([]*data.Chapter, error)
	UpdateChapterStatus(chapterID string, downloaded bool, filePath string, pages int) error
	SaveProgress(progress *data.ReadingProgress) error
	GetProgress(mangaID string) (*data.ReadingProgress, error)
}

// Downloader fetches chapter pages and hands them to a Processor.
type Downloader struct {
	source       sources.Source
	repo         Repository
	processor    integrations.Processor
	fetcher      *Fetcher
	concurrency  int
	progressChan chan DownloadProgress
	closeOnce    sync.Once
	log          zerolog.Logger
}

func NewDownloader(source sources.Source, repo Repository, processor integrations.Processor, fetcher *Fetcher, concurrency int, log zerolog.Logger) *Downloader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Downloader{
		source:       source,
		repo:         repo,
		processor:    processor,
		fetcher:      fetcher,
		concurrency:  concurrency,
		progressChan: make(chan DownloadProgress, 100),
		log:          log.With().Str("component", "downloader").Logger(),
	}
}

// GetProgressChannel returns the channel for receiving download progress updates
func (d *Downloader) GetProgressChannel() <-chan DownloadProgress {
	return d.progressChan
}

// DownloadManga downloads the given chapters, or every chapter stored for the
// manga when chapters is empty. Chapters already downloaded or hosted
// externally are skipped.
func (d *Downloader) DownloadManga(ctx context.Context, manga *data.Manga, chapters []*data.Chapter) error {
	if manga == nil {
		return fmt.Errorf("manga cannot be nil")
	}

	if len(chapters) == 0 {
		var err error
		chapters, err = d.repo.GetChapters(manga.ID)
		if err != nil {
			return fmt.Errorf("failed to get chapters: %w", err)
		}
	}

	manga.Status = "downloading"
	if err := d.repo.SaveManga(manga); err != nil {
		return fmt.Errorf("failed to save manga: %w", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      []error
		semaphore = make(chan struct{}, d.concurrency)
	)

	for _, chapter := range chapters {
		if chapter.External || chapter.Downloaded {
			d.sendProgress(DownloadProgress{
				MangaID:       manga.ID,
				ChapterID:     chapter.ID,
				ChapterNumber: chapter.Number,
				Status:        StatusSkipped,
			})
			continue
		}

		wg.Add(1)
		go func(chapter *data.Chapter) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				errs = append(errs, fmt.Errorf("chapter %s: %w", chapter.Number, ctx.Err()))
				mu.Unlock()
				return
			}
			defer func() { <-semaphore }()

			if err := d.DownloadChapter(ctx, chapter); err != nil {
				d.log.Error().Err(err).Str("chapter", chapter.ID).Msg("chapter download failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("chapter %s: %w", chapter.Number, err))
				mu.Unlock()
				d.sendProgress(DownloadProgress{
					MangaID:       manga.ID,
					ChapterID:     chapter.ID,
					ChapterNumber: chapter.Number,
					Status:        StatusError,
					Error:         err,
				})
			}
		}(chapter)
	}

	wg.Wait()

	if len(errs) > 0 {
		manga.Status = "partial"
	} else {
		manga.Status = "completed"
	}
	if err := d.repo.SaveManga(manga); err != nil {
		errs = append(errs, fmt.Errorf("failed to save manga: %w", err))
	}

	return errors.Join(errs...)
}

// DownloadChapter downloads every page of chapter and records where the
// processor stored it.
func (d *Downloader) DownloadChapter(ctx context.Context, chapter *data.Chapter) error {
	if chapter == nil {
		return fmt.Errorf("chapter cannot be nil")
	}
	if chapter.External {
		return fmt.Errorf("chapter %s is hosted externally", chapter.ID)
	}

	progress := DownloadProgress{
		MangaID:       chapter.MangaID,
		ChapterID:     chapter.ID,
		ChapterNumber: chapter.Number,
		Status:        StatusDownloading,
	}
	d.sendProgress(progress)

	urls, err := d.source.GetPages(ctx, chapter)
	if err != nil {
		return fmt.Errorf("failed to get pages: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no pages found for chapter")
	}
	progress.TotalPages = len(urls)

	for i, pageURL := range urls {
		progress.CurrentPage = i + 1
		d.sendProgress(progress)

		content, contentType, err := d.fetcher.Fetch(ctx, pageURL, nil)
		if err != nil {
			return fmt.Errorf("failed to download page %d: %w", i+1, err)
		}
		page := integrations.Page{Index: i, Content: content, ContentType: contentType}
		if err := d.processor.Process(chapter, page); err != nil {
			return fmt.Errorf("failed to store page %d: %w", i+1, err)
		}
	}

	progress.Status = StatusProcessing
	d.sendProgress(progress)

	path, err := d.processor.Done(chapter)
	if err != nil {
		return fmt.Errorf("failed to finalize chapter: %w", err)
	}

	if err := d.repo.UpdateChapterStatus(chapter.ID, true, path, len(urls)); err != nil {
		return fmt.Errorf("failed to update chapter status: %w", err)
	}
	chapter.Downloaded = true
	chapter.FilePath = path
	chapter.Pages = len(urls)

	d.log.Info().Str("chapter", chapter.ID).Str("path", path).Int("pages", len(urls)).Msg("chapter downloaded")

	progress.Status = StatusComplete
	d.sendProgress(progress)
	return nil
}

// sendProgress sends a progress update (non-blocking)
func (d *Downloader) sendProgress(progress DownloadProgress) {
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close closes the progress channel. It must not be called while a download
// is running.
func (d *Downloader) Close() {
	d.closeOnce.Do(func() {
		close(d.progressChan)
	})
}
