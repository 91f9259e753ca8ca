package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kerbaras/mangareader/pkg/config"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/logger"
)

// Mock implementations for testing

type mockSource struct {
	searchFunc      func(ctx context.Context, query string) ([]*data.Manga, error)
	getMangaFunc    func(ctx context.Context, id string) (*data.Manga, error)
	getChaptersFunc func(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error)
	getPagesFunc    func(ctx context.Context, chapter *data.Chapter) ([]string, error)
}

func (m *mockSource) Name() string {
	return "mock"
}

func (m *mockSource) Search(ctx context.Context, query string) ([]*data.Manga, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return nil, nil
}

func (m *mockSource) GetManga(ctx context.Context, id string) (*data.Manga, error) {
	if m.getMangaFunc != nil {
		return m.getMangaFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSource) GetChapters(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error) {
	if m.getChaptersFunc != nil {
		return m.getChaptersFunc(ctx, manga, language)
	}
	return nil, nil
}

func (m *mockSource) GetPages(ctx context.Context, chapter *data.Chapter) ([]string, error) {
	if m.getPagesFunc != nil {
		return m.getPagesFunc(ctx, chapter)
	}
	return nil, nil
}

// memoryRepository is an in-memory Repository.
type memoryRepository struct {
	mu       sync.Mutex
	mangas   map[string]*data.Manga
	chapters map[string]*data.Chapter
	progress map[string]*data.ReadingProgress

	saveMangaErr error
	updateErr    error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		mangas:   make(map[string]*data.Manga),
		chapters: make(map[string]*data.Chapter),
		progress: make(map[string]*data.ReadingProgress),
	}
}

func (r *memoryRepository) SaveManga(manga *data.Manga) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveMangaErr != nil {
		return r.saveMangaErr
	}
	copied := *manga
	r.mangas[manga.ID] = &copied
	return nil
}

func (r *memoryRepository) GetManga(id string) (*data.Manga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	manga, ok := r.mangas[id]
	if !ok {
		return nil, nil
	}
	copied := *manga
	return &copied, nil
}

func (r *memoryRepository) ListMangas() ([]*data.Manga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mangas := make([]*data.Manga, 0, len(r.mangas))
	for _, manga := range r.mangas {
		copied := *manga
		mangas = append(mangas, &copied)
	}
	sort.Slice(mangas, func(i, j int) bool { return mangas[i].Name < mangas[j].Name })
	return mangas, nil
}

func (r *memoryRepository) DeleteManga(mangaID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mangas, mangaID)
	delete(r.progress, mangaID)
	for id, chapter := range r.chapters {
		if chapter.MangaID == mangaID {
			delete(r.chapters, id)
		}
	}
	return nil
}

func (r *memoryRepository) GetMangaWithChapterCount(mangaID string) (*data.Manga, int, int, error) {
	manga, _ := r.GetManga(mangaID)
	chapters, _ := r.GetChapters(mangaID)
	downloaded := 0
	for _, chapter := range chapters {
		if chapter.Downloaded {
			downloaded++
		}
	}
	return manga, len(chapters), downloaded, nil
}

func (r *memoryRepository) SaveChapter(chapter *data.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *chapter
	r.chapters[chapter.ID] = &copied
	return nil
}

func (r *memoryRepository) GetChapters(mangaID string) ([]*data.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var chapters []*data.Chapter
	for _, chapter := range r.chapters {
		if chapter.MangaID == mangaID {
			copied := *chapter
			chapters = append(chapters, &copied)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].ID < chapters[j].ID })
	return chapters, nil
}

func (r *memoryRepository) UpdateChapterStatus(chapterID string, downloaded bool, filePath string, pages int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	chapter, ok := r.chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	chapter.Downloaded = downloaded
	chapter.FilePath = filePath
	chapter.Pages = pages
	return nil
}

func (r *memoryRepository) SaveProgress(progress *data.ReadingProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *progress
	r.progress[progress.MangaID] = &copied
	return nil
}

func (r *memoryRepository) GetProgress(mangaID string) (*data.ReadingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.progress[mangaID]
	if !ok {
		return nil, nil
	}
	copied := *progress
	return &copied, nil
}

// Test helpers

func createTestPNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// newImageServer serves the same PNG for every path and counts requests.
func newImageServer(t *testing.T, pngData []byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var count atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(pngData)
	}))
	t.Cleanup(server.Close)
	return server, &count
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Library: config.LibraryConfig{Path: dir + "/mangas.db"},
		Source: config.SourceConfig{
			BaseURL:  "http://localhost",
			CoverURL: "http://localhost",
			Language: "en",
		},
		Downloads: config.DownloadConfig{Dir: dir + "/downloads", Concurrency: 2},
		Reader:    config.ReaderConfig{Prefetch: 1, CacheSize: 4, Contrast: 1.0},
		Logger:    logger.Config{Level: "debug", Format: "console", Output: "stderr"},
	}
}
