package services

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/kerbaras/mangareader/pkg/integrations"
)

// RemotePageLoader loads chapter pages from the source's image servers.
type RemotePageLoader struct {
	fetcher   *Fetcher
	urls      []string
	processor *integrations.PageProcessor
}

func NewRemotePageLoader(fetcher *Fetcher, urls []string, processor *integrations.PageProcessor) *RemotePageLoader {
	return &RemotePageLoader{fetcher: fetcher, urls: urls, processor: processor}
}

func (l *RemotePageLoader) PageCount() int {
	return len(l.urls)
}

func (l *RemotePageLoader) LoadPage(ctx context.Context, index int, progress func(float64)) (image.Image, error) {
	if index < 0 || index >= len(l.urls) {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	content, _, err := l.fetcher.Fetch(ctx, l.urls[index], progress)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", index+1, err)
	}
	return decodeAndProcess(content, l.processor)
}

// LocalPageLoader loads the pages of a downloaded chapter.
type LocalPageLoader struct {
	files     []string
	processor *integrations.PageProcessor
}

func NewLocalPageLoader(dir string, processor *integrations.PageProcessor) (*LocalPageLoader, error) {
	files, err := integrations.ListPageFiles(dir)
	if err != nil {
		return nil, err
	}
	return &LocalPageLoader{files: files, processor: processor}, nil
}

func (l *LocalPageLoader) PageCount() int {
	return len(l.files)
}

func (l *LocalPageLoader) LoadPage(ctx context.Context, index int, progress func(float64)) (image.Image, error) {
	if index < 0 || index >= len(l.files) {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(l.files[index])
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", index+1, err)
	}
	progress(1)
	return decodeAndProcess(content, l.processor)
}

func decodeAndProcess(content []byte, processor *integrations.PageProcessor) (image.Image, error) {
	img, err := integrations.DecodePage(content)
	if err != nil {
		return nil, err
	}
	if processor != nil {
		img = processor.Apply(img)
	}
	return img, nil
}
