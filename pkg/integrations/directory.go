package integrations

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/mangareader/pkg/data"
)

// DirectoryProcessor stores each chapter as numbered image files under
// <root>/<manga>/<chapter>/.
type DirectoryProcessor struct {
	root string
}

func NewDirectoryProcessor(root string) *DirectoryProcessor {
	return &DirectoryProcessor{root: root}
}

func (p *DirectoryProcessor) ChapterDir(chapter *data.Chapter) string {
	name := sanitizeFilename(chapter.Label())
	if name == "" {
		name = chapter.ID
	}
	return filepath.Join(p.root, sanitizeFilename(chapter.MangaID), name)
}

func (p *DirectoryProcessor) Process(chapter *data.Chapter, page Page) error {
	dir := p.ChapterDir(chapter)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create chapter directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%04d%s", page.Index+1, extensionFor(page.ContentType)))
	if err := os.WriteFile(path, page.Content, 0644); err != nil {
		return fmt.Errorf("failed to write page %d: %w", page.Index+1, err)
	}
	return nil
}

func (p *DirectoryProcessor) Done(chapter *data.Chapter) (string, error) {
	dir := p.ChapterDir(chapter)
	if _, err := ListPageFiles(dir); err != nil {
		return "", err
	}
	return dir, nil
}
