package integrations

import (
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/mangareader/pkg/data"
)

// CoverData is an in-memory cover image.
type CoverData struct {
	Content     []byte
	ContentType string
}

type EPubBuilder struct {
	outputDir string
	cover     *CoverData
}

func NewEPubBuilder(outputDir string) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir}
}

func (p *EPubBuilder) SetCover(cover CoverData) error {
	if len(cover.Content) == 0 {
		return fmt.Errorf("cover image is empty")
	}
	if cover.ContentType == "" {
		cover.ContentType = "image/jpeg"
	}
	p.cover = &cover
	return nil
}

// CreateEPub compiles the downloaded chapters of a manga into a single EPub file
func (p *EPubBuilder) CreateEPub(manga *data.Manga, chapters []*data.Chapter) (string, error) {
	if len(chapters) == 0 {
		return "", fmt.Errorf("no chapters to compile")
	}

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	sortedChapters := readingOrder(chapters)
	if len(sortedChapters) == 0 {
		return "", fmt.Errorf("no downloaded chapters to compile")
	}

	e, err := epub.NewEpub(manga.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create EPub: %w", err)
	}

	e.SetAuthor(manga.Source)
	if manga.Description != "" {
		e.SetDescription(manga.Description)
	}
	lang := sortedChapters[0].Language
	if lang == "" {
		lang = "en"
	}
	e.SetLang(lang)

	if p.cover != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s", p.cover.ContentType, base64.StdEncoding.EncodeToString(p.cover.Content))
		coverPath, err := e.AddImage(dataURL, "cover"+extensionFor(p.cover.ContentType))
		if err != nil {
			return "", fmt.Errorf("failed to add cover: %w", err)
		}
		if err := e.SetCover(coverPath, ""); err != nil {
			return "", fmt.Errorf("failed to set cover: %w", err)
		}
	}

	for _, chapter := range sortedChapters {
		if err := p.addChapterToEPub(e, chapter); err != nil {
			return "", fmt.Errorf("failed to add chapter %s: %w", chapter.Number, err)
		}
	}

	outputPath := filepath.Join(p.outputDir, sanitizeFilename(manga.Name)+".epub")
	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}

	return outputPath, nil
}

// readingOrder keeps the downloaded chapters, sorted by volume then number.
func readingOrder(chapters []*data.Chapter) []*data.Chapter {
	sorted := make([]*data.Chapter, 0, len(chapters))
	for _, chapter := range chapters {
		if chapter.Downloaded && chapter.FilePath != "" {
			sorted = append(sorted, chapter)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, _ := strconv.ParseFloat(sorted[i].Volume, 64)
		vj, _ := strconv.ParseFloat(sorted[j].Volume, 64)
		if vi != vj {
			return vi < vj
		}
		ni, _ := strconv.ParseFloat(sorted[i].Number, 64)
		nj, _ := strconv.ParseFloat(sorted[j].Number, 64)
		return ni < nj
	})
	return sorted
}

// addChapterToEPub adds a single chapter's images to the EPub
func (p *EPubBuilder) addChapterToEPub(e *epub.Epub, chapter *data.Chapter) error {
	imageFiles, err := ListPageFiles(chapter.FilePath)
	if err != nil {
		return err
	}

	chapterTitle := chapter.Label()

	var htmlContent strings.Builder
	htmlContent.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(chapterTitle)))

	for i, imgPath := range imageFiles {
		internalPath, err := e.AddImage(imgPath, fmt.Sprintf("%s-%s", chapter.ID, filepath.Base(imgPath)))
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w", filepath.Base(imgPath), err)
		}

		htmlContent.WriteString(fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internalPath, i+1, "\n",
		))
	}

	if _, err := e.AddSection(htmlContent.String(), chapterTitle, "", ""); err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}

	return nil
}

// ListPageFiles returns the page images of a downloaded chapter directory in
// reading order.
func ListPageFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chapter directory: %w", err)
	}

	var pages []string
	for _, file := range files {
		if !file.IsDir() && isImageFile(file.Name()) {
			pages = append(pages, filepath.Join(dir, file.Name()))
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no images found in chapter directory")
	}

	sort.Strings(pages)
	return pages, nil
}

// isImageFile checks if a file has an image extension
func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif" || ext == ".webp"
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// sanitizeFilename removes characters that are invalid in filenames
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
