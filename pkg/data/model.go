package data

import (
	"fmt"
	"time"
)

type Manga struct {
	ID          string
	Name        string
	Description string
	CoverURL    string
	Source      string
	Status      string // "downloading", "completed", "partial", "error"
}

type Chapter struct {
	ID         string
	MangaID    string
	Title      string
	Language   string
	Volume     string
	Number     string
	Pages      int
	External   bool   // hosted off-site, cannot be read or downloaded here
	Downloaded bool
	FilePath   string // Path to downloaded images directory
}

// Label is the display name of a chapter, e.g. "Vol. 1, Ch. 2: Title".
func (c *Chapter) Label() string {
	label := fmt.Sprintf("Ch. %s", c.Number)
	if c.Number == "" {
		label = "Oneshot"
	}
	if c.Volume != "" && c.Volume != "0" {
		label = fmt.Sprintf("Vol. %s, %s", c.Volume, label)
	}
	if c.Title != "" {
		label = fmt.Sprintf("%s: %s", label, c.Title)
	}
	return label
}

// ReadingProgress is the last page a manga was left at.
type ReadingProgress struct {
	MangaID   string
	ChapterID string
	Page      int
	PageCount int
	UpdatedAt time.Time
}
