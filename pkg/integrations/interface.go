package integrations

import "github.com/kerbaras/mangareader/pkg/data"

// Page is a downloaded page image.
type Page struct {
	Index       int
	Content     []byte
	ContentType string
}

// Processor receives the pages of a chapter as they are downloaded.
type Processor interface {
	Process(chapter *data.Chapter, page Page) error
	// Done finishes the chapter and returns where it was stored.
	Done(chapter *data.Chapter) (string, error)
}
