package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/kerbaras/mangareader/pkg/utils"
)

const (
	DefaultMangaDexURL = "https://api.mangadex.org"
	DefaultCoverURL    = "https://uploads.mangadex.org"

	feedPageSize = 500
)

type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string   `json:"title"`
		AltTitles   []map[string]string `json:"altTitles"`
		Description map[string]string   `json:"description"`
		Status      string              `json:"status"`
	} `json:"attributes"`
	Relationships []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			FileName string `json:"fileName"`
		} `json:"attributes"`
	} `json:"relationships"`
}

// ToManga converts the API payload, building the cover URL from the
// cover_art relationship when it was included.
func (m *Manga) ToManga(coverBase string) *data.Manga {
	manga := &data.Manga{
		ID:          m.ID,
		Name:        pickLocalized(m.Attributes.Title, "en"),
		Description: pickLocalized(m.Attributes.Description, "en"),
		Source:      "mangadex",
	}
	if manga.Name == "" {
		for _, alt := range m.Attributes.AltTitles {
			if manga.Name = pickLocalized(alt, "en"); manga.Name != "" {
				break
			}
		}
	}
	for _, rel := range m.Relationships {
		if rel.Type == "cover_art" && rel.Attributes.FileName != "" {
			manga.CoverURL = fmt.Sprintf("%s/covers/%s/%s.256.jpg", coverBase, m.ID, rel.Attributes.FileName)
			break
		}
	}
	return manga
}

type Chapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       string  `json:"title"`
		Language    string  `json:"translatedLanguage"`
		Volume      string  `json:"volume"`
		Number      string  `json:"chapter"`
		Pages       int     `json:"pages"`
		ExternalURL *string `json:"externalUrl"`
	} `json:"attributes"`
}

func (c *Chapter) ToChapter(mangaID string) *data.Chapter {
	return &data.Chapter{
		ID:       c.ID,
		MangaID:  mangaID,
		Title:    c.Attributes.Title,
		Language: c.Attributes.Language,
		Volume:   c.Attributes.Volume,
		Number:   c.Attributes.Number,
		Pages:    c.Attributes.Pages,
		External: c.Attributes.ExternalURL != nil && *c.Attributes.ExternalURL != "",
	}
}

type MangaDex struct {
	api       *utils.API
	coverBase string
	dataSaver bool
}

type MangaDexOption func(*MangaDex)

func WithBaseURL(baseURL string) MangaDexOption {
	return func(m *MangaDex) { m.api = utils.NewAPI(baseURL, nil) }
}

func WithHTTPClient(baseURL string, client *http.Client) MangaDexOption {
	return func(m *MangaDex) { m.api = utils.NewAPI(baseURL, client) }
}

func WithCoverURL(coverBase string) MangaDexOption {
	return func(m *MangaDex) { m.coverBase = coverBase }
}

// WithDataSaver serves compressed page images.
func WithDataSaver(enabled bool) MangaDexOption {
	return func(m *MangaDex) { m.dataSaver = enabled }
}

func NewMangaDex(opts ...MangaDexOption) *MangaDex {
	m := &MangaDex{
		api:       utils.NewAPI(DefaultMangaDexURL, nil),
		coverBase: DefaultCoverURL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MangaDex) Name() string {
	return "mangadex"
}

func (m *MangaDex) get(ctx context.Context, path string, params url.Values, v any) error {
	err := m.api.Get(ctx, path, params, v)
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}

func (m *MangaDex) Search(ctx context.Context, query string) ([]*data.Manga, error) {
	params := url.Values{
		"title":      {query},
		"limit":      {"20"},
		"includes[]": {"cover_art"},
	}
	var mangas struct {
		Data []Manga `json:"data"`
	}
	if err := m.get(ctx, "/manga", params, &mangas); err != nil {
		return nil, err
	}
	out := make([]*data.Manga, len(mangas.Data))
	for i := range mangas.Data {
		out[i] = mangas.Data[i].ToManga(m.coverBase)
	}
	return out, nil
}

func (m *MangaDex) GetManga(ctx context.Context, id string) (*data.Manga, error) {
	var manga struct {
		Data Manga `json:"data"`
	}
	params := url.Values{"includes[]": {"cover_art"}}
	if err := m.get(ctx, fmt.Sprintf("/manga/%s", id), params, &manga); err != nil {
		return nil, err
	}
	return manga.Data.ToManga(m.coverBase), nil
}

// GetChapters walks the whole feed of a manga. An empty language returns
// every translation.
func (m *MangaDex) GetChapters(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error) {
	var out []*data.Chapter
	for offset := 0; ; {
		params := url.Values{
			"limit":          {strconv.Itoa(feedPageSize)},
			"offset":         {strconv.Itoa(offset)},
			"order[volume]":  {"asc"},
			"order[chapter]": {"asc"},
		}
		if language != "" {
			params.Set("translatedLanguage[]", language)
		}

		var feed struct {
			Data  []Chapter `json:"data"`
			Total int       `json:"total"`
		}
		if err := m.get(ctx, fmt.Sprintf("/manga/%s/feed", manga.ID), params, &feed); err != nil {
			return nil, err
		}
		for i := range feed.Data {
			out = append(out, feed.Data[i].ToChapter(manga.ID))
		}

		offset += len(feed.Data)
		if len(feed.Data) == 0 || offset >= feed.Total {
			break
		}
	}
	return out, nil
}

func (m *MangaDex) GetPages(ctx context.Context, chapter *data.Chapter) ([]string, error) {
	if chapter.External {
		return nil, fmt.Errorf("chapter %s is hosted externally", chapter.ID)
	}

	var server struct {
		BaseURL string `json:"baseUrl"`
		Chapter struct {
			Hash      string   `json:"hash"`
			Data      []string `json:"data"`
			DataSaver []string `json:"dataSaver"`
		} `json:"chapter"`
	}
	if err := m.get(ctx, fmt.Sprintf("/at-home/server/%s", chapter.ID), nil, &server); err != nil {
		return nil, err
	}

	quality, files := "data", server.Chapter.Data
	if m.dataSaver && len(server.Chapter.DataSaver) > 0 {
		quality, files = "data-saver", server.Chapter.DataSaver
	}
	pages := make([]string, len(files))
	for i, file := range files {
		pages[i] = fmt.Sprintf("%s/%s/%s/%s", server.BaseURL, quality, server.Chapter.Hash, file)
	}
	return pages, nil
}

// pickLocalized prefers lang, then any translation in a stable order.
func pickLocalized(values map[string]string, lang string) string {
	if v := values[lang]; v != "" {
		return v
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if values[k] != "" {
			return values[k]
		}
	}
	return ""
}
