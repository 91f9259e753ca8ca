package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedManga(t *testing.T, repo *Repository, id, name string, chapters ...*Chapter) {
	t.Helper()
	require.NoError(t, repo.SaveManga(&Manga{ID: id, Name: name, Source: "mangadex"}))
	for _, chapter := range chapters {
		chapter.MangaID = id
		require.NoError(t, repo.SaveChapter(chapter))
	}
}

func TestInitDuckDBCreatesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "library.db")

	db, err := InitDuckDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('mangas', 'chapters', 'reading_progress')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 3, tables)
}

func TestMangaRoundTripAndUpsert(t *testing.T) {
	repo := newTestRepository(t)

	manga := &Manga{
		ID:          "m-1",
		Name:        "Test Manga",
		Description: "A test manga",
		CoverURL:    "https://uploads.mangadex.org/covers/m-1/c.jpg.256.jpg",
		Source:      "mangadex",
	}
	require.NoError(t, repo.SaveManga(manga))

	manga.Status = "completed"
	manga.Name = "Renamed"
	require.NoError(t, repo.SaveManga(manga))

	got, err := repo.GetManga("m-1")
	require.NoError(t, err)
	assert.Equal(t, manga, got)

	mangas, err := repo.ListMangas()
	require.NoError(t, err)
	assert.Len(t, mangas, 1, "upsert must not duplicate")
}

func TestGetMangaMissing(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.GetManga("nope")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, total, downloaded, err := repo.GetMangaWithChapterCount("nope")
	assert.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, downloaded)
}

func TestListMangasSortedByName(t *testing.T) {
	repo := newTestRepository(t)
	seedManga(t, repo, "m-1", "one piece")
	seedManga(t, repo, "m-2", "Berserk")
	seedManga(t, repo, "m-3", "Chainsaw Man")

	mangas, err := repo.ListMangas()
	require.NoError(t, err)

	var names []string
	for _, m := range mangas {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Berserk", "Chainsaw Man", "one piece"}, names)
}

func TestChaptersOrderAndFields(t *testing.T) {
	repo := newTestRepository(t)
	seedManga(t, repo, "m-1", "Test",
		&Chapter{ID: "c-10", Volume: "1", Number: "10", Pages: 18, Language: "en"},
		&Chapter{ID: "c-2", Volume: "1", Number: "2", External: true},
		&Chapter{ID: "c-1.5", Volume: "1", Number: "1.5", Title: "Extra"},
		&Chapter{ID: "c-v2", Volume: "2", Number: "11"},
		&Chapter{ID: "c-1", Volume: "1", Number: "1"},
	)
	seedManga(t, repo, "m-2", "Other", &Chapter{ID: "x-1", Number: "1"})

	chapters, err := repo.GetChapters("m-1")
	require.NoError(t, err)

	var ids []string
	for _, c := range chapters {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c-1", "c-1.5", "c-2", "c-10", "c-v2"}, ids)

	assert.True(t, chapters[2].External)
	assert.Equal(t, "Extra", chapters[1].Title)
	assert.Equal(t, 18, chapters[3].Pages)
	assert.Equal(t, "en", chapters[3].Language)
	assert.Equal(t, "m-1", chapters[0].MangaID)
}

func TestUpdateChapterStatus(t *testing.T) {
	repo := newTestRepository(t)
	seedManga(t, repo, "m-1", "Test",
		&Chapter{ID: "c-1", Number: "1"},
		&Chapter{ID: "c-2", Number: "2"},
		&Chapter{ID: "c-3", Number: "3"},
	)

	require.NoError(t, repo.UpdateChapterStatus("c-1", true, "/pages/c-1", 14))
	require.NoError(t, repo.UpdateChapterStatus("c-2", true, "/pages/c-2", 20))

	chapters, err := repo.GetChapters("m-1")
	require.NoError(t, err)
	assert.True(t, chapters[0].Downloaded)
	assert.Equal(t, "/pages/c-1", chapters[0].FilePath)
	assert.Equal(t, 14, chapters[0].Pages)
	assert.False(t, chapters[2].Downloaded)

	_, total, downloaded, err := repo.GetMangaWithChapterCount("m-1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, downloaded)

	assert.Error(t, repo.UpdateChapterStatus("missing", true, "/x", 1))
}

func TestProgressUpsert(t *testing.T) {
	repo := newTestRepository(t)

	progress, err := repo.GetProgress("m-1")
	require.NoError(t, err)
	assert.Nil(t, progress, "unread manga has no progress")

	require.NoError(t, repo.SaveProgress(&ReadingProgress{MangaID: "m-1", ChapterID: "c-1", Page: 4, PageCount: 20}))
	require.NoError(t, repo.SaveProgress(&ReadingProgress{MangaID: "m-1", ChapterID: "c-2", Page: 7, PageCount: 22}))

	progress, err = repo.GetProgress("m-1")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, "c-2", progress.ChapterID)
	assert.Equal(t, 7, progress.Page)
	assert.Equal(t, 22, progress.PageCount)
	assert.False(t, progress.UpdatedAt.IsZero())
}

func TestDeleteMangaCascades(t *testing.T) {
	repo := newTestRepository(t)
	seedManga(t, repo, "m-1", "Gone", &Chapter{ID: "c-1", Number: "1"}, &Chapter{ID: "c-2", Number: "2"})
	seedManga(t, repo, "m-2", "Kept", &Chapter{ID: "k-1", Number: "1"})
	require.NoError(t, repo.SaveProgress(&ReadingProgress{MangaID: "m-1", ChapterID: "c-1", Page: 1, PageCount: 3}))

	require.NoError(t, repo.DeleteManga("m-1"))

	manga, err := repo.GetManga("m-1")
	require.NoError(t, err)
	assert.Nil(t, manga)

	chapters, err := repo.GetChapters("m-1")
	require.NoError(t, err)
	assert.Empty(t, chapters)

	progress, err := repo.GetProgress("m-1")
	require.NoError(t, err)
	assert.Nil(t, progress)

	kept, err := repo.GetChapters("m-2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestChapterLabel(t *testing.T) {
	tests := []struct {
		chapter Chapter
		want    string
	}{
		{Chapter{Number: "3"}, "Ch. 3"},
		{Chapter{Volume: "1", Number: "3"}, "Vol. 1, Ch. 3"},
		{Chapter{Volume: "0", Number: "3", Title: "Start"}, "Ch. 3: Start"},
		{Chapter{Volume: "2", Number: "10", Title: "Rain"}, "Vol. 2, Ch. 10: Rain"},
		{Chapter{Title: "Special"}, "Oneshot: Special"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.chapter.Label())
	}
}
