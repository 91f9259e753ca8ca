package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS mangas (
	id          VARCHAR PRIMARY KEY,
	name        VARCHAR NOT NULL,
	description VARCHAR,
	cover_url   VARCHAR,
	source      VARCHAR,
	status      VARCHAR
);

CREATE TABLE IF NOT EXISTS chapters (
	id         VARCHAR PRIMARY KEY,
	manga_id   VARCHAR NOT NULL,
	title      VARCHAR,
	language   VARCHAR,
	volume     VARCHAR,
	number     VARCHAR,
	pages      INTEGER DEFAULT 0,
	external   BOOLEAN DEFAULT false,
	downloaded BOOLEAN DEFAULT false,
	file_path  VARCHAR
);

CREATE TABLE IF NOT EXISTS reading_progress (
	manga_id   VARCHAR PRIMARY KEY,
	chapter_id VARCHAR NOT NULL,
	page       INTEGER NOT NULL,
	page_count INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

type Repository struct {
	db *sql.DB
}

func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveManga(manga *Manga) error {
	_, err := r.db.Exec(`
		INSERT INTO mangas (id, name, description, cover_url, source, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			cover_url = excluded.cover_url,
			source = excluded.source,
			status = excluded.status`,
		manga.ID, manga.Name, manga.Description, manga.CoverURL, manga.Source, manga.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save manga %s: %w", manga.ID, err)
	}
	return nil
}

// GetManga returns nil without an error when the manga is not in the library.
func (r *Repository) GetManga(id string) (*Manga, error) {
	row := r.db.QueryRow(`
		SELECT id, name, COALESCE(description, ''), COALESCE(cover_url, ''), COALESCE(source, ''), COALESCE(status, '')
		FROM mangas WHERE id = ?`, id)

	var m Manga
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.CoverURL, &m.Source, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manga %s: %w", id, err)
	}
	return &m, nil
}

func (r *Repository) ListMangas() ([]*Manga, error) {
	rows, err := r.db.Query(`
		SELECT id, name, COALESCE(description, ''), COALESCE(cover_url, ''), COALESCE(source, ''), COALESCE(status, '')
		FROM mangas ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mangas: %w", err)
	}
	defer rows.Close()

	mangas := []*Manga{}
	for rows.Next() {
		var m Manga
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CoverURL, &m.Source, &m.Status); err != nil {
			return nil, err
		}
		mangas = append(mangas, &m)
	}
	return mangas, rows.Err()
}

func (r *Repository) SaveChapter(chapter *Chapter) error {
	_, err := r.db.Exec(`
		INSERT INTO chapters (id, manga_id, title, language, volume, number, pages, external, downloaded, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			manga_id = excluded.manga_id,
			title = excluded.title,
			language = excluded.language,
			volume = excluded.volume,
			number = excluded.number,
			pages = excluded.pages,
			external = excluded.external,
			downloaded = excluded.downloaded,
			file_path = excluded.file_path`,
		chapter.ID, chapter.MangaID, chapter.Title, chapter.Language, chapter.Volume, chapter.Number,
		chapter.Pages, chapter.External, chapter.Downloaded, chapter.FilePath,
	)
	if err != nil {
		return fmt.Errorf("failed to save chapter %s: %w", chapter.ID, err)
	}
	return nil
}

// GetChapters returns the chapters of a manga ordered by volume and number.
func (r *Repository) GetChapters(mangaID string) ([]*Chapter, error) {
	rows, err := r.db.Query(`
		SELECT id, manga_id, COALESCE(title, ''), COALESCE(language, ''), COALESCE(volume, ''), COALESCE(number, ''),
			COALESCE(pages, 0), COALESCE(external, false), COALESCE(downloaded, false), COALESCE(file_path, '')
		FROM chapters
		WHERE manga_id = ?
		ORDER BY TRY_CAST(volume AS DOUBLE) NULLS LAST, TRY_CAST(number AS DOUBLE) NULLS LAST, number`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters for %s: %w", mangaID, err)
	}
	defer rows.Close()

	chapters := []*Chapter{}
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.MangaID, &c.Title, &c.Language, &c.Volume, &c.Number,
			&c.Pages, &c.External, &c.Downloaded, &c.FilePath); err != nil {
			return nil, err
		}
		chapters = append(chapters, &c)
	}
	return chapters, rows.Err()
}

func (r *Repository) UpdateChapterStatus(chapterID string, downloaded bool, filePath string, pages int) error {
	res, err := r.db.Exec(`UPDATE chapters SET downloaded = ?, file_path = ?, pages = ? WHERE id = ?`, downloaded, filePath, pages, chapterID)
	if err != nil {
		return fmt.Errorf("failed to update chapter %s: %w", chapterID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	return nil
}

// DeleteManga removes a manga together with its chapters and reading progress.
func (r *Repository) DeleteManga(mangaID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM chapters WHERE manga_id = ?`,
		`DELETE FROM reading_progress WHERE manga_id = ?`,
		`DELETE FROM mangas WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, mangaID); err != nil {
			return fmt.Errorf("failed to delete manga %s: %w", mangaID, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) GetMangaWithChapterCount(mangaID string) (*Manga, int, int, error) {
	manga, err := r.GetManga(mangaID)
	if err != nil || manga == nil {
		return manga, 0, 0, err
	}

	var total, downloaded int
	err = r.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE downloaded)
		FROM chapters WHERE manga_id = ?`, mangaID).Scan(&total, &downloaded)
	if err != nil {
		return manga, 0, 0, fmt.Errorf("failed to count chapters for %s: %w", mangaID, err)
	}
	return manga, total, downloaded, nil
}

func (r *Repository) SaveProgress(progress *ReadingProgress) error {
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO reading_progress (manga_id, chapter_id, page, page_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (manga_id) DO UPDATE SET
			chapter_id = excluded.chapter_id,
			page = excluded.page,
			page_count = excluded.page_count,
			updated_at = excluded.updated_at`,
		progress.MangaID, progress.ChapterID, progress.Page, progress.PageCount, progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", progress.MangaID, err)
	}
	return nil
}

// GetProgress returns nil without an error when the manga was never opened.
func (r *Repository) GetProgress(mangaID string) (*ReadingProgress, error) {
	var p ReadingProgress
	err := r.db.QueryRow(`
		SELECT manga_id, chapter_id, page, page_count, updated_at
		FROM reading_progress WHERE manga_id = ?`, mangaID).
		Scan(&p.MangaID, &p.ChapterID, &p.Page, &p.PageCount, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for %s: %w", mangaID, err)
	}
	return &p, nil
}
