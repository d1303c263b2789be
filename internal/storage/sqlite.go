package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/bunchhieng/chapterlist/internal/model"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sqlx.DB
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	var dsn string
	if dbPath == ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(DELETE)&_pragma=synchronous(NORMAL)"
	} else {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

const chapterColumns = "id, manga_id, name, chapter_number, source_order, read, downloaded, bookmarked, fetched_at, upload_date"

type chapterRow struct {
	ID            string  `db:"id"`
	MangaID       string  `db:"manga_id"`
	Name          string  `db:"name"`
	ChapterNumber float64 `db:"chapter_number"`
	SourceOrder   int     `db:"source_order"`
	Read          bool    `db:"read"`
	Downloaded    bool    `db:"downloaded"`
	Bookmarked    bool    `db:"bookmarked"`
	FetchedAt     int64   `db:"fetched_at"`
	UploadDate    int64   `db:"upload_date"`
}

func newChapterRow(c *model.Chapter) chapterRow {
	return chapterRow{
		ID:            c.ID,
		MangaID:       c.MangaID,
		Name:          c.Name,
		ChapterNumber: c.ChapterNumber,
		SourceOrder:   c.SourceOrder,
		Read:          c.Read,
		Downloaded:    c.Downloaded,
		Bookmarked:    c.Bookmarked,
		FetchedAt:     c.FetchedAt,
		UploadDate:    c.UploadDate,
	}
}

func (r *chapterRow) toChapter() *model.Chapter {
	return &model.Chapter{
		ID:            r.ID,
		MangaID:       r.MangaID,
		Name:          r.Name,
		ChapterNumber: r.ChapterNumber,
		SourceOrder:   r.SourceOrder,
		Read:          r.Read,
		Downloaded:    r.Downloaded,
		Bookmarked:    r.Bookmarked,
		FetchedAt:     r.FetchedAt,
		UploadDate:    r.UploadDate,
	}
}

// AddChapter appends a chapter to its manga. A missing ID is generated and a
// zero FetchedAt is set to the current time.
func (s *SQLiteStorage) AddChapter(ctx context.Context, chapter *model.Chapter) (*model.Chapter, error) {
	if err := chapter.Validate(); err != nil {
		return nil, err
	}

	row := newChapterRow(chapter)
	if row.ID == "" {
		row.ID = model.GenerateShortID()
	} else if !model.ValidateShortID(row.ID) {
		return nil, fmt.Errorf("invalid ID format")
	}
	if row.FetchedAt == 0 {
		row.FetchedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.GetContext(ctx, &row.SourceOrder,
		"SELECT COALESCE(MAX(source_order) + 1, 0) FROM chapters WHERE manga_id = ?", row.MangaID); err != nil {
		return nil, fmt.Errorf("next source order: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO chapters (`+chapterColumns+`)
		VALUES (:id, :manga_id, :name, :chapter_number, :source_order, :read, :downloaded, :bookmarked, :fetched_at, :upload_date)`,
		row)
	if err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit chapter: %w", err)
	}

	return row.toChapter(), nil
}

// GetChapter retrieves a chapter by ID.
func (s *SQLiteStorage) GetChapter(ctx context.Context, id string) (*model.Chapter, error) {
	if !model.ValidateShortID(id) {
		return nil, fmt.Errorf("invalid ID format")
	}
	var row chapterRow
	err := s.db.GetContext(ctx, &row, "SELECT "+chapterColumns+" FROM chapters WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return row.toChapter(), nil
}

// ListChapters retrieves chapters in source order.
func (s *SQLiteStorage) ListChapters(ctx context.Context, opts ListOptions) ([]*model.Chapter, error) {
	query := "SELECT " + chapterColumns + " FROM chapters"
	args := []interface{}{}

	if opts.MangaID != "" {
		query += " WHERE manga_id = ?"
		args = append(args, opts.MangaID)
	}
	query += " ORDER BY manga_id, source_order, rowid"

	var rows []chapterRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}

	chapters := make([]*model.Chapter, len(rows))
	for i := range rows {
		chapters[i] = rows[i].toChapter()
	}
	return chapters, nil
}

// SetChapterState updates a single chapter flag.
func (s *SQLiteStorage) SetChapterState(ctx context.Context, id string, field StateField, value bool) error {
	if !model.ValidateShortID(id) {
		return fmt.Errorf("invalid ID format")
	}
	column, ok := field.column()
	if !ok {
		return fmt.Errorf("set chapter state: unknown field %v", field)
	}
	result, err := s.db.ExecContext(ctx, "UPDATE chapters SET "+column+" = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return checkRowsAffected(result, "set "+column)
}

// DeleteChapter removes a chapter by ID.
func (s *SQLiteStorage) DeleteChapter(ctx context.Context, id string) error {
	if !model.ValidateShortID(id) {
		return fmt.Errorf("invalid ID format")
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM chapters WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return checkRowsAffected(result, "delete chapter")
}

func checkRowsAffected(result sql.Result, action string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", action, err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ExportChapters returns all chapters for export.
func (s *SQLiteStorage) ExportChapters(ctx context.Context) ([]*model.Chapter, error) {
	return s.ListChapters(ctx, ListOptions{})
}

// ImportChapters inserts chapters, replacing any stored chapter with the same
// ID. Chapters without an ID get a new one. Imported chapters keep their
// SourceOrder.
func (s *SQLiteStorage) ImportChapters(ctx context.Context, chapters []*model.Chapter) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, chapter := range chapters {
		if err := chapter.Validate(); err != nil {
			return fmt.Errorf("import chapter %s: %w", chapter.ID, err)
		}
		row := newChapterRow(chapter)
		if row.ID == "" {
			row.ID = model.GenerateShortID()
		} else if !model.ValidateShortID(row.ID) {
			return fmt.Errorf("import chapter %s: invalid ID format", row.ID)
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO chapters (`+chapterColumns+`)
			VALUES (:id, :manga_id, :name, :chapter_number, :source_order, :read, :downloaded, :bookmarked, :fetched_at, :upload_date)
			ON CONFLICT(id) DO UPDATE SET
				manga_id = excluded.manga_id,
				name = excluded.name,
				chapter_number = excluded.chapter_number,
				source_order = excluded.source_order,
				read = excluded.read,
				downloaded = excluded.downloaded,
				bookmarked = excluded.bookmarked,
				fetched_at = excluded.fetched_at,
				upload_date = excluded.upload_date`,
			row)
		if err != nil {
			return fmt.Errorf("import chapter %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

type optionsRow struct {
	Key               string         `db:"options_key"`
	Active            bool           `db:"active"`
	Unread            model.Tristate `db:"unread"`
	Downloaded        model.Tristate `db:"downloaded"`
	Bookmarked        model.Tristate `db:"bookmarked"`
	Reverse           bool           `db:"reverse"`
	SortBy            string         `db:"sort_by"`
	ShowChapterNumber bool           `db:"show_chapter_number"`
}

func (r *optionsRow) toOptions() *model.ChapterListOptions {
	return &model.ChapterListOptions{
		Active:            r.Active,
		Unread:            r.Unread,
		Downloaded:        r.Downloaded,
		Bookmarked:        r.Bookmarked,
		Reverse:           r.Reverse,
		SortBy:            model.SortMode(r.SortBy),
		ShowChapterNumber: r.ShowChapterNumber,
	}
}

// LoadOptions returns the chapter list options stored under key.
func (s *SQLiteStorage) LoadOptions(ctx context.Context, key string) (*model.ChapterListOptions, error) {
	var row optionsRow
	err := s.db.GetContext(ctx, &row, `
		SELECT options_key, active, unread, downloaded, bookmarked, reverse, sort_by, show_chapter_number
		FROM chapter_options WHERE options_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	return row.toOptions(), nil
}

// SaveOptions stores opts under key.
func (s *SQLiteStorage) SaveOptions(ctx context.Context, key string, opts model.ChapterListOptions) error {
	row := optionsRow{
		Key:               key,
		Active:            opts.Active,
		Unread:            opts.Unread,
		Downloaded:        opts.Downloaded,
		Bookmarked:        opts.Bookmarked,
		Reverse:           opts.Reverse,
		SortBy:            string(opts.SortBy),
		ShowChapterNumber: opts.ShowChapterNumber,
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO chapter_options (options_key, active, unread, downloaded, bookmarked, reverse, sort_by, show_chapter_number, updated_at)
		VALUES (:options_key, :active, :unread, :downloaded, :bookmarked, :reverse, :sort_by, :show_chapter_number, datetime('now'))
		ON CONFLICT(options_key) DO UPDATE SET
			active = excluded.active,
			unread = excluded.unread,
			downloaded = excluded.downloaded,
			bookmarked = excluded.bookmarked,
			reverse = excluded.reverse,
			sort_by = excluded.sort_by,
			show_chapter_number = excluded.show_chapter_number,
			updated_at = excluded.updated_at`,
		row)
	if err != nil {
		return fmt.Errorf("save options: %w", err)
	}
	return nil
}

// DeleteOptions removes the options stored under key.
func (s *SQLiteStorage) DeleteOptions(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM chapter_options WHERE options_key = ?", key)
	if err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	return checkRowsAffected(result, "delete options")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
