package storage

import (
	"context"
	"fmt"

	"github.com/bunchhieng/chapterlist/internal/model"
)

// Storage defines the persistence operations for chapters and chapter list options.
type Storage interface {
	// AddChapter appends a chapter to the end of its manga's source order.
	AddChapter(ctx context.Context, chapter *model.Chapter) (*model.Chapter, error)

	// GetChapter retrieves a chapter by ID.
	GetChapter(ctx context.Context, id string) (*model.Chapter, error)

	// ListChapters retrieves chapters in source order.
	ListChapters(ctx context.Context, opts ListOptions) ([]*model.Chapter, error)

	// SetChapterState updates one of the read, downloaded or bookmarked flags.
	SetChapterState(ctx context.Context, id string, field StateField, value bool) error

	// DeleteChapter removes a chapter by ID.
	DeleteChapter(ctx context.Context, id string) error

	// ExportChapters returns all chapters for export.
	ExportChapters(ctx context.Context) ([]*model.Chapter, error)

	// ImportChapters inserts or replaces chapters by ID.
	ImportChapters(ctx context.Context, chapters []*model.Chapter) error

	// LoadOptions returns the options stored under key, or model.ErrNotFound.
	LoadOptions(ctx context.Context, key string) (*model.ChapterListOptions, error)

	// SaveOptions stores options under key.
	SaveOptions(ctx context.Context, key string, opts model.ChapterListOptions) error

	// DeleteOptions removes the options stored under key.
	DeleteOptions(ctx context.Context, key string) error

	// Close closes the storage connection.
	Close() error
}

// ListOptions specifies which chapters List returns.
type ListOptions struct {
	// MangaID restricts the result to one manga. Empty lists every chapter.
	MangaID string
}

// StateField names a per-chapter flag.
type StateField int

const (
	StateRead StateField = iota
	StateDownloaded
	StateBookmarked
)

// ParseStateField maps "read", "downloaded" and "bookmarked" to a StateField.
func ParseStateField(s string) (StateField, error) {
	switch s {
	case "read":
		return StateRead, nil
	case "downloaded":
		return StateDownloaded, nil
	case "bookmarked":
		return StateBookmarked, nil
	}
	return 0, fmt.Errorf("unknown chapter field %q (want read, downloaded or bookmarked)", s)
}

func (f StateField) String() string {
	switch f {
	case StateRead:
		return "read"
	case StateDownloaded:
		return "downloaded"
	case StateBookmarked:
		return "bookmarked"
	}
	return fmt.Sprintf("StateField(%d)", int(f))
}

// column returns the column backing f. Only these fixed names are ever
// interpolated into SQL.
func (f StateField) column() (string, bool) {
	switch f {
	case StateRead, StateDownloaded, StateBookmarked:
		return f.String(), true
	}
	return "", false
}
