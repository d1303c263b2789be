package model

import (
	"fmt"
	"strings"
)

// SortMode selects how a chapter list is ordered.
type SortMode string

const (
	// SortSource keeps the order the chapter source delivered.
	SortSource SortMode = "source"
	// SortFetchedAt orders chapters by fetch time, oldest first.
	SortFetchedAt SortMode = "fetchedAt"
)

// Valid reports whether m is one of the known sort modes.
func (m SortMode) Valid() bool {
	return m == SortSource || m == SortFetchedAt
}

// ParseSortMode accepts the wire names, case-insensitively.
func ParseSortMode(s string) (SortMode, error) {
	for _, opt := range SortOptions() {
		if strings.EqualFold(s, string(opt.Mode)) {
			return opt.Mode, nil
		}
	}
	return "", fmt.Errorf("invalid sort mode %q", s)
}

// SortOption pairs a sort mode with the label shown to users.
type SortOption struct {
	Mode  SortMode
	Label string
}

// SortOptions returns the sort catalog in presentation order. The first entry is the default.
func SortOptions() []SortOption {
	return []SortOption{
		{Mode: SortSource, Label: "By Source"},
		{Mode: SortFetchedAt, Label: "By Fetch date"},
	}
}

// ChapterListOptions is the persisted filter and sort configuration of one chapter collection.
type ChapterListOptions struct {
	// Active gates filtering as a whole. It is recomputed only when a filter
	// changes, from the values held before that change.
	Active            bool     `json:"active"`
	Unread            Tristate `json:"unread"`
	Downloaded        Tristate `json:"downloaded"`
	Bookmarked        Tristate `json:"bookmarked"`
	Reverse           bool     `json:"reverse"`
	SortBy            SortMode `json:"sortBy"`
	ShowChapterNumber bool     `json:"showChapterNumber"`
}

// DefaultChapterListOptions returns the configuration used for a collection seen for the first time.
func DefaultChapterListOptions() ChapterListOptions {
	return ChapterListOptions{
		Active:            false,
		Unread:            TriUnset,
		Downloaded:        TriUnset,
		Bookmarked:        TriUnset,
		Reverse:           false,
		SortBy:            SortSource,
		ShowChapterNumber: false,
	}
}

// Validate checks the sort mode and the three filter tri-states.
func (o ChapterListOptions) Validate() error {
	if !o.SortBy.Valid() {
		return fmt.Errorf("%w: sort mode %q", ErrInvalidOptions, o.SortBy)
	}
	filters := []struct {
		name  string
		value Tristate
	}{
		{"unread", o.Unread},
		{"downloaded", o.Downloaded},
		{"bookmarked", o.Bookmarked},
	}
	for _, f := range filters {
		if !f.value.Valid() {
			return fmt.Errorf("%w: %s filter %d", ErrInvalidOptions, f.name, int8(f.value))
		}
	}
	return nil
}

// OptionsKey derives the collection key under which a manga's chapter options are stored.
func OptionsKey(mangaID string) string {
	return mangaID + "filterOptions"
}
