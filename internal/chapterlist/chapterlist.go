// Package chapterlist turns a raw chapter collection into the list a reader
// sees, according to a ChapterListOptions snapshot.
package chapterlist

import (
	"cmp"
	"slices"

	"github.com/bunchhieng/chapterlist/internal/model"
)

type comparator func(a, b *model.Chapter) int

// sortStrategies maps each sort mode to its comparator. A nil comparator keeps
// the incoming order.
var sortStrategies = map[model.SortMode]comparator{
	model.SortSource: nil,
	model.SortFetchedAt: func(a, b *model.Chapter) int {
		return cmp.Compare(fetchedAt(a), fetchedAt(b))
	},
}

// Transform filters, sorts and optionally reverses chapters. It never modifies
// chapters or the chapters they point to and always returns a new slice.
func Transform(chapters []*model.Chapter, opts model.ChapterListOptions) []*model.Chapter {
	result := make([]*model.Chapter, 0, len(chapters))
	if opts.Active {
		for _, c := range chapters {
			if UnreadFilter(opts.Unread, c) &&
				DownloadedFilter(opts.Downloaded, c) &&
				BookmarkedFilter(opts.Bookmarked, c) {
				result = append(result, c)
			}
		}
	} else {
		result = append(result, chapters...)
	}

	if less := sortStrategies[opts.SortBy]; less != nil {
		slices.SortStableFunc(result, less)
	}

	if opts.Reverse {
		slices.Reverse(result)
	}
	return result
}

// UnreadFilter keeps unread chapters for TriTrue and read chapters for TriFalse.
func UnreadFilter(unread model.Tristate, c *model.Chapter) bool {
	return match(unread, !isRead(c))
}

// DownloadedFilter keeps downloaded chapters for TriTrue and the rest for TriFalse.
func DownloadedFilter(downloaded model.Tristate, c *model.Chapter) bool {
	return match(downloaded, c != nil && c.Downloaded)
}

// BookmarkedFilter keeps bookmarked chapters for TriTrue and the rest for TriFalse.
func BookmarkedFilter(bookmarked model.Tristate, c *model.Chapter) bool {
	return match(bookmarked, c != nil && c.Bookmarked)
}

// FilterActive reports whether any filter dimension is set, regardless of the
// persisted Active flag. UIs use it to offer clearing the filters.
func FilterActive(opts model.ChapterListOptions) bool {
	return opts.Unread.IsSet() || opts.Downloaded.IsSet() || opts.Bookmarked.IsSet()
}

func match(want model.Tristate, has bool) bool {
	switch want {
	case model.TriTrue:
		return has
	case model.TriFalse:
		return !has
	default:
		return true
	}
}

// nil chapters behave like a chapter with every flag false and FetchedAt 0

func isRead(c *model.Chapter) bool {
	return c != nil && c.Read
}

func fetchedAt(c *model.Chapter) int64 {
	if c == nil {
		return 0
	}
	return c.FetchedAt
}
