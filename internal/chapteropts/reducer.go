package chapteropts

import (
	"fmt"

	"github.com/bunchhieng/chapterlist/internal/model"
)

// Reduce returns the configuration that results from applying action to state.
// state is never modified. An unrecognized action returns state unchanged
// together with model.ErrInvalidAction.
//
// A Filter action derives Active from the filter values held before the
// change: Active becomes false exactly when one of them was already TriFalse.
// The value being set is not taken into account.
func Reduce(state model.ChapterListOptions, action Action) (model.ChapterListOptions, error) {
	next := state
	switch a := action.(type) {
	case Filter:
		if !a.Value.Valid() {
			return state, fmt.Errorf("%w: filter value %d", model.ErrInvalidAction, a.Value)
		}
		next.Active = state.Unread != model.TriFalse &&
			state.Downloaded != model.TriFalse &&
			state.Bookmarked != model.TriFalse
		switch a.Type {
		case FilterUnread:
			next.Unread = a.Value
		case FilterDownloaded:
			next.Downloaded = a.Value
		case FilterBookmarked:
			next.Bookmarked = a.Value
		default:
			return state, fmt.Errorf("%w: filter type %v", model.ErrInvalidAction, a.Type)
		}
	case SortBy:
		if !a.Mode.Valid() {
			return state, fmt.Errorf("%w: sort mode %q", model.ErrInvalidAction, a.Mode)
		}
		next.SortBy = a.Mode
	case SortReverse:
		next.Reverse = !state.Reverse
	case ShowChapterNumber:
		next.ShowChapterNumber = !state.ShowChapterNumber
	default:
		return state, fmt.Errorf("%w: %T", model.ErrInvalidAction, action)
	}
	return next, nil
}
