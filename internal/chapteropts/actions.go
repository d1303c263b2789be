package chapteropts

import (
	"fmt"

	"github.com/bunchhieng/chapterlist/internal/model"
)

// FilterType names one of the three filter dimensions.
type FilterType int

const (
	FilterUnread FilterType = iota + 1
	FilterDownloaded
	FilterBookmarked
)

func (f FilterType) String() string {
	switch f {
	case FilterUnread:
		return "unread"
	case FilterDownloaded:
		return "downloaded"
	case FilterBookmarked:
		return "bookmarked"
	default:
		return fmt.Sprintf("FilterType(%d)", int(f))
	}
}

// ParseFilterType maps "unread", "downloaded" and "bookmarked" to a FilterType.
func ParseFilterType(s string) (FilterType, error) {
	for _, f := range []FilterType{FilterUnread, FilterDownloaded, FilterBookmarked} {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown filter type %q", model.ErrInvalidAction, s)
}

// Action is a change requested by the user. The set of actions is closed:
// only the types in this package implement it.
type Action interface {
	action()
}

// Filter sets one filter dimension.
type Filter struct {
	Type  FilterType
	Value model.Tristate
}

// SortBy selects the sort mode.
type SortBy struct {
	Mode model.SortMode
}

// SortReverse flips the list direction.
type SortReverse struct{}

// ShowChapterNumber flips between chapter names and numbers.
type ShowChapterNumber struct{}

func (Filter) action()            {}
func (SortBy) action()            {}
func (SortReverse) action()       {}
func (ShowChapterNumber) action() {}

// ParseAction builds an action from its tag and arguments, e.g.
// ParseAction("filter", "unread", "true") or ParseAction("sortBy", "fetchedAt").
func ParseAction(tag string, args ...string) (Action, error) {
	switch tag {
	case "filter":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: filter needs a type and a value", model.ErrInvalidAction)
		}
		ft, err := ParseFilterType(args[0])
		if err != nil {
			return nil, err
		}
		v, err := model.ParseTristate(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidAction, err)
		}
		return Filter{Type: ft, Value: v}, nil
	case "sortBy":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: sortBy needs a mode", model.ErrInvalidAction)
		}
		mode, err := model.ParseSortMode(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidAction, err)
		}
		return SortBy{Mode: mode}, nil
	case "sortReverse":
		return SortReverse{}, nil
	case "showChapterNumber":
		return ShowChapterNumber{}, nil
	}
	return nil, fmt.Errorf("%w: %q", model.ErrInvalidAction, tag)
}
