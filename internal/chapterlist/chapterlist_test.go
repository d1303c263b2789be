package chapterlist

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bunchhieng/chapterlist/internal/model"
)

func fetchedAts(chapters []*model.Chapter) []int64 {
	out := make([]int64, len(chapters))
	for i, c := range chapters {
		out[i] = c.FetchedAt
	}
	return out
}

func ids(chapters []*model.Chapter) []string {
	out := make([]string, len(chapters))
	for i, c := range chapters {
		out[i] = c.ID
	}
	return out
}

func sampleChapters() []*model.Chapter {
	return []*model.Chapter{
		{ID: "a", Read: false, Downloaded: true, Bookmarked: false, FetchedAt: 10},
		{ID: "b", Read: true, Downloaded: false, Bookmarked: true, FetchedAt: 5},
		{ID: "c", Read: true, Downloaded: true, Bookmarked: false, FetchedAt: 7},
		{ID: "d", Read: false, Downloaded: false, Bookmarked: true, FetchedAt: 1},
	}
}

func TestUnsetPredicatesAlwaysPass(t *testing.T) {
	for _, c := range sampleChapters() {
		if !UnreadFilter(model.TriUnset, c) {
			t.Errorf("UnreadFilter(unset) rejected %s", c.ID)
		}
		if !DownloadedFilter(model.TriUnset, c) {
			t.Errorf("DownloadedFilter(unset) rejected %s", c.ID)
		}
		if !BookmarkedFilter(model.TriUnset, c) {
			t.Errorf("BookmarkedFilter(unset) rejected %s", c.ID)
		}
	}
}

func TestPredicates(t *testing.T) {
	read := &model.Chapter{Read: true, Downloaded: true, Bookmarked: true}
	unread := &model.Chapter{}

	if !UnreadFilter(model.TriTrue, unread) || UnreadFilter(model.TriTrue, read) {
		t.Error("UnreadFilter(true) should keep only unread chapters")
	}
	if !UnreadFilter(model.TriFalse, read) || UnreadFilter(model.TriFalse, unread) {
		t.Error("UnreadFilter(false) should keep only read chapters")
	}
	if !DownloadedFilter(model.TriTrue, read) || DownloadedFilter(model.TriTrue, unread) {
		t.Error("DownloadedFilter(true) should keep only downloaded chapters")
	}
	if !DownloadedFilter(model.TriFalse, unread) || DownloadedFilter(model.TriFalse, read) {
		t.Error("DownloadedFilter(false) should keep only chapters not downloaded")
	}
	if !BookmarkedFilter(model.TriTrue, read) || BookmarkedFilter(model.TriTrue, unread) {
		t.Error("BookmarkedFilter(true) should keep only bookmarked chapters")
	}
	if !BookmarkedFilter(model.TriFalse, unread) || BookmarkedFilter(model.TriFalse, read) {
		t.Error("BookmarkedFilter(false) should keep only chapters not bookmarked")
	}
}

func TestTransformInactivePassesEverything(t *testing.T) {
	chapters := sampleChapters()
	opts := model.DefaultChapterListOptions()
	// filter values are ignored while Active is false
	opts.Unread = model.TriTrue
	opts.Bookmarked = model.TriFalse

	got := Transform(chapters, opts)
	if diff := cmp.Diff(chapters, got); diff != "" {
		t.Errorf("Transform mismatch (-want +got):\n%s", diff)
	}
	if len(got) > 0 && &got[0] == &chapters[0] {
		t.Error("Expected a new slice, got the input backing array")
	}
}

func TestTransformAppliesAllFilters(t *testing.T) {
	opts := model.DefaultChapterListOptions()
	opts.Active = true
	opts.Unread = model.TriFalse
	opts.Downloaded = model.TriTrue

	got := ids(Transform(sampleChapters(), opts))
	if diff := cmp.Diff([]string{"c"}, got); diff != "" {
		t.Errorf("Transform mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformSortFetchedAtIsStable(t *testing.T) {
	chapters := []*model.Chapter{
		{ID: "first5", FetchedAt: 5},
		{ID: "one", FetchedAt: 1},
		{ID: "second5", FetchedAt: 5},
		{ID: "three", FetchedAt: 3},
	}
	opts := model.DefaultChapterListOptions()
	opts.SortBy = model.SortFetchedAt

	got := Transform(chapters, opts)
	if diff := cmp.Diff([]int64{1, 3, 5, 5}, fetchedAts(got)); diff != "" {
		t.Errorf("fetchedAt order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"one", "three", "first5", "second5"}, ids(got)); diff != "" {
		t.Errorf("stable order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{5, 1, 5, 3}, fetchedAts(chapters)); diff != "" {
		t.Errorf("input was reordered (-want +got):\n%s", diff)
	}
}

func TestTransformReverseAppliesToSourceOrder(t *testing.T) {
	opts := model.DefaultChapterListOptions()
	opts.Reverse = true

	got := ids(Transform(sampleChapters(), opts))
	if diff := cmp.Diff([]string{"d", "c", "b", "a"}, got); diff != "" {
		t.Errorf("Transform mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformSortedReversed(t *testing.T) {
	chapters := []*model.Chapter{{FetchedAt: 1}, {FetchedAt: 3}, {FetchedAt: 2}}
	opts := model.ChapterListOptions{
		Active:  true,
		SortBy:  model.SortFetchedAt,
		Reverse: true,
	}

	got := fetchedAts(Transform(chapters, opts))
	if diff := cmp.Diff([]int64{3, 2, 1}, got); diff != "" {
		t.Errorf("Transform mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformUnreadScenario(t *testing.T) {
	chapters := []*model.Chapter{
		{Read: false, Downloaded: true, Bookmarked: false, FetchedAt: 10},
		{Read: true, Downloaded: false, Bookmarked: true, FetchedAt: 5},
	}
	opts := model.DefaultChapterListOptions()
	opts.Active = true
	opts.Unread = model.TriTrue

	got := Transform(chapters, opts)
	if len(got) != 1 || got[0] != chapters[0] {
		t.Fatalf("Expected only the unread chapter, got %v", fetchedAts(got))
	}
}

func TestTransformIdempotentWhenActiveConsistent(t *testing.T) {
	opts := model.ChapterListOptions{
		Active:     true,
		Bookmarked: model.TriTrue,
		SortBy:     model.SortFetchedAt,
	}
	once := Transform(sampleChapters(), opts)
	twice := Transform(once, opts)
	if diff := cmp.Diff(ids(once), ids(twice)); diff != "" {
		t.Errorf("second pass changed the result (-once +twice):\n%s", diff)
	}
}

func TestDoubleReverseIsIdentity(t *testing.T) {
	opts := model.DefaultChapterListOptions()
	opts.Reverse = true

	chapters := sampleChapters()
	got := Transform(Transform(chapters, opts), opts)
	if diff := cmp.Diff(ids(chapters), ids(got)); diff != "" {
		t.Errorf("double reverse mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	chapters := sampleChapters()
	before := make([]model.Chapter, len(chapters))
	for i, c := range chapters {
		before[i] = *c
	}
	opts := model.ChapterListOptions{Active: true, Unread: model.TriTrue, SortBy: model.SortFetchedAt, Reverse: true}
	optsBefore := opts

	Transform(chapters, opts)

	for i, c := range chapters {
		if diff := cmp.Diff(before[i], *c); diff != "" {
			t.Errorf("chapter %d mutated (-before +after):\n%s", i, diff)
		}
	}
	if opts != optsBefore {
		t.Errorf("options mutated: %+v", opts)
	}
}

func TestTransformEmptyAndNilInput(t *testing.T) {
	got := Transform(nil, model.DefaultChapterListOptions())
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestTransformToleratesNilChapters(t *testing.T) {
	chapters := []*model.Chapter{{ID: "x", Read: true, FetchedAt: 4}, nil}
	opts := model.ChapterListOptions{Active: true, Unread: model.TriTrue, SortBy: model.SortFetchedAt}

	got := Transform(chapters, opts)
	if len(got) != 1 || got[0] != nil {
		t.Errorf("Expected the nil chapter to count as unread, got %v", got)
	}
}

func TestFilterActive(t *testing.T) {
	opts := model.DefaultChapterListOptions()
	if FilterActive(opts) {
		t.Error("Expected no active filter for defaults")
	}
	opts.Downloaded = model.TriFalse
	if !FilterActive(opts) {
		t.Error("Expected filter to be active when downloaded is set")
	}
	// independent of the persisted Active flag
	opts.Active = false
	if !FilterActive(opts) {
		t.Error("Expected FilterActive to ignore the Active flag")
	}
}
