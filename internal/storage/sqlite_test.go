package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bunchhieng/chapterlist/internal/model"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	storage, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}
	return storage
}

func addChapters(t *testing.T, s *SQLiteStorage, mangaID string, names ...string) []*model.Chapter {
	t.Helper()
	ctx := context.Background()
	out := make([]*model.Chapter, 0, len(names))
	for i, name := range names {
		c, err := s.AddChapter(ctx, &model.Chapter{
			MangaID:       mangaID,
			Name:          name,
			ChapterNumber: float64(i + 1),
			FetchedAt:     int64(100 - i),
		})
		if err != nil {
			t.Fatalf("AddChapter failed: %v", err)
		}
		out = append(out, c)
	}
	return out
}

func TestAddChapter(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	created, err := s.AddChapter(ctx, &model.Chapter{MangaID: "m1", Name: "Prologue"})
	if err != nil {
		t.Fatalf("AddChapter failed: %v", err)
	}

	if !model.ValidateShortID(created.ID) {
		t.Errorf("Expected valid ID, got %s", created.ID)
	}
	if created.FetchedAt == 0 {
		t.Error("Expected FetchedAt to default to now")
	}
	if created.SourceOrder != 0 {
		t.Errorf("Expected first chapter at source order 0, got %d", created.SourceOrder)
	}
}

func TestAddChapterRequiresManga(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	_, err := s.AddChapter(context.Background(), &model.Chapter{Name: "orphan"})
	if !errors.Is(err, model.ErrInvalidChapter) {
		t.Errorf("Expected ErrInvalidChapter, got %v", err)
	}
}

func TestAddChapterAppendsSourceOrder(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	chapters := addChapters(t, s, "m1", "one", "two", "three")
	other := addChapters(t, s, "m2", "solo")

	for i, c := range chapters {
		if c.SourceOrder != i {
			t.Errorf("Expected source order %d, got %d", i, c.SourceOrder)
		}
	}
	if other[0].SourceOrder != 0 {
		t.Errorf("Expected source order per manga, got %d", other[0].SourceOrder)
	}
}

func TestGetChapter(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	created := addChapters(t, s, "m1", "one")[0]
	retrieved, err := s.GetChapter(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetChapter failed: %v", err)
	}
	if diff := cmp.Diff(created, retrieved); diff != "" {
		t.Errorf("GetChapter mismatch (-want +got):\n%s", diff)
	}
}

func TestGetChapterNotFound(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	_, err := s.GetChapter(context.Background(), "aaaaaaaaaaaaaaaaaaaaaaaaaa")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListChaptersSourceOrder(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	addChapters(t, s, "m1", "one", "two", "three")
	addChapters(t, s, "m2", "other")

	chapters, err := s.ListChapters(context.Background(), ListOptions{MangaID: "m1"})
	if err != nil {
		t.Fatalf("ListChapters failed: %v", err)
	}

	names := make([]string, len(chapters))
	for i, c := range chapters {
		names[i] = c.Name
	}
	if diff := cmp.Diff([]string{"one", "two", "three"}, names); diff != "" {
		t.Errorf("ListChapters mismatch (-want +got):\n%s", diff)
	}

	all, err := s.ListChapters(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListChapters failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 chapters, got %d", len(all))
	}
}

func TestSetChapterState(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	c := addChapters(t, s, "m1", "one")[0]

	for _, field := range []StateField{StateRead, StateDownloaded, StateBookmarked} {
		if err := s.SetChapterState(ctx, c.ID, field, true); err != nil {
			t.Fatalf("SetChapterState(%s) failed: %v", field, err)
		}
	}

	retrieved, _ := s.GetChapter(ctx, c.ID)
	if !retrieved.Read || !retrieved.Downloaded || !retrieved.Bookmarked {
		t.Errorf("Expected all flags set, got %+v", retrieved)
	}

	if err := s.SetChapterState(ctx, c.ID, StateRead, false); err != nil {
		t.Fatalf("SetChapterState failed: %v", err)
	}
	retrieved, _ = s.GetChapter(ctx, c.ID)
	if retrieved.Read {
		t.Error("Expected chapter to be unread")
	}

	if err := s.SetChapterState(ctx, "aaaaaaaaaaaaaaaaaaaaaaaaaa", StateRead, true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.SetChapterState(ctx, c.ID, StateField(42), true); err == nil {
		t.Error("Expected error for unknown field")
	}
}

func TestDeleteChapter(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	c := addChapters(t, s, "m1", "one")[0]

	if err := s.DeleteChapter(ctx, c.ID); err != nil {
		t.Fatalf("DeleteChapter failed: %v", err)
	}
	if _, err := s.GetChapter(ctx, c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteChapter(ctx, c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestExportImport(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	chapters := addChapters(t, s, "m1", "one", "two")
	if err := s.SetChapterState(ctx, chapters[1].ID, StateBookmarked, true); err != nil {
		t.Fatalf("SetChapterState failed: %v", err)
	}

	exported, err := s.ExportChapters(ctx)
	if err != nil {
		t.Fatalf("ExportChapters failed: %v", err)
	}

	s2 := setupTestDB(t)
	defer s2.Close()

	if err := s2.ImportChapters(ctx, exported); err != nil {
		t.Fatalf("ImportChapters failed: %v", err)
	}
	imported, err := s2.ExportChapters(ctx)
	if err != nil {
		t.Fatalf("ExportChapters failed: %v", err)
	}
	if diff := cmp.Diff(exported, imported); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImportReplacesByID(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	c := addChapters(t, s, "m1", "one")[0]

	updated := *c
	updated.Name = "one (redrawn)"
	updated.Read = true
	if err := s.ImportChapters(ctx, []*model.Chapter{&updated, {MangaID: "m1", Name: "new", SourceOrder: 5}}); err != nil {
		t.Fatalf("ImportChapters failed: %v", err)
	}

	chapters, _ := s.ListChapters(ctx, ListOptions{MangaID: "m1"})
	if len(chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Name != "one (redrawn)" || !chapters[0].Read {
		t.Errorf("Expected replaced chapter, got %+v", chapters[0])
	}
	if chapters[1].ID == "" || chapters[1].SourceOrder != 5 {
		t.Errorf("Expected generated ID and kept order, got %+v", chapters[1])
	}
}

func TestImportLeavesInputUntouched(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	input := []*model.Chapter{{MangaID: "m1", Name: "no id"}}
	if err := s.ImportChapters(ctx, input); err != nil {
		t.Fatalf("ImportChapters failed: %v", err)
	}
	if input[0].ID != "" {
		t.Errorf("Expected caller's chapter to keep an empty ID, got %q", input[0].ID)
	}

	chapters, _ := s.ListChapters(ctx, ListOptions{MangaID: "m1"})
	if len(chapters) != 1 || !model.ValidateShortID(chapters[0].ID) {
		t.Errorf("Expected one stored chapter with a generated ID, got %+v", chapters)
	}
}

func TestImportRejectsInvalidChapter(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	err := s.ImportChapters(ctx, []*model.Chapter{{MangaID: "m1", Name: "ok"}, {Name: "no manga"}})
	if !errors.Is(err, model.ErrInvalidChapter) {
		t.Fatalf("Expected ErrInvalidChapter, got %v", err)
	}
	chapters, _ := s.ListChapters(ctx, ListOptions{})
	if len(chapters) != 0 {
		t.Errorf("Expected import to roll back, got %d chapters", len(chapters))
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	key := model.OptionsKey("m1")

	if _, err := s.LoadOptions(ctx, key); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for fresh key, got %v", err)
	}

	for _, opts := range []model.ChapterListOptions{
		model.DefaultChapterListOptions(),
		{Active: true, Unread: model.TriTrue, Downloaded: model.TriFalse, SortBy: model.SortFetchedAt, Reverse: true},
		{Bookmarked: model.TriFalse, SortBy: model.SortSource, ShowChapterNumber: true},
	} {
		if err := s.SaveOptions(ctx, key, opts); err != nil {
			t.Fatalf("SaveOptions failed: %v", err)
		}
		loaded, err := s.LoadOptions(ctx, key)
		if err != nil {
			t.Fatalf("LoadOptions failed: %v", err)
		}
		if diff := cmp.Diff(opts, *loaded); diff != "" {
			t.Errorf("options round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDeleteOptions(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.SaveOptions(ctx, "k", model.DefaultChapterListOptions()); err != nil {
		t.Fatalf("SaveOptions failed: %v", err)
	}
	if err := s.DeleteOptions(ctx, "k"); err != nil {
		t.Fatalf("DeleteOptions failed: %v", err)
	}
	if _, err := s.LoadOptions(ctx, "k"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteOptions(ctx, "k"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chapters.db")

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	ctx := context.Background()
	addChapters(t, s, "m1", "one")
	want := model.ChapterListOptions{Active: true, Unread: model.TriFalse, SortBy: model.SortFetchedAt}
	if err := s.SaveOptions(ctx, "k", want); err != nil {
		t.Fatalf("SaveOptions failed: %v", err)
	}
	s.Close()

	// migrations must be idempotent across opens
	s, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.LoadOptions(ctx, "k")
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	if *got != want {
		t.Errorf("Expected %+v, got %+v", want, *got)
	}
	chapters, _ := s.ListChapters(ctx, ListOptions{MangaID: "m1"})
	if len(chapters) != 1 {
		t.Errorf("Expected 1 chapter after reopen, got %d", len(chapters))
	}
}

func TestParseStateField(t *testing.T) {
	for _, name := range []string{"read", "downloaded", "bookmarked"} {
		f, err := ParseStateField(name)
		if err != nil {
			t.Fatalf("ParseStateField(%q) failed: %v", name, err)
		}
		if f.String() != name {
			t.Errorf("Expected %q, got %q", name, f.String())
		}
	}
	if _, err := ParseStateField("favourite"); err == nil {
		t.Error("Expected error for unknown field")
	}
}
