package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/natefinch/atomic"

	"github.com/bunchhieng/chapterlist/internal/chapterlist"
	"github.com/bunchhieng/chapterlist/internal/chapteropts"
	"github.com/bunchhieng/chapterlist/internal/model"
	"github.com/bunchhieng/chapterlist/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// Commands handles all CLI command execution.
type Commands struct {
	storage storage.Storage
	options *chapteropts.Store
	out     io.Writer
}

// NewCommands creates a new Commands instance writing its results to out.
func NewCommands(s storage.Storage, options *chapteropts.Store, out io.Writer) *Commands {
	if out == nil {
		out = os.Stdout
	}
	return &Commands{storage: s, options: options, out: out}
}

// suggestID suggests a similar chapter ID if the given ID is not found.
func (c *Commands) suggestID(id string) string {
	chapters, err := c.storage.ListChapters(context.Background(), storage.ListOptions{})
	if err != nil || len(chapters) == 0 {
		return ""
	}

	bestMatch := ""
	minDistance := len(id) + 1

	for _, chapter := range chapters {
		distance := levenshteinDistance(id, chapter.ID)
		if distance < minDistance && distance <= 3 {
			minDistance = distance
			bestMatch = chapter.ID
		}
	}

	return bestMatch
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// Add appends a chapter to a manga.
func (c *Commands) Add(mangaID, name string, number float64, fetchedAt int64) error {
	chapter := &model.Chapter{
		MangaID:       mangaID,
		Name:          name,
		ChapterNumber: number,
		FetchedAt:     fetchedAt,
	}

	created, err := c.storage.AddChapter(context.Background(), chapter)
	if err != nil {
		return fmt.Errorf("add chapter: %w", err)
	}

	fmt.Fprintf(c.out, "%sAdded%s chapter %s%s%s: %s%s%s\n",
		colorGreen, colorReset, colorBold, created.ID, colorReset, colorCyan, created.Label(false), colorReset)
	return nil
}

// List prints the chapters of a manga as filtered and sorted by its stored options.
func (c *Commands) List(mangaID string) error {
	ctx := context.Background()
	opts := c.options.Get(ctx, model.OptionsKey(mangaID))

	chapters, err := c.storage.ListChapters(ctx, storage.ListOptions{MangaID: mangaID})
	if err != nil {
		return fmt.Errorf("list chapters: %w", err)
	}

	visible := chapterlist.Transform(chapters, opts)

	fmt.Fprintf(c.out, "%s%s%s  %s%s%s\n", colorBold, mangaID, colorReset, colorDim, describeOptions(opts), colorReset)
	if chapterlist.FilterActive(opts) {
		fmt.Fprintf(c.out, "%sFilters set%s - run %schl clear %s%s to show every chapter.\n",
			colorYellow, colorReset, colorBold, mangaID, colorReset)
	}

	if len(visible) == 0 {
		fmt.Fprintln(c.out, "No chapters found.")
		return nil
	}

	printChaptersTable(c.out, visible, opts.ShowChapterNumber)
	fmt.Fprintf(c.out, "%s%d of %d chapter(s)%s\n", colorDim, len(visible), len(chapters), colorReset)
	return nil
}

// Mark sets the read, downloaded or bookmarked flag of a chapter.
func (c *Commands) Mark(id string, field storage.StateField, value bool) error {
	if !model.ValidateShortID(id) {
		return fmt.Errorf("invalid ID format")
	}
	if err := c.storage.SetChapterState(context.Background(), id, field, value); err != nil {
		return c.handleNotFound(err, id, "mark chapter")
	}

	state := field.String()
	if !value {
		state = "not " + state
	}
	fmt.Fprintf(c.out, "%sMarked%s chapter %s%s%s as %s.\n", colorGreen, colorReset, colorBold, id, colorReset, state)
	return nil
}

// Remove deletes one or more chapters.
func (c *Commands) Remove(ids ...string) error {
	if len(ids) == 0 {
		return fmt.Errorf("at least one ID required")
	}

	var deleted []string
	var failed []string

	for _, id := range ids {
		if !model.ValidateShortID(id) {
			failed = append(failed, fmt.Sprintf("%s (invalid format)", id))
			continue
		}
		if err := c.storage.DeleteChapter(context.Background(), id); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				msg := fmt.Sprintf("%s (not found)", id)
				if suggestion := c.suggestID(id); suggestion != "" {
					msg += fmt.Sprintf(" - %sDid you mean:%s %s%s%s?", colorYellow, colorReset, colorBold, suggestion, colorReset)
				}
				failed = append(failed, msg)
			} else {
				failed = append(failed, fmt.Sprintf("%s (%v)", id, err))
			}
			continue
		}
		deleted = append(deleted, id)
	}

	if len(deleted) == 1 {
		fmt.Fprintf(c.out, "%sDeleted%s chapter %s%s%s.\n", colorRed, colorReset, colorBold, deleted[0], colorReset)
	} else if len(deleted) > 1 {
		fmt.Fprintf(c.out, "%sDeleted%s %d chapter(s): %s%s%s\n", colorRed, colorReset, len(deleted), colorBold, strings.Join(deleted, ", "), colorReset)
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to delete: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (c *Commands) handleNotFound(err error, id string, action string) error {
	if errors.Is(err, model.ErrNotFound) {
		msg := fmt.Sprintf("chapter %s%s%s not found", colorBold, id, colorReset)
		if suggestion := c.suggestID(id); suggestion != "" {
			msg += fmt.Sprintf("\n\n%sDid you mean:%s %s%s%s?", colorYellow, colorReset, colorBold, suggestion, colorReset)
		}
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// Dispatch applies the action named by tag to the options of a manga and
// prints the resulting options.
func (c *Commands) Dispatch(mangaID, tag string, args ...string) error {
	action, err := chapteropts.ParseAction(tag, args...)
	if err != nil {
		return err
	}
	opts, err := c.options.Dispatch(context.Background(), model.OptionsKey(mangaID), action)
	if err != nil {
		return fmt.Errorf("update options: %w", err)
	}
	c.printOptions(mangaID, opts)
	return nil
}

// Filter sets one filter dimension ("unread", "downloaded", "bookmarked") to
// "true", "false" or "any".
func (c *Commands) Filter(mangaID, filterType, value string) error {
	return c.Dispatch(mangaID, "filter", filterType, value)
}

// Sort selects a sort mode. Without a mode it prints the sort catalog.
func (c *Commands) Sort(mangaID, mode string) error {
	if mode == "" {
		current := c.options.Get(context.Background(), model.OptionsKey(mangaID)).SortBy
		for _, opt := range model.SortOptions() {
			marker := " "
			if opt.Mode == current {
				marker = "*"
			}
			fmt.Fprintf(c.out, "%s %s%-10s%s %s\n", marker, colorBold, opt.Mode, colorReset, opt.Label)
		}
		return nil
	}
	return c.Dispatch(mangaID, "sortBy", mode)
}

// Reverse flips the list direction.
func (c *Commands) Reverse(mangaID string) error {
	return c.Dispatch(mangaID, "sortReverse")
}

// Numbers toggles between chapter names and chapter numbers.
func (c *Commands) Numbers(mangaID string) error {
	return c.Dispatch(mangaID, "showChapterNumber")
}

// Options prints the stored options of a manga.
func (c *Commands) Options(mangaID string) error {
	c.printOptions(mangaID, c.options.Get(context.Background(), model.OptionsKey(mangaID)))
	return nil
}

// Clear unsets every filter of a manga.
func (c *Commands) Clear(mangaID string) error {
	opts, err := c.options.Reset(context.Background(), model.OptionsKey(mangaID))
	if err != nil {
		return fmt.Errorf("clear filters: %w", err)
	}
	fmt.Fprintf(c.out, "%sCleared%s filters for %s%s%s.\n", colorGreen, colorReset, colorBold, mangaID, colorReset)
	c.printOptions(mangaID, opts)
	return nil
}

// Reset deletes the stored options of a manga so the defaults apply again.
func (c *Commands) Reset(mangaID string) error {
	ctx := context.Background()
	key := model.OptionsKey(mangaID)
	if err := c.storage.DeleteOptions(ctx, key); err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("reset options: %w", err)
	}
	c.options.Forget(key)
	fmt.Fprintf(c.out, "%sReset%s options for %s%s%s.\n", colorYellow, colorReset, colorBold, mangaID, colorReset)
	c.printOptions(mangaID, c.options.Get(ctx, key))
	return nil
}

func (c *Commands) printOptions(mangaID string, opts model.ChapterListOptions) {
	fmt.Fprintf(c.out, "%s%s%s\n", colorBold, mangaID, colorReset)
	fmt.Fprintf(c.out, "  active:       %t\n", opts.Active)
	fmt.Fprintf(c.out, "  unread:       %s\n", opts.Unread)
	fmt.Fprintf(c.out, "  downloaded:   %s\n", opts.Downloaded)
	fmt.Fprintf(c.out, "  bookmarked:   %s\n", opts.Bookmarked)
	fmt.Fprintf(c.out, "  sort:         %s\n", sortLabel(opts.SortBy))
	fmt.Fprintf(c.out, "  reverse:      %t\n", opts.Reverse)
	fmt.Fprintf(c.out, "  show numbers: %t\n", opts.ShowChapterNumber)
}

// Export writes all chapters as JSON to path, or to the command output when
// path is empty. Files are replaced atomically.
func (c *Commands) Export(path string) error {
	chapters, err := c.storage.ExportChapters(context.Background())
	if err != nil {
		return fmt.Errorf("export chapters: %w", err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(chapters); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	if path == "" {
		_, err := c.out.Write(buf.Bytes())
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(c.out, "%sExported%s %s%d%s chapter(s) to %s.\n", colorGreen, colorReset, colorBold, len(chapters), colorReset, path)
	return nil
}

// Import imports chapters from a JSON file.
func (c *Commands) Import(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var chapters []*model.Chapter
	if err := json.NewDecoder(file).Decode(&chapters); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	if err := c.storage.ImportChapters(context.Background(), chapters); err != nil {
		return fmt.Errorf("import chapters: %w", err)
	}

	fmt.Fprintf(c.out, "%sImported%s %s%d%s chapter(s).\n", colorGreen, colorReset, colorBold, len(chapters), colorReset)
	return nil
}

func sortLabel(mode model.SortMode) string {
	for _, opt := range model.SortOptions() {
		if opt.Mode == mode {
			return opt.Label
		}
	}
	return string(mode)
}

func describeOptions(opts model.ChapterListOptions) string {
	parts := []string{sortLabel(opts.SortBy)}
	if opts.Reverse {
		parts[0] += " (reversed)"
	}
	for _, f := range []struct {
		name  string
		value model.Tristate
	}{
		{"unread", opts.Unread},
		{"downloaded", opts.Downloaded},
		{"bookmarked", opts.Bookmarked},
	} {
		if f.value.IsSet() {
			parts = append(parts, f.name+"="+f.value.String())
		}
	}
	if !opts.Active {
		parts = append(parts, "filtering off")
	}
	return strings.Join(parts, " | ")
}

const (
	maxNameLen = 50
)

func printChaptersTable(w io.Writer, chapters []*model.Chapter, showNumber bool) {
	colIDLen := len("ID")
	colNameLen := len("CHAPTER")
	colFetchedLen := len("FETCHED")
	const colFlagsLen = len("R D B")

	for _, chapter := range chapters {
		if idLen := len(chapter.ID); idLen > colIDLen {
			colIDLen = idLen
		}
		if nameLen := min(runewidth.StringWidth(chapter.Label(showNumber)), maxNameLen); nameLen > colNameLen {
			colNameLen = nameLen
		}
		if fetchedLen := len(formatTime(chapter.FetchedAt)); fetchedLen > colFetchedLen {
			colFetchedLen = fetchedLen
		}
	}

	header := fmt.Sprintf("%s%-*s  %-*s  %-*s  %-*s%s",
		colorBold,
		colIDLen, "ID",
		colNameLen, "CHAPTER",
		colFlagsLen, "R D B",
		colFetchedLen, "FETCHED",
		colorReset)
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "%s%s%s\n", colorDim, strings.Repeat("─", colIDLen+colNameLen+colFlagsLen+colFetchedLen+6), colorReset)

	for _, chapter := range chapters {
		nameColor := colorBold
		if chapter.Read {
			nameColor = colorDim
		}
		fmt.Fprintf(w, "%s%-*s%s  %s%s%s  %-*s  %s%-*s%s\n",
			colorCyan, colIDLen, chapter.ID, colorReset,
			nameColor, runewidth.FillRight(truncateString(chapter.Label(showNumber), colNameLen), colNameLen), colorReset,
			colFlagsLen, flags(chapter),
			colorDim, colFetchedLen, formatTime(chapter.FetchedAt), colorReset)
	}
}

func flags(c *model.Chapter) string {
	mark := func(set bool, r string) string {
		if set {
			return r
		}
		return "-"
	}
	return strings.Join([]string{mark(c.Read, "R"), mark(c.Downloaded, "D"), mark(c.Bookmarked, "B")}, " ")
}

// truncateString shortens s to maxLen terminal cells.
func truncateString(s string, maxLen int) string {
	return runewidth.Truncate(s, maxLen, "...")
}

func formatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}

// ParseID validates an ID string format.
func ParseID(s string) (string, error) {
	if !model.ValidateShortID(s) {
		return "", fmt.Errorf("invalid ID format: %s", s)
	}
	return s, nil
}
