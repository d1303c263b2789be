package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bunchhieng/chapterlist/internal/chapterlist"
	"github.com/bunchhieng/chapterlist/internal/chapteropts"
	"github.com/bunchhieng/chapterlist/internal/model"
	"github.com/bunchhieng/chapterlist/internal/storage"
)

type appModel struct {
	storage  storage.Storage
	options  *chapteropts.Store
	mangaID  string
	key      string
	opts     model.ChapterListOptions
	chapters []*model.Chapter
	visible  []*model.Chapter
	selected int
	width    int
	height   int
	err      error

	statusMsg string
}

type loadChaptersMsg struct {
	chapters []*model.Chapter
	err      error
}

type optionsMsg struct {
	opts model.ChapterListOptions
}

type statusMsg struct {
	message string
}

func initialModel(s storage.Storage, options *chapteropts.Store, mangaID string) appModel {
	key := model.OptionsKey(mangaID)
	return appModel{
		storage: s,
		options: options,
		mangaID: mangaID,
		key:     key,
		opts:    options.Get(context.Background(), key),
		width:   80,
		height:  24,
	}
}

func (m appModel) Init() tea.Cmd {
	return loadChapters(m.storage, m.mangaID)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadChaptersMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.chapters = msg.chapters
		m.applyOptions()
		return m, nil

	case optionsMsg:
		m.opts = msg.opts
		m.applyOptions()
		return m, nil

	case statusMsg:
		m.statusMsg = msg.message
		if msg.message == "" {
			return m, nil
		}
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return statusMsg{""}
		})
	}

	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.moveDown()
	case "k", "up":
		m.moveUp()
	case "g", "home":
		m.selected = 0
	case "G", "end":
		m.selected = max(len(m.visible)-1, 0)

	case "u":
		return m, m.dispatch(func(cur model.ChapterListOptions) chapteropts.Action {
			return chapteropts.Filter{Type: chapteropts.FilterUnread, Value: nextTristate(cur.Unread)}
		})
	case "d":
		return m, m.dispatch(func(cur model.ChapterListOptions) chapteropts.Action {
			return chapteropts.Filter{Type: chapteropts.FilterDownloaded, Value: nextTristate(cur.Downloaded)}
		})
	case "b":
		return m, m.dispatch(func(cur model.ChapterListOptions) chapteropts.Action {
			return chapteropts.Filter{Type: chapteropts.FilterBookmarked, Value: nextTristate(cur.Bookmarked)}
		})
	case "s":
		return m, m.dispatch(func(cur model.ChapterListOptions) chapteropts.Action {
			return chapteropts.SortBy{Mode: nextSortMode(cur.SortBy)}
		})
	case "r":
		return m, m.dispatch(func(model.ChapterListOptions) chapteropts.Action { return chapteropts.SortReverse{} })
	case "n":
		return m, m.dispatch(func(model.ChapterListOptions) chapteropts.Action { return chapteropts.ShowChapterNumber{} })
	case "c":
		return m, m.clearFilters()

	case "m", "enter":
		return m, m.toggleRead()

	case "ctrl+l":
		return m, loadChapters(m.storage, m.mangaID)

	case "?":
		return m, func() tea.Msg {
			return statusMsg{"u/d/b=filter s=sort r=reverse n=numbers c=clear m=read q=quit"}
		}
	}
	return m, nil
}

// applyOptions recomputes the visible list and keeps the selection in range.
func (m *appModel) applyOptions() {
	m.visible = chapterlist.Transform(m.chapters, m.opts)
	if m.selected >= len(m.visible) {
		m.selected = len(m.visible) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *appModel) moveDown() {
	if m.selected < len(m.visible)-1 {
		m.selected++
	}
}

func (m *appModel) moveUp() {
	if m.selected > 0 {
		m.selected--
	}
}

// dispatch builds the action from the stored options rather than the
// model's copy, which lags behind while keys are pressed quickly. The new
// options arrive through the store subscription.
func (m appModel) dispatch(build func(model.ChapterListOptions) chapteropts.Action) tea.Cmd {
	store, key := m.options, m.key
	return func() tea.Msg {
		if _, err := store.DispatchFunc(context.Background(), key, build); err != nil {
			return statusMsg{fmt.Sprintf("Error: %v", err)}
		}
		return nil
	}
}

func (m appModel) clearFilters() tea.Cmd {
	store, key := m.options, m.key
	return func() tea.Msg {
		ctx := context.Background()
		if !chapterlist.FilterActive(store.Get(ctx, key)) {
			return statusMsg{"No filters set"}
		}
		if _, err := store.Reset(ctx, key); err != nil {
			return statusMsg{fmt.Sprintf("Error: %v", err)}
		}
		return nil
	}
}

func (m appModel) toggleRead() tea.Cmd {
	if len(m.visible) == 0 || m.selected >= len(m.visible) {
		return nil
	}
	chapter := m.visible[m.selected]
	s, mangaID := m.storage, m.mangaID
	return func() tea.Msg {
		if err := s.SetChapterState(context.Background(), chapter.ID, storage.StateRead, !chapter.Read); err != nil {
			return statusMsg{fmt.Sprintf("Error: %v", err)}
		}
		return loadChapters(s, mangaID)()
	}
}

func loadChapters(s storage.Storage, mangaID string) tea.Cmd {
	return func() tea.Msg {
		chapters, err := s.ListChapters(context.Background(), storage.ListOptions{MangaID: mangaID})
		return loadChaptersMsg{chapters: chapters, err: err}
	}
}

// nextTristate cycles any -> only -> exclude -> any.
func nextTristate(t model.Tristate) model.Tristate {
	switch t {
	case model.TriUnset:
		return model.TriTrue
	case model.TriTrue:
		return model.TriFalse
	default:
		return model.TriUnset
	}
}

func nextSortMode(current model.SortMode) model.SortMode {
	catalog := model.SortOptions()
	for i, opt := range catalog {
		if opt.Mode == current {
			return catalog[(i+1)%len(catalog)].Mode
		}
	}
	return catalog[0].Mode
}

// forwardOptions turns store notifications into optionsMsg. send is called
// synchronously so the view receives configurations in commit order.
func forwardOptions(send func(tea.Msg)) func(model.ChapterListOptions) {
	return func(opts model.ChapterListOptions) {
		send(optionsMsg{opts})
	}
}

// Run starts the chapter browser for one manga. Every options change for the
// manga, from this view or elsewhere in the process, reaches the view through
// the store subscription.
func Run(s storage.Storage, options *chapteropts.Store, mangaID string) error {
	p := tea.NewProgram(initialModel(s, options, mangaID), tea.WithAltScreen())
	cancel := options.Subscribe(model.OptionsKey(mangaID), forwardOptions(p.Send))
	defer cancel()

	_, err := p.Run()
	return err
}
