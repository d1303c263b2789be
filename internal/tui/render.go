package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/bunchhieng/chapterlist/internal/chapterlist"
	"github.com/bunchhieng/chapterlist/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1)

	unreadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	readStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	flagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	clearHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Padding(0, 1)
)

func (m appModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m appModel) renderHeader() string {
	header := fmt.Sprintf("%s  [%d/%d chapters]", m.mangaID, len(m.visible), len(m.chapters))
	return headerStyle.Render(header)
}

func (m appModel) renderFilters() string {
	sortText := sortLabel(m.opts.SortBy)
	if m.opts.Reverse {
		sortText += " ↓"
	}
	parts := []string{
		"[u]nread: " + m.opts.Unread.String(),
		"[d]ownloaded: " + m.opts.Downloaded.String(),
		"[b]ookmarked: " + m.opts.Bookmarked.String(),
		"[s]ort: " + sortText,
	}
	line := filterStyle.Render(strings.Join(parts, "  "))
	if chapterlist.FilterActive(m.opts) {
		line += clearHintStyle.Render("[c]lear filters")
	}
	return line
}

func (m appModel) renderList() string {
	if len(m.visible) == 0 {
		if len(m.chapters) == 0 {
			return "No chapters yet. Add some with 'chl add' or 'chl import'."
		}
		return "No chapters match the filters. Press 'c' to clear them."
	}

	var b strings.Builder
	listHeight := m.height - 5 // header, filters, status

	// keep the selection visible
	start := 0
	if listHeight > 0 && m.selected >= listHeight {
		start = m.selected - listHeight + 1
	}

	for i := start; i < len(m.visible); i++ {
		if listHeight > 0 && i-start >= listHeight {
			break
		}
		b.WriteString(m.renderChapter(m.visible[i], i == m.selected))
		b.WriteString("\n")
	}
	return b.String()
}

func (m appModel) renderChapter(chapter *model.Chapter, selected bool) string {
	statusIcon := "○"
	statusColor := unreadStyle
	if chapter.Read {
		statusIcon = "●"
		statusColor = readStyle
	}

	title := runewidth.Truncate(chapter.Label(m.opts.ShowChapterNumber), 60, "...")

	var flags []string
	if chapter.Downloaded {
		flags = append(flags, "dl")
	}
	if chapter.Bookmarked {
		flags = append(flags, "★")
	}
	flagStr := ""
	if len(flags) > 0 {
		flagStr = " [" + strings.Join(flags, " ") + "]"
	}

	line := fmt.Sprintf("%s %s %s%s",
		statusColor.Render(statusIcon),
		statusColor.Render(title),
		readStyle.Render(formatTime(chapter.FetchedAt)),
		flagStyle.Render(flagStr),
	)

	if selected {
		return selectedStyle.Render(line)
	}
	return " " + line
}

func (m appModel) renderStatusBar() string {
	var parts []string
	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	} else {
		parts = append(parts, fmt.Sprintf("%d/%d", m.selected+1, len(m.visible)))
	}
	parts = append(parts, "[r]everse [n]umbers [m]ark read [?]help [q]uit")

	return statusBarStyle.Width(m.width).Render(strings.Join(parts, "  |  "))
}

func sortLabel(mode model.SortMode) string {
	for _, opt := range model.SortOptions() {
		if opt.Mode == mode {
			return opt.Label
		}
	}
	return string(mode)
}

func formatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}
