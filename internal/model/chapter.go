package model

import (
	"strconv"
	"strings"
)

// Chapter represents a single chapter of a manga as the chapter source reports it.
type Chapter struct {
	ID            string  `json:"id"`
	MangaID       string  `json:"manga_id"`
	Name          string  `json:"name,omitempty"`
	ChapterNumber float64 `json:"chapter_number"`
	SourceOrder   int     `json:"source_order"`
	Read          bool    `json:"read"`
	Downloaded    bool    `json:"downloaded"`
	Bookmarked    bool    `json:"bookmarked"`
	FetchedAt     int64   `json:"fetched_at"`
	UploadDate    int64   `json:"upload_date,omitempty"`
}

// Validate checks that the chapter belongs to a manga.
func (c *Chapter) Validate() error {
	if strings.TrimSpace(c.MangaID) == "" {
		return ErrInvalidChapter
	}
	return nil
}

// Label returns the text shown for the chapter in a list.
func (c *Chapter) Label(showChapterNumber bool) string {
	if showChapterNumber || c.Name == "" {
		return "Chapter " + strconv.FormatFloat(c.ChapterNumber, 'f', -1, 64)
	}
	return c.Name
}
