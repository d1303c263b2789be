package model

import "errors"

var (
	// ErrNotFound indicates a chapter or an options record was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAction indicates an options action outside the recognized set.
	ErrInvalidAction = errors.New("invalid chapter options action")

	// ErrInvalidOptions indicates a chapter list configuration with an unknown sort mode.
	ErrInvalidOptions = errors.New("invalid chapter list options")

	// ErrInvalidChapter indicates a chapter without a manga ID.
	ErrInvalidChapter = errors.New("invalid chapter")
)
