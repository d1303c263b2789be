package chapteropts

import (
	"context"
	"sync"

	"github.com/bunchhieng/chapterlist/internal/model"
)

// MemoryBackend is a Backend kept in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	opts map[string]model.ChapterListOptions
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{opts: make(map[string]model.ChapterListOptions)}
}

func (m *MemoryBackend) LoadOptions(_ context.Context, key string) (*model.ChapterListOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opts, ok := m.opts[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &opts, nil
}

func (m *MemoryBackend) SaveOptions(_ context.Context, key string, opts model.ChapterListOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts[key] = opts
	return nil
}
