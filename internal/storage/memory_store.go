package storage

import (
	"sync"

	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// MemoryStore хранит снимки в памяти процесса.
// Данные теряются при перезапуске сервера.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[vec.Vec2]world.ChunkSnapshot
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[vec.Vec2]world.ChunkSnapshot)}
}

// Save сохраняет копию снимка
func (s *MemoryStore) Save(snap world.ChunkSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.Coord] = cloneSnapshot(snap)
	return nil
}

// Load возвращает копию сохранённого снимка
func (s *MemoryStore) Load(coord vec.Vec2) (world.ChunkSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[coord]
	if !ok {
		return world.ChunkSnapshot{}, false, nil
	}
	return cloneSnapshot(snap), true, nil
}

// Delete удаляет снимок
func (s *MemoryStore) Delete(coord vec.Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, coord)
	return nil
}

// Count возвращает количество сохранённых чанков
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close ничего не делает
func (s *MemoryStore) Close() error { return nil }

func cloneSnapshot(s world.ChunkSnapshot) world.ChunkSnapshot {
	out := s
	out.Cells = append([]world.Cell(nil), s.Cells...)
	out.Light = append([]uint32(nil), s.Light...)
	out.Pending = append([]int(nil), s.Pending...)
	return out
}
