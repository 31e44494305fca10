package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/sandworld/internal/protocol"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

const badgerKeyPrefix = "chunk:"

// ErrStoreClosed операция над закрытым хранилищем
var ErrStoreClosed = errors.New("хранилище закрыто")

// BadgerStore хранит снимки чанков в BadgerDB
type BadgerStore struct {
	db      *badger.DB
	codec   *protocol.Codec
	ttl     time.Duration
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStore открывает базу в каталоге dataPath/chunks. ttl 0 хранит бессрочно.
func NewBadgerStore(dataPath string, codec *protocol.Codec, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Join(dataPath, "chunks"))
	opts.Logger = nil // Отключаем логирование BadgerDB
	return openBadger(opts, codec, ttl)
}

// NewBadgerMemoryStore BadgerDB без диска, для тестов и временных миров
func NewBadgerMemoryStore(codec *protocol.Codec, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, codec, ttl)
}

func openBadger(opts badger.Options, codec *protocol.Codec, ttl time.Duration) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, codec: codec, ttl: ttl, isReady: true}, nil
}

// Save сохраняет снимок
func (s *BadgerStore) Save(snap world.ChunkSnapshot) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return ErrStoreClosed
	}

	entry := badger.NewEntry([]byte(chunkKey(badgerKeyPrefix, snap.Coord)), s.codec.Marshal(snap))
	if s.ttl > 0 {
		entry = entry.WithTTL(s.ttl)
	}
	if err := s.db.Update(func(txn *badger.Txn) error { return txn.SetEntry(entry) }); err != nil {
		return fmt.Errorf("ошибка сохранения чанка %s в BadgerDB: %w", snap.Coord, err)
	}
	return nil
}

// Load читает снимок. Отсутствующий ключ не является ошибкой.
func (s *BadgerStore) Load(coord vec.Vec2) (world.ChunkSnapshot, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return world.ChunkSnapshot{}, false, ErrStoreClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chunkKey(badgerKeyPrefix, coord)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return world.ChunkSnapshot{}, false, nil
	}
	if err != nil {
		return world.ChunkSnapshot{}, false, fmt.Errorf("ошибка чтения чанка %s из BadgerDB: %w", coord, err)
	}

	snap, err := s.codec.Unmarshal(data)
	if err != nil {
		return world.ChunkSnapshot{}, false, err
	}
	return snap, true, nil
}

// Delete удаляет снимок
func (s *BadgerStore) Delete(coord vec.Vec2) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return ErrStoreClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(chunkKey(badgerKeyPrefix, coord)))
	})
}

// Close закрывает базу
func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.isReady {
		return nil
	}
	s.isReady = false
	return s.db.Close()
}
