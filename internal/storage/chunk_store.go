package storage

import (
	"fmt"
	"time"

	"github.com/annel0/sandworld/internal/config"
	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/protocol"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// ChunkStore кэш выгруженных чанков с явным закрытием
type ChunkStore interface {
	world.ChunkCache
	Delete(coord vec.Vec2) error
	Close() error
}

// chunkKey ключ чанка в key-value хранилищах
func chunkKey(prefix string, coord vec.Vec2) string {
	return prefix + protocol.ChunkKey(coord)
}

// Open создаёт хранилище по конфигурации. Для kind "none" возвращает nil.
func Open(cfg config.StorageConfig, codec *protocol.Codec) (ChunkStore, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	log := logging.GetStorageLogger()

	switch cfg.Kind {
	case "", "memory":
		log.Info("Кэш чанков в памяти")
		return NewMemoryStore(), nil
	case "badger":
		log.Info("Кэш чанков BadgerDB: %s", cfg.Path)
		return NewBadgerStore(cfg.Path, codec, ttl)
	case "redis":
		log.Info("Кэш чанков Redis: %s", cfg.GetRedisAddr())
		return NewRedisStore(RedisConfig{Addr: cfg.GetRedisAddr(), TTL: ttl}, codec)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", cfg.Kind)
	}
}
