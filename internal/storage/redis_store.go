package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/sandworld/internal/protocol"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 без ограничения
	Timeout   time.Duration // Таймаут одной операции
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "sandworld:chunk:",
		TTL:       10 * time.Minute,
		Timeout:   2 * time.Second,
	}
}

// RedisStore хранит снимки чанков в Redis. Ключи истекают через TTL,
// так что Redis подходит как общий кэш нескольких процессов.
type RedisStore struct {
	client    *redis.Client
	codec     *protocol.Codec
	keyPrefix string
	ttl       time.Duration
	timeout   time.Duration
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(cfg RedisConfig, codec *protocol.Codec) (*RedisStore, error) {
	def := DefaultRedisConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := &RedisStore{client: client, codec: codec, keyPrefix: cfg.KeyPrefix, ttl: cfg.TTL, timeout: cfg.Timeout}

	ctx, cancel := s.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return s, nil
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *RedisStore) key(coord vec.Vec2) string {
	return chunkKey(s.keyPrefix, coord)
}

// Save сохраняет снимок с TTL
func (s *RedisStore) Save(snap world.ChunkSnapshot) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Set(ctx, s.key(snap.Coord), s.codec.Marshal(snap), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snap.Coord, err)
	}
	return nil
}

// Load читает снимок
func (s *RedisStore) Load(coord vec.Vec2) (world.ChunkSnapshot, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	data, err := s.client.Get(ctx, s.key(coord)).Bytes()
	if errors.Is(err, redis.Nil) {
		return world.ChunkSnapshot{}, false, nil
	}
	if err != nil {
		return world.ChunkSnapshot{}, false, fmt.Errorf("redis get %s: %w", coord, err)
	}
	snap, err := s.codec.Unmarshal(data)
	if err != nil {
		return world.ChunkSnapshot{}, false, err
	}
	return snap, true, nil
}

// Delete удаляет снимок
func (s *RedisStore) Delete(coord vec.Vec2) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Del(ctx, s.key(coord)).Err()
}

// Close закрывает клиент
func (s *RedisStore) Close() error {
	return s.client.Close()
}
