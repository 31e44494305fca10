package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации sandworld.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	World      WorldConfig      `yaml:"world"`
	Storage    StorageConfig    `yaml:"storage"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SimulationConfig struct {
	ChunkBitShift       int   `yaml:"chunk_bitshift"`
	TickRate            int   `yaml:"tick_rate"`
	RandomTicksPerChunk int   `yaml:"random_ticks_per_chunk"`
	Parallelism         int   `yaml:"parallelism"`
	Seed                int64 `yaml:"seed"`
	LightPasses         int   `yaml:"light_passes"`
	LightEveryTicks     int   `yaml:"light_every_ticks"`
}

type WorldConfig struct {
	Generator     string `yaml:"generator"`
	Catalog       string `yaml:"catalog"`
	PreloadRadius int    `yaml:"preload_radius"`
}

type StorageConfig struct {
	Kind       string `yaml:"kind"` // memory | badger | redis | none
	Path       string `yaml:"path"`
	RedisAddr  string `yaml:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type EventBusConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Compress      bool   `yaml:"compress"`
}

type ServerConfig struct {
	APIPort     int `yaml:"api_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			ChunkBitShift:       6,
			TickRate:            20,
			RandomTicksPerChunk: 64,
			Parallelism:         1,
			LightPasses:         4,
			LightEveryTicks:     10,
		},
		World: WorldConfig{
			Generator:     "terrain",
			PreloadRadius: 1,
		},
		Storage: StorageConfig{
			Kind:       "memory",
			Path:       "data/chunks",
			TTLSeconds: 600,
		},
		EventBus: EventBusConfig{
			SubjectPrefix: "sandworld.chunk",
			Compress:      true,
		},
		Telemetry: TelemetryConfig{
			Service: "sandworld",
		},
		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "info",
		},
	}
}

// GetAPIPort возвращает порт REST API: config -> env -> default
func (s *ServerConfig) GetAPIPort() int {
	return getIntWithEnvFallback(s.APIPort, "SANDWORLD_API_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus метрик
func (s *ServerConfig) GetMetricsPort() int {
	return getIntWithEnvFallback(s.MetricsPort, "SANDWORLD_METRICS_PORT", 2112)
}

// GetTickRate возвращает частоту тиков в секунду
func (s *SimulationConfig) GetTickRate() int {
	return getIntWithEnvFallback(s.TickRate, "SANDWORLD_TICK_RATE", 20)
}

// GetParallelism возвращает число воркеров основной фазы тика
func (s *SimulationConfig) GetParallelism() int {
	return getIntWithEnvFallback(s.Parallelism, "SANDWORLD_PARALLELISM", 1)
}

// TickInterval возвращает период тика
func (s *SimulationConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.GetTickRate())
}

// GetNATSURL возвращает адрес NATS; пустая строка отключает публикацию
func (e *EventBusConfig) GetNATSURL() string {
	return getStringWithEnvFallback(e.NATSURL, "SANDWORLD_NATS_URL", "")
}

// GetRedisAddr возвращает адрес Redis
func (s *StorageConfig) GetRedisAddr() string {
	return getStringWithEnvFallback(s.RedisAddr, "SANDWORLD_REDIS_ADDR", "localhost:6379")
}

// TTL возвращает время жизни выгруженного чанка в Redis
func (s *StorageConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	var errs []error
	if s := c.Simulation.ChunkBitShift; s < 2 || s > 10 {
		errs = append(errs, fmt.Errorf("simulation.chunk_bitshift=%d вне диапазона 2..10", s))
	}
	if c.Simulation.TickRate < 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_rate=%d должен быть положительным", c.Simulation.TickRate))
	}
	if c.Simulation.LightPasses < 0 {
		errs = append(errs, fmt.Errorf("simulation.light_passes=%d не может быть отрицательным", c.Simulation.LightPasses))
	}
	if c.Simulation.RandomTicksPerChunk < 0 {
		errs = append(errs, fmt.Errorf("simulation.random_ticks_per_chunk=%d не может быть отрицательным", c.Simulation.RandomTicksPerChunk))
	}
	switch c.Storage.Kind {
	case "", "none", "memory", "badger", "redis":
	default:
		errs = append(errs, fmt.Errorf("неизвестный storage.kind %q", c.Storage.Kind))
	}
	return errors.Join(errs...)
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV SANDWORLD_CONFIG; без файла возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("SANDWORLD_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
