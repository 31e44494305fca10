package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/sandworld/internal/api"
	"github.com/annel0/sandworld/internal/app"
	"github.com/annel0/sandworld/internal/config"
	"github.com/annel0/sandworld/internal/eventbus"
	"github.com/annel0/sandworld/internal/light"
	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/metrics"
	"github.com/annel0/sandworld/internal/observability"
	"github.com/annel0/sandworld/internal/protocol"
	"github.com/annel0/sandworld/internal/storage"
	"github.com/annel0/sandworld/internal/world"
	"github.com/annel0/sandworld/internal/world/block"
	"github.com/annel0/sandworld/internal/worldgen"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или SANDWORLD_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("server", cfg.Logging.Dir); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	level := logging.ParseLevel(cfg.Logging.Level)
	logging.GetLoggerManager().Configure(cfg.Logging.Dir != "", level)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🏖️ Запуск sandworld: чанк %d, %d тиков/с", 1<<cfg.Simulation.ChunkBitShift, cfg.Simulation.GetTickRate())

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	service := cfg.Telemetry.Service
	shutdownTelemetry, err := observability.InitTelemetry(ctx, service, cfg.Telemetry.Enabled)
	if err != nil {
		return fmt.Errorf("инициализация телеметрии: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(sctx)
	}()

	// === ТИПЫ БЛОКОВ И ГЕНЕРАТОР ===
	types, err := blockTypes(cfg.World.Catalog)
	if err != nil {
		return err
	}
	gen, err := worldgen.New(cfg.World.Generator, cfg.Simulation.Seed)
	if err != nil {
		return err
	}

	// === ХРАНИЛИЩЕ И ШИНА ===
	codec, err := protocol.NewCodec(cfg.EventBus.Compress)
	if err != nil {
		return fmt.Errorf("создание кодека: %w", err)
	}
	defer codec.Close()

	store, err := storage.Open(cfg.Storage, codec)
	if err != nil {
		return fmt.Errorf("открытие хранилища: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	registry := prometheus.NewRegistry()
	serverMetrics := metrics.NewServerMetrics()
	registry.MustRegister(metrics.NewProcessCollector(service, serverMetrics))
	tickMetrics := metrics.NewTickMetrics(service, registry)

	bus := eventbus.NewMemoryBus(1024)
	defer bus.Close()
	if sub, err := eventbus.StartLoggingListener(bus); err == nil {
		defer sub.Unsubscribe()
	}
	exporter := eventbus.NewMetricsExporter(bus, registry)
	exporter.Start(5 * time.Second)
	defer exporter.Stop()

	handlers := eventbus.Multi{eventbus.NewChunkPublisher(bus, codec, service)}
	if url := cfg.EventBus.GetNATSURL(); url != "" {
		nb, err := eventbus.NewNATSBus(url, cfg.EventBus.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("подключение к NATS: %w", err)
		}
		defer nb.Close()
		handlers = append(handlers, eventbus.NewChunkPublisher(nb, codec, service))
		logging.Info("📡 Снимки чанков публикуются в NATS %s (%s.>)", url, cfg.EventBus.SubjectPrefix)
	}

	// === МИР ===
	opts := world.Options{
		ChunkBitShift:       uint(cfg.Simulation.ChunkBitShift),
		RandomTicksPerChunk: cfg.Simulation.RandomTicksPerChunk,
		Parallelism:         cfg.Simulation.GetParallelism(),
		Seed:                cfg.Simulation.Seed,
		Generator:           gen,
		Handler:             handlers,
	}
	if store != nil {
		opts.Cache = store
	}
	w := world.New(opts)
	if err := w.RegisterBlockTypes(types...); err != nil {
		return err
	}
	if err := w.Init(); err != nil {
		return err
	}

	var engine *light.Engine
	if cfg.Simulation.LightPasses > 0 {
		engine = light.NewEngine(cfg.Simulation.LightPasses, cfg.Simulation.GetParallelism())
	}
	runner := app.NewRunner(w, app.RunnerOptions{
		TickInterval:    cfg.Simulation.TickInterval(),
		LightEveryTicks: cfg.Simulation.LightEveryTicks,
		Light:           engine,
		Metrics:         tickMetrics,
	})
	if err := runner.LoadArea(0, 0, cfg.World.PreloadRadius); err != nil {
		return fmt.Errorf("загрузка стартовой области: %w", err)
	}

	// === СЕРВИСЫ ===
	rest := api.NewRestServer(runner, api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetAPIPort()),
		Service:  service,
		Codec:    codec,
		Registry: registry,
		Server:   serverMetrics,
	})
	if err := rest.Start(); err != nil {
		return fmt.Errorf("запуск REST API: %w", err)
	}

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Сервер метрик: %v", err)
		}
	}()

	if err := runner.Start(ctx); err != nil {
		return err
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", cfg.Server.GetAPIPort())
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, остановка...")

	// === GRACEFUL SHUTDOWN ===
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rest.Stop(sctx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	_ = metricsSrv.Shutdown(sctx)
	runner.Stop()
	return nil
}

// blockTypes возвращает стандартный набор или каталог из YAML
func blockTypes(path string) ([]*world.BlockType, error) {
	if path == "" {
		return block.Standard(), nil
	}
	cat, err := block.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	types, err := cat.Build()
	if err != nil {
		return nil, fmt.Errorf("каталог %s: %w", path, err)
	}
	logging.Info("Загружен каталог блоков %s: %d типов", path, len(types))
	return types, nil
}
