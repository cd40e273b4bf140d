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

	"github.com/annel0/factory-world/internal/config"
	"github.com/annel0/factory-world/internal/game"
	"github.com/annel0/factory-world/internal/logging"
	"github.com/annel0/factory-world/internal/logic"
	"github.com/annel0/factory-world/internal/observability"
	"github.com/annel0/factory-world/internal/storage"
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $FACTORY_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Log.GetLevel())
	if err != nil {
		log.Fatalf("❌ Неверный уровень логирования: %v", err)
	}
	logOpts := logging.Options{Dir: cfg.Log.Dir, ConsoleLevel: level, FileLevel: logging.DEBUG}
	if err := logging.InitDefaultLogger(logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	logging.GetLoggerManager().Configure(logOpts)
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	logging.Info("🏭 Запуск симуляции фабрики...")

	reg, err := proto.LoadFile(cfg.World.GetPrototypes())
	if err != nil {
		return fmt.Errorf("загрузка прототипов: %w", err)
	}
	logging.Info("📦 Загружено %d прототипов из %s", reg.Len(), cfg.World.GetPrototypes())

	// === ХРАНИЛИЩЕ ===
	ws, err := storage.NewWorldStorage(cfg.Storage.GetDataDir())
	if err != nil {
		return fmt.Errorf("открытие хранилища: %w", err)
	}
	defer ws.Close()

	index, err := storage.OpenSaveIndex(cfg.Storage.GetIndexPath())
	if err != nil {
		return fmt.Errorf("открытие индекса сохранений: %w", err)
	}
	defer index.Close()

	// === МИР ===
	w := world.NewWorld()
	manager := logic.NewManager(w, reg)

	_, err = ws.LoadWorld(w, reg, manager.ResolveDeferral)
	switch {
	case errors.Is(err, storage.ErrWorldNotFound):
		gen, err := world.NewGenerator(cfg.World.Seed, reg, world.DefaultGeneratorTiles())
		if err != nil {
			return err
		}
		n := gen.GenerateArea(w, vec.Vec2{}, cfg.World.GetSpawnRadius())
		logging.Info("🌍 Создан новый мир %s: %d чанков, seed=%d", w.ID, n, cfg.World.Seed)
	case err != nil:
		return fmt.Errorf("загрузка мира: %w", err)
	default:
		manager.OnDeserialize()
	}

	// === МЕТРИКИ ===
	metrics := game.NewMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(context.Background(), cfg.Telemetry.GetServiceName(), cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ИГРОВОЙ ЦИКЛ ===
	loop := game.NewLoop(manager, game.Options{
		TickInterval:     cfg.World.GetTickInterval(),
		AutosaveInterval: cfg.Storage.GetAutosaveInterval(),
		Storage:          ws,
		Index:            index,
		Metrics:          metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loop.Run(ctx); err != nil {
		return err
	}

	// === GRACEFUL SHUTDOWN ===
	logging.Debug("Остановка сервисов...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	res, err := loop.Save(shutdownCtx)
	if err != nil {
		return fmt.Errorf("сохранение мира: %w", err)
	}
	logging.Info("💾 Мир сохранён: тик %d, %d чанков, %d байт", res.Meta.GameTick, res.Meta.Chunks, res.Bytes)
	return nil
}
