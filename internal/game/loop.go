package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/annel0/factory-world/internal/logging"
	"github.com/annel0/factory-world/internal/logic"
	"github.com/annel0/factory-world/internal/observability"
	"github.com/annel0/factory-world/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options задаёт параметры игрового цикла
type Options struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration // 0 - без автосохранения

	Storage *storage.WorldStorage // nil - мир не сохраняется
	Index   *storage.SaveIndex    // nil - сохранения не журналируются
	Metrics *Metrics              // nil - без метрик
	Tracer  trace.Tracer          // nil - глобальный трассировщик
}

// Loop выполняет тики симуляции в одной горутине. Любой доступ к миру
// извне цикла выполняется через Do, который сериализован с тиком.
type Loop struct {
	mu      sync.Mutex
	manager *logic.Manager
	opts    Options
	logger  *logging.Logger
}

// NewLoop создаёт игровой цикл над менеджером логики
func NewLoop(m *logic.Manager, opts Options) *Loop {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.Tracer()
	}
	return &Loop{
		manager: m,
		opts:    opts,
		logger:  logging.GetGameLogger(),
	}
}

// Step выполняет один тик
func (l *Loop) Step() logic.TickStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stepLocked()
}

func (l *Loop) stepLocked() logic.TickStats {
	start := time.Now()
	stats := l.manager.Update()
	if l.opts.Metrics != nil {
		l.opts.Metrics.observeTick(stats, l.manager.World().DeferralTimer.Pending(), time.Since(start))
	}
	return stats
}

// Do выполняет fn с эксклюзивным доступом к миру между тиками
func (l *Loop) Do(fn func(m *logic.Manager)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.manager)
}

// Tick возвращает текущий игровой тик
func (l *Loop) Tick() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.manager.World().GameTick()
}

// Save сохраняет мир между тиками и записывает сохранение в индекс
func (l *Loop) Save(ctx context.Context) (*storage.SaveResult, error) {
	if l.opts.Storage == nil {
		return nil, errors.New("хранилище не задано")
	}

	ctx, span := l.opts.Tracer.Start(ctx, "world.save")
	defer span.End()

	l.mu.Lock()
	res, err := l.opts.Storage.SaveWorld(l.manager.World())
	l.mu.Unlock()

	if l.opts.Metrics != nil {
		l.opts.Metrics.observeSave(res, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("world.id", res.Meta.ID.String()),
		attribute.Int64("world.tick", int64(res.Meta.GameTick)),
		attribute.Int("world.chunks", res.Meta.Chunks),
		attribute.Int("save.bytes", res.Bytes),
	)

	if l.opts.Index != nil {
		if _, err := l.opts.Index.RecordResult(ctx, res); err != nil {
			// Мир уже сохранён, потеря записи журнала не критична
			l.logger.Warn("не удалось записать сохранение в индекс: %v", err)
		}
	}
	return res, nil
}

// Run выполняет тики до отмены ctx. Тики, пропущенные из-за долгой обработки,
// не догоняются: time.Ticker отбрасывает лишние срабатывания.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.TickInterval)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if l.opts.AutosaveInterval > 0 && l.opts.Storage != nil {
		t := time.NewTicker(l.opts.AutosaveInterval)
		defer t.Stop()
		autosave = t.C
	}

	l.logger.Info("игровой цикл запущен: тик %v, автосохранение %v", l.opts.TickInterval, l.opts.AutosaveInterval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("игровой цикл остановлен на тике %d", l.Tick())
			return nil

		case <-ticker.C:
			l.Step()

		case <-autosave:
			res, err := l.Save(ctx)
			if err != nil {
				l.logger.Error("ошибка автосохранения: %v", err)
				continue
			}
			l.logger.Info("автосохранение: тик %d, %d чанков, %d байт за %v",
				res.Meta.GameTick, res.Meta.Chunks, res.Bytes, res.Duration)
		}
	}
}
