package game

import (
	"net/http"
	"time"

	"github.com/annel0/factory-world/internal/logic"
	"github.com/annel0/factory-world/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics инкапсулирует Prometheus-метрики симуляции.
// Метрики регистрируются в собственном реестре, чтобы несколько миров
// (например, в тестах) не конфликтовали в глобальном.
type Metrics struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	deferralsFired prometheus.Counter
	tickDuration   prometheus.Histogram
	gameTick       prometheus.Gauge
	logicChunks    prometheus.Gauge
	inserters      prometheus.Gauge
	belts          prometheus.Gauge
	pending        prometheus.Gauge

	saves        *prometheus.CounterVec
	saveBytes    prometheus.Gauge
	saveDuration prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в новом реестре
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "factory",
			Name:      "ticks_total",
			Help:      "Общее число выполненных игровых тиков.",
		}),
		deferralsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "factory",
			Name:      "deferrals_fired_total",
			Help:      "Число сработавших отложенных вызовов.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "factory",
			Name:      "tick_duration_seconds",
			Help:      "Длительность обработки одного тика.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		gameTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factory",
			Name:      "game_tick",
			Help:      "Текущий игровой тик.",
		}),
		logicChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factory",
			Name:      "logic_chunks",
			Help:      "Чанков с зарегистрированной логикой.",
		}),
		inserters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factory",
			Name:      "active_inserters",
			Help:      "Манипуляторов, обновлённых за последний тик.",
		}),
		belts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factory",
			Name:      "active_belts",
			Help:      "Сегментов ленты, обновлённых за последний тик.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factory",
			Name:      "deferrals_pending",
			Help:      "Ожидающих отложенных вызовов.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factory",
			Name:      "saves_total",
			Help:      "Сохранения мира по результату.",
		}, []string{"result"}),
		saveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factory",
			Name:      "save_bytes",
			Help:      "Объём сжатых чанков последнего сохранения.",
		}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "factory",
			Name:      "save_duration_seconds",
			Help:      "Длительность сохранения мира.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.ticks, m.deferralsFired, m.tickDuration, m.gameTick,
		m.logicChunks, m.inserters, m.belts, m.pending,
		m.saves, m.saveBytes, m.saveDuration,
		newProcessCollector(),
	)
	return m
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP-обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeTick(stats logic.TickStats, pending int, elapsed time.Duration) {
	m.ticks.Inc()
	m.deferralsFired.Add(float64(stats.DeferralsFired))
	m.tickDuration.Observe(elapsed.Seconds())
	m.gameTick.Set(float64(stats.Tick))
	m.logicChunks.Set(float64(stats.LogicChunks))
	m.inserters.Set(float64(stats.Inserters))
	m.belts.Set(float64(stats.Belts))
	m.pending.Set(float64(pending))
}

func (m *Metrics) observeSave(res *storage.SaveResult, err error) {
	if err != nil {
		m.saves.WithLabelValues("error").Inc()
		return
	}
	m.saves.WithLabelValues("ok").Inc()
	m.saveBytes.Set(float64(res.Bytes))
	m.saveDuration.Observe(res.Duration.Seconds())
}
