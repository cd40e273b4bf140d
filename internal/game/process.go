package game

import (
	"os"
	"time"

	"github.com/annel0/factory-world/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// processCollector снимает показатели процесса сервера в момент сбора метрик
type processCollector struct {
	start time.Time
	proc  *process.Process

	uptime *prometheus.Desc
	cpu    *prometheus.Desc
	rss    *prometheus.Desc
}

func newProcessCollector() *processCollector {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logging.Warn("показатели процесса недоступны: %v", err)
	}
	return &processCollector{
		start:  time.Now(),
		proc:   proc,
		uptime: prometheus.NewDesc("factory_process_uptime_seconds", "Время работы сервера.", nil, nil),
		cpu:    prometheus.NewDesc("factory_process_cpu_percent", "Загрузка CPU процессом.", nil, nil),
		rss:    prometheus.NewDesc("factory_process_resident_memory_bytes", "Резидентная память процесса.", nil, nil),
	}
}

func (c *processCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.uptime
	ch <- c.cpu
	ch <- c.rss
}

func (c *processCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, time.Since(c.start).Seconds())
	if c.proc == nil {
		return
	}

	if cpu, err := c.proc.CPUPercent(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, cpu)
	}
	if mem, err := c.proc.MemoryInfo(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.rss, prometheus.GaugeValue, float64(mem.RSS))
	}
}
