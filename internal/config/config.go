package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
// Нулевые поля заменяются значениями из окружения или значениями по умолчанию.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed        int64  `yaml:"seed"`
	Prototypes  string `yaml:"prototypes"`
	SpawnRadius int    `yaml:"spawn_radius"` // радиус в чанках, генерируемый для нового мира
	TickRate    int    `yaml:"tick_rate"`    // тиков в секунду
}

type StorageConfig struct {
	DataDir         string `yaml:"data_dir"`
	IndexPath       string `yaml:"index_path"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// TelemetryConfig - экспорт трасс OpenTelemetry
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port OTLP HTTP; пустой - localhost:4318
}

// GetServiceName возвращает имя сервиса для трасс
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "FACTORY_SERVICE_NAME", "factory-world")
}

// GetTickRate возвращает частоту тиков с поддержкой fallback значений
func (w *WorldConfig) GetTickRate() int {
	return getIntWithEnvFallback(w.TickRate, "FACTORY_TICK_RATE", 60)
}

// GetTickInterval возвращает длительность одного тика
func (w *WorldConfig) GetTickInterval() time.Duration {
	return time.Second / time.Duration(w.GetTickRate())
}

// GetPrototypes возвращает путь к файлу прототипов
func (w *WorldConfig) GetPrototypes() string {
	return getStringWithEnvFallback(w.Prototypes, "FACTORY_PROTOTYPES", "data/prototypes.yaml")
}

// GetSpawnRadius возвращает радиус стартовой генерации
func (w *WorldConfig) GetSpawnRadius() int {
	if w.SpawnRadius > 0 {
		return w.SpawnRadius
	}
	return 2
}

// GetDataDir возвращает каталог данных мира
func (s *StorageConfig) GetDataDir() string {
	return getStringWithEnvFallback(s.DataDir, "FACTORY_DATA_DIR", "data/world")
}

// GetIndexPath возвращает путь к индексу сохранений, по умолчанию внутри каталога данных
func (s *StorageConfig) GetIndexPath() string {
	if s.IndexPath != "" {
		return s.IndexPath
	}
	return filepath.Join(s.GetDataDir(), "saves.db")
}

// GetAutosaveInterval возвращает период автосохранения. 0 отключает автосохранение.
func (s *StorageConfig) GetAutosaveInterval() time.Duration {
	if s.AutosaveSeconds < 0 {
		return 0
	}
	return time.Duration(getIntWithEnvFallback(s.AutosaveSeconds, "FACTORY_AUTOSAVE_SECONDS", 300)) * time.Second
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getIntWithEnvFallback(s.MetricsPort, "FACTORY_METRICS_PORT", 2112)
}

// GetLevel возвращает уровень логирования консоли
func (l *LogConfig) GetLevel() string {
	return getStringWithEnvFallback(l.Level, "FACTORY_LOG_LEVEL", "info")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
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

// Load читает YAML файл конфигурации.
// Если path == "", путь берётся из ENV FACTORY_CONFIG; без файла возвращается пустой
// конфиг, все значения которого берутся из окружения и значений по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FACTORY_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate проверяет значения, которые нельзя исправить подстановкой по умолчанию
func (c *Config) Validate() error {
	if c.World.TickRate < 0 || c.World.TickRate > 1000 {
		return fmt.Errorf("частота тиков %d вне диапазона 1..1000", c.World.TickRate)
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("неверный порт метрик %d", c.Server.MetricsPort)
	}
	return nil
}
