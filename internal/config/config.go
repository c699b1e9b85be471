package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/annel0/voxel-level/internal/cache"
	"github.com/annel0/voxel-level/internal/vec"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации voxelctl.
// Незаданные поля заполняются значениями Default().
type Config struct {
	Level     LevelConfig     `yaml:"level"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LevelConfig struct {
	Size     vec.Vec3 `yaml:"size"` // В чанках
	Seed     int64    `yaml:"seed"`
	Registry string   `yaml:"block_registry"` // YAML с дополнительными блоками
}

type StorageConfig struct {
	SavePath   string `yaml:"save_path"`
	ArchiveDir string `yaml:"archive_dir"`
	Compress   bool   `yaml:"compress"`
}

type ServerConfig struct {
	HTTPPort     int  `yaml:"http_port"`
	MetricsPort  int  `yaml:"metrics_port"`
	EnableWrites bool `yaml:"enable_writes"`

	// Если задан, запись требует токена редактора
	JWTSecret          string `yaml:"jwt_secret"`           // base64, не короче 32 байт
	EditorPasswordHash string `yaml:"editor_password_hash"` // bcrypt, для POST /api/token
}

// CacheConfig кеш чанков HTTP API
type CacheConfig struct {
	Enabled      bool `yaml:"enabled"`
	cache.Config `yaml:",inline"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // OTLP HTTP, host:port
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Level: LevelConfig{
			Size: vec.New(4, 2, 4),
			Seed: 12345,
		},
		Storage: StorageConfig{
			SavePath:   "level.yaml",
			ArchiveDir: "archive",
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-level",
			Endpoint:    "localhost:4318",
		},
	}
}

// GetHTTPPort возвращает порт HTTP API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "VOXEL_HTTP_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// GetJWTSecret возвращает секрет токенов: config -> env VOXEL_JWT_SECRET
func (s *ServerConfig) GetJWTSecret() string {
	if s.JWTSecret != "" {
		return s.JWTSecret
	}
	return os.Getenv("VOXEL_JWT_SECRET")
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG,
// а без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	s := c.Level.Size
	if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
		return fmt.Errorf("level.size должен быть положительным, получено %v", s)
	}
	if c.Storage.SavePath == "" {
		return fmt.Errorf("storage.save_path не задан")
	}
	return nil
}
