package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Storage StorageConfig
	Log     LogConfig
	CORS    CORSConfig
	Queue   QueueConfig
	Worker  WorkerConfig
	Grid    GridConfig
	Merge   MergeConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "postgres" or "memory".
	Backend string `mapstructure:"backend"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	PollIntervalSecs  int `mapstructure:"poll_interval_secs"`
	Concurrency       int `mapstructure:"concurrency"`
	CacheSweepMinutes int `mapstructure:"cache_sweep_minutes"`
}

// WorkerConfig holds settings for the external extraction worker process.
type WorkerConfig struct {
	Command     string   `mapstructure:"command"`
	Args        []string `mapstructure:"args"`
	WorkDir     string   `mapstructure:"work_dir"`
	TimeoutSecs int      `mapstructure:"timeout_secs"`
}

// GridConfig holds validation grid settings.
type GridConfig struct {
	// ValidThreshold is the confidence score (0-100) at or above which a
	// freshly written cell is marked valid instead of pending.
	ValidThreshold float64 `mapstructure:"valid_threshold"`
}

// MergeConfig holds merge engine settings.
type MergeConfig struct {
	// ByIdentifier keys merged rows by the identifier column's value
	// instead of the pass-local record index.
	ByIdentifier bool `mapstructure:"by_identifier"`
}

// Load reads configuration from environment variables with the TESSERA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TESSERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "tessera")
	v.SetDefault("db.password", "tessera_secret")
	v.SetDefault("db.name", "tessera_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Storage defaults
	v.SetDefault("storage.backend", "postgres")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.cache_sweep_minutes", 30)

	// Worker defaults
	v.SetDefault("worker.command", "python3")
	v.SetDefault("worker.args", "extraction_runner.py")
	v.SetDefault("worker.work_dir", "")
	v.SetDefault("worker.timeout_secs", 600)

	// Grid defaults
	v.SetDefault("grid.valid_threshold", 70.0)

	// Merge defaults
	v.SetDefault("merge.by_identifier", false)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":               "TESSERA_SERVER_PORT",
		"server.read_timeout":       "TESSERA_SERVER_READ_TIMEOUT",
		"server.write_timeout":      "TESSERA_SERVER_WRITE_TIMEOUT",
		"server.environment":        "TESSERA_SERVER_ENVIRONMENT",
		"db.host":                   "TESSERA_DB_HOST",
		"db.port":                   "TESSERA_DB_PORT",
		"db.user":                   "TESSERA_DB_USER",
		"db.password":               "TESSERA_DB_PASSWORD",
		"db.name":                   "TESSERA_DB_NAME",
		"db.sslmode":                "TESSERA_DB_SSLMODE",
		"db.max_open":               "TESSERA_DB_MAX_OPEN",
		"db.max_idle":               "TESSERA_DB_MAX_IDLE",
		"storage.backend":           "TESSERA_STORAGE_BACKEND",
		"log.level":                 "TESSERA_LOG_LEVEL",
		"log.format":                "TESSERA_LOG_FORMAT",
		"cors.allowed_origins":      "TESSERA_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":  "TESSERA_QUEUE_POLL_INTERVAL_SECS",
		"queue.concurrency":         "TESSERA_QUEUE_CONCURRENCY",
		"queue.cache_sweep_minutes": "TESSERA_QUEUE_CACHE_SWEEP_MINUTES",
		"worker.command":            "TESSERA_WORKER_COMMAND",
		"worker.args":               "TESSERA_WORKER_ARGS",
		"worker.work_dir":           "TESSERA_WORKER_WORK_DIR",
		"worker.timeout_secs":       "TESSERA_WORKER_TIMEOUT_SECS",
		"grid.valid_threshold":      "TESSERA_GRID_VALID_THRESHOLD",
		"merge.by_identifier":       "TESSERA_MERGE_BY_IDENTIFIER",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if TESSERA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("TESSERA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Storage = StorageConfig{
		Backend: v.GetString("storage.backend"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs:  v.GetInt("queue.poll_interval_secs"),
		Concurrency:       v.GetInt("queue.concurrency"),
		CacheSweepMinutes: v.GetInt("queue.cache_sweep_minutes"),
	}
	// Worker args come as a comma-separated string from the environment
	var workerArgs []string
	for _, a := range strings.Split(v.GetString("worker.args"), ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			workerArgs = append(workerArgs, a)
		}
	}
	cfg.Worker = WorkerConfig{
		Command:     v.GetString("worker.command"),
		Args:        workerArgs,
		WorkDir:     v.GetString("worker.work_dir"),
		TimeoutSecs: v.GetInt("worker.timeout_secs"),
	}
	cfg.Grid = GridConfig{
		ValidThreshold: v.GetFloat64("grid.valid_threshold"),
	}
	cfg.Merge = MergeConfig{
		ByIdentifier: v.GetBool("merge.by_identifier"),
	}

	return cfg, nil
}
