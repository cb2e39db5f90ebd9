package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

// Config es la configuración completa del proceso.
// Se carga desde YAML (opcional) y luego se aplican overrides por env.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Dispenser DispenserConfig `yaml:"dispenser"`
	Notifier  NotifierConfig  `yaml:"notifier"`
}

type HTTPConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	App    string `yaml:"app"`
}

// StorageConfig:
//   - driver "memory": sin persistencia (dev/tests)
//   - driver "postgres": requiere DSN
//   - driver "sqlite": requiere Path
type StorageConfig struct {
	Driver      string   `yaml:"driver"`
	DSN         string   `yaml:"dsn"`
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout"`
}

type ScheduleConfig struct {
	// Timezone IANA con la que se interpretan fechas de calendario (cupo diario, start/end).
	Timezone string `yaml:"timezone"`
}

// JobsConfig usa specs de robfig/cron (acepta segundos opcionales y descriptores como "@every 1m").
type JobsConfig struct {
	Enabled          bool   `yaml:"enabled"`
	RefreshSpec      string `yaml:"refresh_spec"`
	RemindersSpec    string `yaml:"reminders_spec"`
	GenerateSpec     string `yaml:"generate_spec"`
	GenerateLookback int    `yaml:"generate_lookback_days"`
	GenerateAhead    int    `yaml:"generate_ahead_days"`
}

// DispenserConfig:
//   - driver "memory": dispensador simulado en memoria
//   - driver "http": dispositivo real vía HTTP (BaseURL requerido)
//   - driver "" o "none": sin dispensador
type DispenserConfig struct {
	Driver           string            `yaml:"driver"`
	BaseURL          string            `yaml:"base_url"`
	APIKey           string            `yaml:"api_key"`
	Timeout          Duration          `yaml:"timeout"`
	PillCapacity     int               `yaml:"pill_capacity"`
	LowPillThreshold int               `yaml:"low_pill_threshold"`
	Devices          map[string]string `yaml:"devices"` // userID -> deviceRef
}

type NotifierConfig struct {
	QueueSize       int      `yaml:"queue_size"`
	RatePerSec      int      `yaml:"rate_per_sec"`
	DefaultCooldown Duration `yaml:"default_cooldown"`
	MaxPerUser      int      `yaml:"max_per_user"`
}

// Default devuelve una config usable sin archivo.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(5 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			App:    "medication-schedule",
		},
		Storage: StorageConfig{
			Driver:      "memory",
			BusyTimeout: Duration(5 * time.Second),
		},
		Schedule: ScheduleConfig{
			Timezone: "Local",
		},
		Jobs: JobsConfig{
			Enabled:          true,
			RefreshSpec:      "0 */15 * * * *",
			RemindersSpec:    "@every 1m",
			GenerateSpec:     "0 10 2 * * *",
			GenerateLookback: 1,
			GenerateAhead:    7,
		},
		Dispenser: DispenserConfig{
			Driver:           "memory",
			Timeout:          Duration(5 * time.Second),
			PillCapacity:     7,
			LowPillThreshold: 20,
		},
		Notifier: NotifierConfig{
			QueueSize:       256,
			RatePerSec:      20,
			DefaultCooldown: Duration(10 * time.Minute),
			MaxPerUser:      500,
		},
	}
}

// Load lee el archivo YAML (si path != "") sobre los defaults y aplica env.
func Load(path string) (Config, error) {
	cfg := Default()

	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(b, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodifica YAML estricto (campos desconocidos = error) sobre cfg.
func Parse(b []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}
	return nil
}

// applyEnv mantiene los nombres de env que ya se usaban en dev:
// PORT, DB_DSN, LOG_LEVEL, LOG_FORMAT, APP_NAME.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.HTTP.Addr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("DB_DSN")); v != "" {
		cfg.Storage.DSN = v
		if cfg.Storage.Driver == "" || cfg.Storage.Driver == "memory" {
			cfg.Storage.Driver = "postgres"
		}
	}
	if v := strings.TrimSpace(os.Getenv("STORE_DRIVER")); v != "" {
		cfg.Storage.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Logging.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_NAME")); v != "" {
		cfg.Logging.App = v
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULE_TZ")); v != "" {
		cfg.Schedule.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("DISPENSER_URL")); v != "" {
		cfg.Dispenser.BaseURL = v
		cfg.Dispenser.Driver = "http"
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "memory", "":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("%w: storage.dsn required for postgres", ErrInvalidConfig)
		}
	case "sqlite":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("%w: storage.path required for sqlite", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(c.Dispenser.Driver)) {
	case "memory", "", "none":
	case "http":
		if strings.TrimSpace(c.Dispenser.BaseURL) == "" {
			return fmt.Errorf("%w: dispenser.base_url required for http", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown dispenser.driver %q", ErrInvalidConfig, c.Dispenser.Driver)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: schedule.timezone: %v", ErrInvalidConfig, err)
	}

	if c.Jobs.GenerateLookback < 0 || c.Jobs.GenerateAhead < 0 {
		return fmt.Errorf("%w: jobs generate window must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Location resuelve schedule.timezone ("" o "Local" = zona del proceso).
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Schedule.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}
