package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config struct to hold the configuration settings
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Remote        RemoteConfig        `yaml:"remote"`
	Transaction   TransactionConfig   `yaml:"transaction"`
	NATS          NATSConfig          `yaml:"nats"`
	JWT           JWTConfig           `yaml:"jwt"`
	Backup        BackupConfig        `yaml:"backup"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// StorageConfig selects the storage mode and the local backend.
type StorageConfig struct {
	Mode       string `yaml:"mode"`
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	QuotaBytes int64  `yaml:"quota_bytes"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RemoteConfig throttles the remote client.
type RemoteConfig struct {
	Rate    float64       `yaml:"rate"`
	Burst   int           `yaml:"burst"`
	Timeout time.Duration `yaml:"timeout"`
}

// TransactionConfig holds the default transaction timeout.
type TransactionConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig holds the cross-device notifier settings. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	NKeySeed      string `yaml:"nkey_seed"`
	UserJWT       string `yaml:"user_jwt"`
	AccountSeed   string `yaml:"account_seed"`
	DeviceID      string `yaml:"device_id"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// BackupConfig controls the auto-backup job.
type BackupConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	Keep     int           `yaml:"keep"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name"`
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Mode:       ModeLocal,
			Driver:     "sqlite",
			Path:       "matchops.db",
			QuotaBytes: 5 << 20,
		},
		Remote: RemoteConfig{
			Rate:    20,
			Burst:   40,
			Timeout: 10 * time.Second,
		},
		Transaction: TransactionConfig{Timeout: 30 * time.Second},
		NATS:        NATSConfig{SubjectPrefix: "matchops.sync"},
		JWT: JWTConfig{
			Issuer:     "matchops",
			DefaultTTL: 24 * time.Hour,
		},
		Backup: BackupConfig{
			Dir:  "backups",
			Keep: 7,
		},
		HTTP: HTTPConfig{
			Address:   ":8080",
			RateLimit: 10,
			RateBurst: 20,
		},
		Observability: ObservabilityConfig{
			ServiceName: "matchops",
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// LoadConfig loads the configuration from a YAML file, then applies
// environment overrides. A missing file leaves the defaults in place.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// --- OVERRIDE WITH ENV VARS IF PRESENT ---
func applyEnv(cfg *Config) error {
	var errs []error

	if v := os.Getenv("STORAGE_MODE"); v != "" {
		cfg.Storage.Mode = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("STORAGE_QUOTA_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid STORAGE_QUOTA_BYTES value: %w", err))
		}
		cfg.Storage.QuotaBytes = n
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("REMOTE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid REMOTE_RATE value: %w", err))
		}
		cfg.Remote.Rate = f
	}
	if v := os.Getenv("REMOTE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid REMOTE_TIMEOUT value: %w", err))
		}
		cfg.Remote.Timeout = d
	}
	if v := os.Getenv("TRANSACTION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid TRANSACTION_TIMEOUT value: %w", err))
		}
		cfg.Transaction.Timeout = d
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_SUBJECT_PREFIX"); v != "" {
		cfg.NATS.SubjectPrefix = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NKeySeed = v
	}
	if v := os.Getenv("NATS_USER_JWT"); v != "" {
		cfg.NATS.UserJWT = v
	}
	if v := os.Getenv("NATS_ACCOUNT_SEED"); v != "" {
		cfg.NATS.AccountSeed = v
	}
	if v := os.Getenv("DEVICE_ID"); v != "" {
		cfg.NATS.DeviceID = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("JWT_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid JWT_DEFAULT_TTL value: %w", err))
		}
		cfg.JWT.DefaultTTL = d
	}
	if v := os.Getenv("BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}
	if v := os.Getenv("BACKUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid BACKUP_INTERVAL value: %w", err))
		}
		cfg.Backup.Interval = d
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return errors.Join(errs...)
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case ModeLocal:
	case ModeRemote:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("remote storage mode requires DATABASE_URL or postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown storage mode %q", c.Storage.Mode)
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep must not be negative")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// RemoteEnabled reports whether remote storage is selected.
func (c *Config) RemoteEnabled() bool {
	return c.Storage.Mode == ModeRemote
}
