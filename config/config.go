package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/shelf/database"
	shelfhttp "github.com/sagarc03/shelf/http"
	"github.com/sagarc03/shelf/token"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the shelf server.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Database database.Config      `mapstructure:"database"`
	Auth     token.Config         `mapstructure:"auth"`
	CORS     shelfhttp.CORSConfig `mapstructure:"cors"`
	Metrics  MetricsConfig        `mapstructure:"metrics"`
	Log      LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"min=1"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// AutoMigrate creates missing tables or directories on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// StartupTimeout bounds how long the server waits for storage.
	StartupTimeout time.Duration `mapstructure:"startup_timeout" validate:"gt=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// flagKeys maps CLI flag names to the config keys they override.
var flagKeys = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"port":         "server.port",
	"auth-mode":    "auth.mode",
	"auto-migrate": "server.auto_migrate",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// bindFlags binds the flags the user actually set; unset flags must not
// mask values from files or the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		_ = v.BindPFlag(key, f)
	})
}

// setDefaults configures default values on the viper instance. Every key
// that should be settable from the environment needs a default here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_body_bytes", shelfhttp.DefaultMaxBodyBytes)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.auto_migrate", false)
	v.SetDefault("server.startup_timeout", "30s")

	v.SetDefault("database.type", database.TypeSQLite)
	v.SetDefault("database.dsn", "shelf.db")
	v.SetDefault("database.tables.items", "shelf_items")
	v.SetDefault("database.owner_index", "")
	v.SetDefault("database.endpoint", "")
	v.SetDefault("database.path_style", false)
	v.SetDefault("database.aws.region", "")
	v.SetDefault("database.aws.profile", "")
	v.SetDefault("database.aws.access_key_id", "")
	v.SetDefault("database.aws.secret_access_key", "")

	v.SetDefault("auth.mode", token.ModeNone)
	v.SetDefault("auth.region", "")
	v.SetDefault("auth.user_pool_id", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.token_uses", []string{token.UseID, token.UseAccess})
	v.SetDefault("auth.leeway", "30s")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.keys.file", "")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("metrics.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load builds the configuration from, lowest to highest precedence:
// defaults, configFiles merged left to right (./config.yaml when none are
// given), SHELF_* environment variables and explicitly set flags. flags may
// be nil.
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	readConfigFiles(v, configFiles)

	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readConfigFiles merges files into v. Unreadable files are logged and
// skipped so a bad path falls back to defaults and the environment.
func readConfigFiles(v *viper.Viper, files []string) {
	if len(files) == 0 {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "err", err)
		}
		return
	}

	for i, file := range files {
		v.SetConfigFile(file)

		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}
		if err := read(); err != nil {
			slog.Warn("error reading config file", "file", file, "err", err)
		}
	}
}

// Validate checks struct tags and the rules that span several fields.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if cfg.Database.Type != database.TypeDynamoDB && cfg.Database.Type != database.TypeFile {
		if err := cfg.Database.Tables.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	if cfg.Auth.Mode == token.ModeHMAC && len(cfg.Auth.Keys.Inline) == 0 && cfg.Auth.Keys.File == "" {
		return errors.New("validate config: auth mode hmac requires auth.keys.inline or auth.keys.file")
	}

	return nil
}
