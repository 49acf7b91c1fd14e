package config

import (
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type WebSocketConfig struct {
	ReadLimit      int64    `mapstructure:"read_limit"`
	WriteTimeout   string   `mapstructure:"write_timeout"`
	PingInterval   string   `mapstructure:"ping_interval"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// DocumentSeed is a document preloaded into the in-memory store.
type DocumentSeed struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
}

// DocumentStoreConfig selects the document store. An empty DSN means the
// in-memory store, holding only the Documents listed here.
type DocumentStoreConfig struct {
	DSN       string         `mapstructure:"dsn"`
	MaxConns  int            `mapstructure:"max_conns"`
	Documents []DocumentSeed `mapstructure:"documents"`
}

// RelayConfig enables cross-instance fanout over Redis when RedisAddress is set.
type RelayConfig struct {
	RedisAddress     string `mapstructure:"redis_address"`
	ChannelPrefix    string `mapstructure:"channel_prefix"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket"`
	Auth          AuthConfig          `mapstructure:"auth"`
	DocumentStore DocumentStoreConfig `mapstructure:"document_store"`
	Relay         RelayConfig         `mapstructure:"relay"`
	HealthCheck   HealthCheckConfig   `mapstructure:"health_check"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":3001")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("websocket.read_limit", 1<<20)
	v.SetDefault("websocket.write_timeout", "5s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.allowed_origins", []string{})
	v.SetDefault("auth.secret", "")
	v.SetDefault("document_store.dsn", "")
	v.SetDefault("document_store.max_conns", 10)
	v.SetDefault("relay.redis_address", "")
	v.SetDefault("relay.channel_prefix", "collab:doc:")
	v.SetDefault("relay.failure_threshold", 5)
	v.SetDefault("relay.reset_timeout", "30s")
	v.SetDefault("health_check.interval", "10s")
	v.SetDefault("metrics.buffer_size", 1024)
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (server.address -> SERVER_ADDRESS) and validates the result.
// A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// RelayEnabled reports whether cross-instance fanout is configured.
func (c *Config) RelayEnabled() bool {
	return c.Relay.RedisAddress != ""
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.WebSocket,
			validation.Required,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WebSocketConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WebSocketConfig")
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.ReadLimit, validation.Required, validation.Min(int64(512))),
					validation.Field(&wc.WriteTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&wc.PingInterval, validation.Required, validation.By(validateDuration)),
					validation.Field(&wc.AllowedOrigins, validation.Each(is.URL)),
				)
			}),
		),
		validation.Field(&c.Auth,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AuthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AuthConfig")
				}
				rules := []validation.Rule{validation.Length(16, 0)}
				if c.Server.Environment == EnvProd {
					rules = append([]validation.Rule{validation.Required}, rules...)
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Secret, rules...),
				)
			}),
		),
		validation.Field(&c.DocumentStore,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DocumentStoreConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DocumentStoreConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.MaxConns, validation.Min(1)),
					validation.Field(&dc.Documents, validation.Each(validation.By(validateSeed))),
				)
			}),
		),
		validation.Field(&c.Relay,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RelayConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RelayConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.RedisAddress, validation.By(validateHostPort)),
					validation.Field(&rc.ChannelPrefix, validation.Required),
					validation.Field(&rc.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&rc.ResetTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
	)
}

// Duration parses a duration field that already passed validation.
func Duration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func validateSeed(value interface{}) error {
	seed, ok := value.(DocumentSeed)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DocumentSeed")
	}
	return validation.ValidateStruct(&seed,
		validation.Field(&seed.ID, validation.Required),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if addr == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}
