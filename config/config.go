package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
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

const (
	ClipboardSystem = "system"
	ClipboardMemory = "memory"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type TargetConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
	// Page is an optional HTML file holding the panel; the built-in page is
	// used when empty.
	Page string `mapstructure:"page"`
}

type WaitConfig struct {
	Deadline string `mapstructure:"deadline"`
	Interval string `mapstructure:"interval"`
}

type ClipboardConfig struct {
	Backend string `mapstructure:"backend"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Target    TargetConfig    `mapstructure:"target"`
	Wait      WaitConfig      `mapstructure:"wait"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"address":   "server.address",
	"env":       "server.environment",
	"url":       "target.base_url",
	"timeout":   "target.timeout",
	"page":      "target.page",
	"deadline":  "wait.deadline",
	"interval":  "wait.interval",
	"clipboard": "clipboard.backend",
	"log-level": "logging.level",
}

// RegisterFlags adds the configuration flags to flags. Flags left unset do
// not override the config file or the environment.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a config file")
	flags.String("address", "", "listen address for serve mode")
	flags.String("env", "", "environment (dev, staging, prod)")
	flags.StringP("url", "u", "", "base URL of the monitored service")
	flags.String("timeout", "", "health request timeout")
	flags.String("page", "", "HTML page holding the panel")
	flags.String("deadline", "", "how long wait mode keeps polling")
	flags.String("interval", "", "delay between polls in wait mode")
	flags.String("clipboard", "", "clipboard backend (system, memory)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
}

func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("target.base_url", "")
	v.SetDefault("target.timeout", "5s")
	v.SetDefault("target.page", "")
	v.SetDefault("wait.deadline", "1m")
	v.SetDefault("wait.interval", "2s")
	v.SetDefault("clipboard.backend", ClipboardSystem)
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("logging.level", LogLevelInfo)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	configFile := ""
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		configFile, _ = flags.GetString("config")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", slog.String("file", v.ConfigFileUsed()))
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
		validation.Field(&c.Target,
			validation.Required,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TargetConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TargetConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.BaseURL,
						validation.Required,
						is.URL,
						validation.By(validateServerURL),
					),
					validation.Field(&tc.Timeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Wait,
			validation.Required,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WaitConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WaitConfig")
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.Deadline,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&wc.Interval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Clipboard,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(ClipboardConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ClipboardConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.Backend,
						validation.Required,
						validation.In(ClipboardSystem, ClipboardMemory),
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
					validation.Field(&mc.BufferSize,
						validation.Required,
						validation.Min(1),
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
	)
}

// TargetTimeout bounds a single health request.
func (c *Config) TargetTimeout() time.Duration {
	return mustDuration(c.Target.Timeout)
}

// WaitDeadline bounds the whole wait mode.
func (c *Config) WaitDeadline() time.Duration {
	return mustDuration(c.Wait.Deadline)
}

func (c *Config) WaitInterval() time.Duration {
	return mustDuration(c.Wait.Interval)
}

// mustDuration parses a duration that Validate has already accepted.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
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

func validatePositiveDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_nonpositive_duration", "must be greater than zero")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "server URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
