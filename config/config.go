package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
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

var basePathPattern = regexp.MustCompile(`^(/[A-Za-z0-9._~-]+)+$`)

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Environment     string        `mapstructure:"environment"`
	BasePath        string        `mapstructure:"base_path"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MonitorConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type WebhookConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Rate             float64       `mapstructure:"rate"`
	Burst            int           `mapstructure:"burst"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AlertsConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	Attempts        int           `mapstructure:"attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	Webhook         WebhookConfig `mapstructure:"webhook"`
	SMTP            SMTPConfig    `mapstructure:"smtp"`
	Journal         JournalConfig `mapstructure:"journal"`
}

type MetricsConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type ReporterConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Reporter ReporterConfig `mapstructure:"reporter"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("monitor.grace_period", "5s")

	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", true)

	v.SetDefault("alerts.queue_size", 256)
	v.SetDefault("alerts.attempts", 1)
	v.SetDefault("alerts.retry_backoff", "1s")
	v.SetDefault("alerts.delivery_timeout", "10s")

	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.timeout", "5s")
	v.SetDefault("alerts.webhook.rate", 10.0)
	v.SetDefault("alerts.webhook.burst", 5)
	v.SetDefault("alerts.webhook.failure_threshold", 5)
	v.SetDefault("alerts.webhook.reset_timeout", "30s")

	v.SetDefault("alerts.smtp.enabled", false)
	v.SetDefault("alerts.smtp.host", "")
	v.SetDefault("alerts.smtp.port", 587)
	v.SetDefault("alerts.smtp.username", "")
	v.SetDefault("alerts.smtp.password", "")
	v.SetDefault("alerts.smtp.from", "")

	v.SetDefault("alerts.journal.enabled", false)
	v.SetDefault("alerts.journal.path", "alerts.db")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.buffer_size", 1000)

	v.SetDefault("reporter.interval", "15s")
}

// Load reads config.yaml from ./config or the working directory, or the file
// at path when it is non-empty, and overlays environment variables
// (server.address becomes SERVER_ADDRESS).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Monitor),
		validation.Field(&c.Logging),
		validation.Field(&c.Alerts),
		validation.Field(&c.Metrics),
		validation.Field(&c.Reporter),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&c.BasePath,
			validation.Match(basePathPattern).Error("must look like /api or /api/v1"),
		),
		validation.Field(&c.ReadTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.WriteTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ShutdownTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

func (c MonitorConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.GracePeriod, validation.Min(time.Duration(0))),
	)
}

func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (c AlertsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.QueueSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Attempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.RetryBackoff, validation.Min(time.Duration(0))),
		validation.Field(&c.DeliveryTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Webhook),
		validation.Field(&c.SMTP),
		validation.Field(&c.Journal),
	)
}

func (c WebhookConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL,
			validation.When(c.Enabled, validation.Required, validation.By(validateServerURL)),
		),
		validation.Field(&c.Timeout, validation.When(c.Enabled, validation.Required, validation.Min(time.Millisecond))),
		validation.Field(&c.Rate, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.Rate > 0, validation.Required, validation.Min(1))),
		validation.Field(&c.FailureThreshold, validation.When(c.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&c.ResetTimeout, validation.When(c.Enabled, validation.Required, validation.Min(time.Millisecond))),
	)
}

func (c SMTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.When(c.Enabled, validation.Required, is.Host)),
		validation.Field(&c.Port, validation.When(c.Enabled, validation.Required, validation.Min(1), validation.Max(65535))),
		validation.Field(&c.From, validation.When(c.Enabled, validation.Required, is.EmailFormat)),
		validation.Field(&c.Password, validation.When(c.Username != "", validation.Required)),
	)
}

func (c JournalConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

func (c MetricsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BufferSize, validation.When(c.Enabled, validation.Required, validation.Min(1))),
	)
}

func (c ReporterConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Required, validation.Min(10*time.Millisecond)),
	)
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

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return nil
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
