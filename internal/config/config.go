// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

// Package config loads accounts service settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// command-line flags that were explicitly set. Secrets never live in the
// file; they come from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gobwas/glob"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/drgz/accounts/internal/auth"
)

// Default settings.
const (
	DefaultHTTPAddr        = "localhost:8080"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultLogFormat       = "json"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultSendTimeout     = 30 * time.Second
	DefaultConnectRetries  = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
)

// DefaultCORSOrigins returns the origins allowed when none are configured.
func DefaultCORSOrigins() []string {
	return []string{"http://localhost:8080", "https://studio.apollographql.com"}
}

// Config is the complete service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty"`

	Secrets Secrets `koanf:"-" json:"-"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" json:"addr,omitempty"`
	CORSOrigins     []string      `koanf:"cors_origins" json:"cors_origins,omitempty"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig tunes the initial connection attempt.
type DatabaseConfig struct {
	ConnectRetries uint64        `koanf:"connect_retries" json:"connect_retries,omitempty"`
	ConnectBackoff time.Duration `koanf:"connect_backoff" json:"connect_backoff,omitempty"`
}

// MailConfig holds account mail branding and delivery settings.
type MailConfig struct {
	From                 string        `koanf:"from" json:"from,omitempty"`
	FromName             string        `koanf:"from_name" json:"from_name,omitempty"`
	Domain               string        `koanf:"domain" json:"domain,omitempty"`
	Logo                 string        `koanf:"logo" json:"logo,omitempty"`
	Company              string        `koanf:"company" json:"company,omitempty"`
	RegisterSubject      string        `koanf:"register_subject" json:"register_subject,omitempty"`
	PasswordResetSubject string        `koanf:"password_reset_subject" json:"password_reset_subject,omitempty"`
	SendTimeout          time.Duration `koanf:"send_timeout" json:"send_timeout,omitempty"`
}

// Secrets are read from the environment only.
type Secrets struct {
	SecretKey     string `env:"SECRET_KEY"`
	DatabaseURL   string `env:"DATABASE_URL"`
	ElasticAPIKey string `env:"ELASTIC_API_KEY"`
}

// Settings converts the mail section to auth.MailSettings.
func (m MailConfig) Settings() auth.MailSettings {
	return auth.MailSettings{
		From:                 m.From,
		FromName:             m.FromName,
		Domain:               m.Domain,
		Logo:                 m.Logo,
		Company:              m.Company,
		RegisterSubject:      m.RegisterSubject,
		PasswordResetSubject: m.PasswordResetSubject,
	}
}

// Default returns the built-in configuration. CORS origins are filled in by
// Load when the file leaves them unset.
func Default() *Config {
	mail := auth.DefaultMailSettings()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            DefaultHTTPAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		Log:     LogConfig{Format: DefaultLogFormat, Level: DefaultLogLevel},
		Database: DatabaseConfig{
			ConnectRetries: DefaultConnectRetries,
			ConnectBackoff: DefaultConnectBackoff,
		},
		Mail: MailConfig{
			From:                 mail.From,
			FromName:             mail.FromName,
			Domain:               mail.Domain,
			Logo:                 mail.Logo,
			Company:              mail.Company,
			RegisterSubject:      mail.RegisterSubject,
			PasswordResetSubject: mail.PasswordResetSubject,
			SendTimeout:          DefaultSendTimeout,
		},
	}
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the flags in flags that were set. Secrets are read
// from the environment after loading envFiles; missing env files are ignored.
func Load(path string, flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode").Wrap(err)
	}
	if cfg.HTTP.CORSOrigins == nil {
		cfg.HTTP.CORSOrigins = DefaultCORSOrigins()
	}

	secrets, err := LoadSecrets(envFiles...)
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets
	return cfg, nil
}

// LoadSecrets reads Secrets from the environment after loading envFiles
// (".env" when none are given). Variables already set win over file values.
func LoadSecrets(envFiles ...string) (Secrets, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, oops.Code("CONFIG_ENV_FAILED").With("file", name).Wrap(err)
		}
	}

	var secrets Secrets
	if err := env.Parse(&secrets); err != nil {
		return Secrets{}, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}
	return secrets, nil
}

var (
	logFormats = []string{"json", "text"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// Validate checks the file and flag settings. Secrets are checked by
// Secrets.Validate since not every command needs them.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", "shutdown timeout must be positive")
	}
	for _, origin := range c.HTTP.CORSOrigins {
		if _, err := glob.Compile(origin); err != nil {
			return oops.Code("CONFIG_INVALID").
				With("field", "http.cors_origins").
				With("origin", origin).
				Wrapf(err, "invalid cors origin pattern")
		}
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid("log.format", "log format must be json or text")
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return invalid("log.level", "log level must be debug, info, warn or error")
	}
	if c.Database.ConnectBackoff <= 0 {
		return invalid("database.connect_backoff", "connect backoff must be positive")
	}
	if c.Mail.From == "" {
		return invalid("mail.from", "mail sender is required")
	}
	if u, err := url.Parse(c.Mail.Domain); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("mail.domain", "mail domain must be an absolute URL")
	}
	if c.Mail.SendTimeout <= 0 {
		return invalid("mail.send_timeout", "send timeout must be positive")
	}
	return nil
}

// Validate checks the secrets every database-backed command needs.
// requireSigning also demands SECRET_KEY.
func (s Secrets) Validate(requireSigning bool) error {
	if s.DatabaseURL == "" {
		return invalid("DATABASE_URL", "DATABASE_URL is required")
	}
	if requireSigning && s.SecretKey == "" {
		return invalid("SECRET_KEY", "SECRET_KEY is required")
	}
	return nil
}

func invalid(field, msg string) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf("%s", msg)
}
