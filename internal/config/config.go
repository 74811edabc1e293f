// Package config builds the immutable daemon configuration from flags,
// CELERIX_PREFS_* environment variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/celerix-dev/celerix-prefs/internal/logger"
	"github.com/celerix-dev/celerix-prefs/internal/prefs"
	"github.com/celerix-dev/celerix-prefs/internal/store"
)

// EnvPrefix prefixes every environment variable, e.g. CELERIX_PREFS_HTTP_ADDR.
const EnvPrefix = "CELERIX_PREFS"

// Config is built once at startup and passed by value.
type Config struct {
	HTTPAddr    string
	LineAddr    string
	MetricsAddr string

	Backend string
	DataDir string

	// Category pins every request to one category when set.
	Category string
	PageSize int

	// TokenSecret enables token verification when set.
	TokenSecret   string
	TokenCacheTTL time.Duration

	DisableTLS bool

	LogLevel  zapcore.Level
	LogFormat string

	ShutdownTimeout time.Duration
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPAddr:        ":8888",
		LineAddr:        ":7001",
		MetricsAddr:     ":9102",
		Backend:         store.BackendFile,
		DataDir:         "./data",
		PageSize:        prefs.DefaultPageSize,
		TokenCacheTTL:   time.Minute,
		LogLevel:        zapcore.InfoLevel,
		LogFormat:       logger.FormatConsole,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Opt is a single command line option mirrored into viper.
type Opt struct {
	Flag    string
	Default any
	Desc    string
}

// Options returns the daemon's options with their defaults.
func Options() []Opt {
	d := Default()
	return []Opt{
		{"http-addr", d.HTTPAddr, "address of the HTTP API"},
		{"line-addr", d.LineAddr, "address of the TCP line protocol; empty disables it"},
		{"metrics-addr", d.MetricsAddr, "address serving /metrics and /healthz; empty disables it"},
		{"backend", d.Backend, fmt.Sprintf("document store backend (%s)", strings.Join(store.Backends, "|"))},
		{"data-dir", d.DataDir, "directory holding the store's files"},
		{"category", d.Category, "pin every request to a single category"},
		{"page-size", d.PageSize, "documents fetched per listing round-trip"},
		{"token-secret", d.TokenSecret, "HMAC secret for access tokens; empty disables tokens"},
		{"token-cache-ttl", d.TokenCacheTTL, "how long a verified token is remembered"},
		{"disable-tls", d.DisableTLS, "serve the line protocol without TLS"},
		{"log-level", d.LogLevel.String(), "log level (debug|info|warn|error)"},
		{"log-format", d.LogFormat, "log format (console|json)"},
		{"shutdown-timeout", d.ShutdownTimeout, "grace period for in-flight requests on shutdown"},
	}
}

// NewViper returns a viper instance reading CELERIX_PREFS_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	return v
}

// BindOptions adds opts to cmd's flags and registers them with v.
func BindOptions(cmd *cobra.Command, v *viper.Viper, opts []Opt) {
	for _, o := range opts {
		switch d := o.Default.(type) {
		case string:
			cmd.Flags().String(o.Flag, d, o.Desc)
		case int:
			cmd.Flags().Int(o.Flag, d, o.Desc)
		case bool:
			cmd.Flags().Bool(o.Flag, d, o.Desc)
		case time.Duration:
			cmd.Flags().Duration(o.Flag, d, o.Desc)
		default:
			panic(fmt.Errorf("unknown option type %T for %s", o.Default, o.Flag))
		}
		if err := v.BindPFlag(o.Flag, cmd.Flags().Lookup(o.Flag)); err != nil {
			panic(err)
		}
	}
}

// Load reads the bound options, and the config file if one is given, into
// a validated Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	c := Config{
		HTTPAddr:        v.GetString("http-addr"),
		LineAddr:        v.GetString("line-addr"),
		MetricsAddr:     v.GetString("metrics-addr"),
		Backend:         v.GetString("backend"),
		DataDir:         v.GetString("data-dir"),
		Category:        v.GetString("category"),
		PageSize:        v.GetInt("page-size"),
		TokenSecret:     v.GetString("token-secret"),
		TokenCacheTTL:   v.GetDuration("token-cache-ttl"),
		DisableTLS:      v.GetBool("disable-tls"),
		LogFormat:       v.GetString("log-format"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}
	if err := c.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case store.BackendMemory, store.BackendFile, store.BackendSqlite, store.BackendBolt:
	default:
		return fmt.Errorf("unknown backend %q (supported: %s)", c.Backend, strings.Join(store.Backends, ", "))
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("an HTTP address is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.Category != "" && (prefs.IsReserved(c.Category) || strings.Contains(c.Category, "/")) {
		return fmt.Errorf("invalid category %q", c.Category)
	}
	if c.TokenCacheTTL < 0 {
		return fmt.Errorf("token cache TTL must not be negative")
	}
	switch c.LogFormat {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
