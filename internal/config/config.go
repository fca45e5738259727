// Package config resolves filterchain settings. Flags win over FILTERCHAIN_*
// environment variables, which win over a .filterchain.yaml file in the
// working directory (or the file named by --config).
package config

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Execution engines for the run command.
const (
	DriverSQLite   = "sqlite"
	DriverGorm     = "gorm-sqlite"
	DriverPostgres = "postgres"
)

// Accepted values, in the order they are listed in help and error text.
var (
	LogLevels  = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	LogFormats = []string{LogFormatText, LogFormatJSON}
	Drivers    = []string{DriverSQLite, DriverGorm, DriverPostgres}
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "FILTERCHAIN"

// Config keys. Each is also the flag name and, upper-cased with '-' as '_',
// the environment variable suffix.
const (
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
	keyQuiet     = "quiet"
	keyDBDriver  = "db-driver"
	keyDBDSN     = "db-dsn"
)

// Config holds resolved settings.
type Config struct {
	LogLevel  string `mapstructure:"log-level" json:"logLevel"`
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// Quiet forces the log level to error.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	DBDriver string `mapstructure:"db-driver" json:"dbDriver"`

	// DBDSN is a file path for the sqlite drivers and a connection URL or
	// key=value string for postgres.
	DBDSN string `mapstructure:"db-dsn" json:"dbDsn"`

	// ConfigFile is the file Load read, empty when none was found.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		DBDriver:  DriverSQLite,
	}
}

// Validate reports the first setting outside its accepted values.
func (c *Config) Validate() error {
	checks := []struct {
		what    string
		value   string
		allowed []string
	}{
		{"log level", c.LogLevel, LogLevels},
		{"log format", c.LogFormat, LogFormats},
		{"db driver", c.DBDriver, Drivers},
	}
	for _, ch := range checks {
		if !slices.Contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q: must be one of %s", ch.what, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	return nil
}

// EffectiveLogLevel is LogLevel, or error when Quiet is set.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}
	return c.LogLevel
}

// RedactedDSN returns DBDSN with any password replaced, for logging.
func (c *Config) RedactedDSN() string {
	if c.DBDSN == "" || c.DBDriver != DriverPostgres {
		return c.DBDSN
	}
	if u, err := url.Parse(c.DBDSN); err == nil && u.Scheme != "" {
		return u.Redacted()
	}

	fields := strings.Fields(c.DBDSN)
	for i, f := range fields {
		if k, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(k, "password") {
			fields[i] = k + "=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}

// normalize lower-cases the enumerated settings so "DEBUG" and "Postgres"
// are accepted.
func (c *Config) normalize() {
	for _, p := range []*string{&c.LogLevel, &c.LogFormat, &c.DBDriver} {
		*p = strings.ToLower(strings.TrimSpace(*p))
	}
}

// Load resolves the settings for cmd. configFile, when set, must exist;
// otherwise .filterchain.yaml in the working directory is read if present.
// Each call uses its own viper instance.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault(keyLogLevel, d.LogLevel)
	v.SetDefault(keyLogFormat, d.LogFormat)
	v.SetDefault(keyQuiet, d.Quiet)
	v.SetDefault(keyDBDriver, d.DBDriver)
	v.SetDefault(keyDBDSN, d.DBDSN)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		if cfg.ConfigFile != "" {
			return nil, fmt.Errorf("%s: %w", cfg.ConfigFile, err)
		}
		return nil, err
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName(".filterchain")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	err := v.ReadInConfig()
	if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// bindFlags binds the flags cmd can see: its own, and the persistent flags of
// every ancestor.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding flags of %s: %w", c.Name(), err)
		}
	}
	return nil
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the Config stored in ctx, or Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}
	return Default()
}
