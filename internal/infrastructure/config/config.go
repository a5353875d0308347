package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Scheduler interval bounds
const (
	MinSchedulerInterval     = time.Minute
	MaxSchedulerInterval     = time.Hour
	DefaultSchedulerInterval = 10 * time.Minute
)

// EnvPrefix is prepended to every environment override, e.g. PORTAL_SIESA_CONNI_TOKEN
const EnvPrefix = "PORTAL"

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Siesa     SiesaConfig     `mapstructure:"siesa"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// IsProduction reports whether the stricter production checks apply
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig selects postgres (host settings) or sqlite (Path)
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// lifetimes are in minutes
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig verifies admin bearer tokens
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// SchedulerConfig drives the periodic sync and notify passes
type SchedulerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	SyncEnabled   bool          `mapstructure:"sync_enabled"`
	NotifyEnabled bool          `mapstructure:"notify_enabled"`
	RunOnStart    bool          `mapstructure:"run_on_start"`
	// DistributedLock serialises sync passes across replicas through Redis
	DistributedLock bool          `mapstructure:"distributed_lock"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// SiesaConfig points at the ERP reporting API and its page cursor
type SiesaConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ConniKey     string        `mapstructure:"conni_key"`
	ConniToken   string        `mapstructure:"conni_token"`
	BaselinePage int           `mapstructure:"baseline_page"`
	MaxPage      int           `mapstructure:"max_page"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Timezone     string        `mapstructure:"timezone"`
	CursorStore  string        `mapstructure:"cursor_store"` // memory, redis
	CursorKey    string        `mapstructure:"cursor_key"`
}

// Location returns the ERP timezone, UTC when the zone is unknown
func (s *SiesaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type WhatsAppConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	PortalURL       string        `mapstructure:"portal_url"`
	PurchasingPhone string        `mapstructure:"purchasing_phone"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultRegion   string        `mapstructure:"default_region"`
}

// ArchiveConfig stores raw ERP batches in S3 or MinIO
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	Prefix          string `mapstructure:"prefix"`
}

// TelemetryConfig covers OTLP traces, metrics and logs plus Pyroscope
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"`
	DBTraceEnabled    bool    `mapstructure:"db_trace_enabled"`
	// DBLogFullSQL puts bound query values in spans
	DBLogFullSQL bool `mapstructure:"db_log_full_sql"`

	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled     bool          `mapstructure:"logs_enabled"`

	ProfilingEnabled       bool   `mapstructure:"profiling_enabled"`
	ProfilingServerAddress string `mapstructure:"profiling_server_address"`
}

// defaults registers every key, so environment overrides reach Unmarshal
// even when no config file sets them.
var defaults = map[string]any{
	"app.name": "supplier-portal",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "portal",
	"database.sslmode":            "disable",
	"database.path":               "portal.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.log_level":          "warn",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret": "",
	"jwt.issuer": "supplier-portal",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     "15s",
	"http.write_timeout":    "2m",
	"http.idle_timeout":     "60s",
	"http.max_header_bytes": 1 << 20,
	"http.trusted_proxies":  []string{},

	"scheduler.enabled":          true,
	"scheduler.interval":         DefaultSchedulerInterval.String(),
	"scheduler.sync_enabled":     true,
	"scheduler.notify_enabled":   true,
	"scheduler.run_on_start":     true,
	"scheduler.distributed_lock": false,
	"scheduler.lock_ttl":         "2m",

	"siesa.base_url":      "",
	"siesa.conni_key":     "",
	"siesa.conni_token":   "",
	"siesa.baseline_page": 1360,
	"siesa.max_page":      5000,
	"siesa.timeout":       "30s",
	"siesa.timezone":      "America/Bogota",
	"siesa.cursor_store":  "memory",
	"siesa.cursor_key":    "siesa:frontier_page",

	"whatsapp.base_url":         "",
	"whatsapp.token":            "",
	"whatsapp.portal_url":       "",
	"whatsapp.purchasing_phone": "",
	"whatsapp.timeout":          "15s",
	"whatsapp.default_region":   "CO",

	"archive.enabled":           false,
	"archive.endpoint":          "",
	"archive.region":            "us-east-1",
	"archive.bucket":            "",
	"archive.access_key_id":     "",
	"archive.secret_access_key": "",
	"archive.use_path_style":    false,
	"archive.prefix":            "siesa",

	"telemetry.enabled":                  false,
	"telemetry.collector_endpoint":       "localhost:4317",
	"telemetry.sampling_ratio":           1.0,
	"telemetry.service_name":             "supplier-portal",
	"telemetry.insecure":                 false,
	"telemetry.db_trace_enabled":         true,
	"telemetry.db_log_full_sql":          false,
	"telemetry.metrics_enabled":          false,
	"telemetry.metrics_interval":         "60s",
	"telemetry.logs_enabled":             false,
	"telemetry.profiling_enabled":        false,
	"telemetry.profiling_server_address": "",
}

// Load reads config.toml from the working directory or /app, then applies
// PORTAL_ environment overrides on top of the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate returns every problem found, joined
func (c *Config) validate() error {
	return errors.Join(
		c.Database.validate(c.App.IsProduction()),
		c.Scheduler.validate(),
		c.Siesa.validate(),
		c.Archive.validate(),
		c.Telemetry.validate(c.App.IsProduction()),
		c.productionCredentials(),
	)
}

func (d *DatabaseConfig) validate(production bool) error {
	var errs []error
	switch d.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", d.Driver))
	}
	switch {
	case d.MaxOpenConns <= 0:
		errs = append(errs, errors.New("database.max_open_conns must be positive"))
	case d.MaxIdleConns < 0:
		errs = append(errs, errors.New("database.max_idle_conns cannot be negative"))
	case d.MaxIdleConns > d.MaxOpenConns:
		errs = append(errs, fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			d.MaxIdleConns, d.MaxOpenConns))
	}
	if production && d.Driver == "postgres" {
		if d.Password == "" {
			errs = append(errs, errors.New("database.password is required in production"))
		}
		if d.SSLMode == "disable" {
			errs = append(errs, errors.New("database.sslmode cannot be 'disable' in production"))
		}
	}
	return errors.Join(errs...)
}

func (s *SchedulerConfig) validate() error {
	if s.Interval < MinSchedulerInterval || s.Interval > MaxSchedulerInterval {
		return fmt.Errorf("scheduler.interval must be between %s and %s, got %s",
			MinSchedulerInterval, MaxSchedulerInterval, s.Interval)
	}
	if s.DistributedLock && s.LockTTL < time.Second {
		return fmt.Errorf("scheduler.lock_ttl must be at least 1s, got %s", s.LockTTL)
	}
	return nil
}

func (s *SiesaConfig) validate() error {
	var errs []error
	if s.BaselinePage < 1 || s.BaselinePage >= s.MaxPage {
		errs = append(errs, fmt.Errorf("siesa.baseline_page (%d) must be positive and below siesa.max_page (%d)",
			s.BaselinePage, s.MaxPage))
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("siesa.timezone %q is not a valid IANA zone: %w", s.Timezone, err))
	}
	if s.CursorStore != "memory" && s.CursorStore != "redis" {
		errs = append(errs, fmt.Errorf("siesa.cursor_store must be memory or redis, got %q", s.CursorStore))
	}
	return errors.Join(errs...)
}

func (a *ArchiveConfig) validate() error {
	if a.Enabled && a.Bucket == "" {
		return errors.New("archive.bucket is required when archive.enabled is true")
	}
	return nil
}

func (t *TelemetryConfig) validate(production bool) error {
	var errs []error
	if t.SamplingRatio < 0 || t.SamplingRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %g", t.SamplingRatio))
	}
	if t.ProfilingEnabled && t.ProfilingServerAddress == "" {
		errs = append(errs, errors.New("telemetry.profiling_server_address is required when profiling is enabled"))
	}
	if production && t.DBLogFullSQL {
		errs = append(errs, errors.New("telemetry.db_log_full_sql must be false in production"))
	}
	return errors.Join(errs...)
}

// productionCredentials requires secrets for the workers that are switched on
func (c *Config) productionCredentials() error {
	if !c.App.IsProduction() {
		return nil
	}
	var errs []error
	if c.Scheduler.SyncEnabled && (c.Siesa.BaseURL == "" || c.Siesa.ConniKey == "" || c.Siesa.ConniToken == "") {
		errs = append(errs, errors.New("siesa.base_url, siesa.conni_key and siesa.conni_token are required in production"))
	}
	if c.Scheduler.NotifyEnabled && (c.WhatsApp.BaseURL == "" || c.WhatsApp.Token == "") {
		errs = append(errs, errors.New("whatsapp.base_url and whatsapp.token are required in production"))
	}
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("jwt.secret must be at least 32 characters in production"))
	}
	return errors.Join(errs...)
}

// DSN returns the sqlite file path, or a postgres URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.hostPort(),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (d *DatabaseConfig) hostPort() string {
	return d.Host + ":" + strconv.Itoa(d.Port)
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}
