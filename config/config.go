package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"attendance/models"
)

type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Auth     AuthConfig        `mapstructure:"auth"`
	Local    DatabaseConfig    `mapstructure:"local"`
	Remote   RemoteConfig      `mapstructure:"remote"`
	Sync     SyncConfig        `mapstructure:"sync"`
	Session  SessionConfig     `mapstructure:"session"`
	Breaks   map[string]int    `mapstructure:"breaks"`
	Holidays HolidayConfig     `mapstructure:"holidays"`
	Org      OrgConfig         `mapstructure:"org"`
	Roster   []models.Employee `mapstructure:"roster"`
	Log      LogConfig         `mapstructure:"log"`
	Report   ReportConfig      `mapstructure:"report"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
}

// DatabaseConfig selects a gorm dialector. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

// RemoteConfig chooses where the append-only attendance log lives. Backend
// "sql" uses Database; "redis" uses Redis streams.
type RemoteConfig struct {
	Backend  string         `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SyncConfig sizes the retry queue in front of the remote log. Async false
// writes synchronously from the session.
type SyncConfig struct {
	Async       bool          `mapstructure:"async"`
	QueueSize   int           `mapstructure:"queue_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SessionConfig shapes the per-device sessions. Sessions unused for IdleTTL
// without a shift in progress are dropped every SweepInterval.
type SessionConfig struct {
	Timezone      string        `mapstructure:"timezone"`
	AutoEndBreaks bool          `mapstructure:"auto_end_breaks"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type HolidayConfig struct {
	Extra []string `mapstructure:"extra"`
}

type OrgConfig struct {
	Name string `mapstructure:"name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ReportConfig struct {
	Enabled  bool       `mapstructure:"enabled"`
	Schedule string     `mapstructure:"schedule"`
	Timezone string     `mapstructure:"timezone"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Load reads defaults, then the optional config file at path, then
// ATTENDANCE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")

	// No usable default: the secret must come from the file or environment.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiration", 24*time.Hour)

	v.SetDefault("local.driver", "sqlite")
	v.SetDefault("local.dsn", "attendance.db")
	v.SetDefault("local.log_level", "warn")

	v.SetDefault("remote.backend", "sql")
	v.SetDefault("remote.db.driver", "postgres")
	v.SetDefault("remote.db.dsn", "postgresql://postgres@localhost:5432/attendance")
	v.SetDefault("remote.db.log_level", "warn")
	v.SetDefault("remote.redis.addr", "localhost:6379")
	v.SetDefault("remote.redis.key_prefix", "attendance")

	v.SetDefault("sync.async", false)
	v.SetDefault("sync.queue_size", 256)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.backoff", 2*time.Second)
	v.SetDefault("sync.timeout", 10*time.Second)

	v.SetDefault("session.timezone", "Asia/Kolkata")
	v.SetDefault("session.auto_end_breaks", true)
	v.SetDefault("session.idle_ttl", 12*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)

	for kind, minutes := range models.DefaultBreakMinutes {
		v.SetDefault("breaks."+string(kind), minutes)
	}

	v.SetDefault("org.name", "Nova TechSciences")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("report.enabled", false)
	v.SetDefault("report.schedule", "0 18 * * *")
	v.SetDefault("report.timezone", "Asia/Kolkata")
	v.SetDefault("report.smtp.host", "smtp.gmail.com")
	v.SetDefault("report.smtp.port", 587)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Roster) == 0 {
		cfg.Roster = DefaultRoster()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwt_secret must be at least 16 characters")
	}
	if strings.Contains(strings.ToLower(c.Auth.JWTSecret), "change-in-production") {
		return errors.New("config: auth.jwt_secret is still the sample value")
	}
	if c.Server.Port == "" {
		return errors.New("config: server.port is required")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("config: session.timezone: %w", err)
	}
	if c.Session.IdleTTL <= 0 || c.Session.SweepInterval <= 0 {
		return errors.New("config: session.idle_ttl and session.sweep_interval must be positive")
	}
	for kind, minutes := range c.Breaks {
		if !models.BreakKind(kind).Valid() {
			return fmt.Errorf("config: unknown break kind %q", kind)
		}
		if minutes <= 0 {
			return fmt.Errorf("config: breaks.%s must be positive", kind)
		}
	}
	switch c.Remote.Backend {
	case "sql", "redis":
	default:
		return fmt.Errorf("config: remote.backend %q is not sql or redis", c.Remote.Backend)
	}
	if c.Report.Enabled && len(c.Report.SMTP.To) == 0 {
		return errors.New("config: report.smtp.to is required when report.enabled")
	}
	return nil
}

// Location returns the office timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BreakMinutes returns the allotted minutes per kind with defaults filled in.
func (c *Config) BreakMinutes() map[models.BreakKind]int {
	out := make(map[models.BreakKind]int, len(models.DefaultBreakMinutes))
	for kind, minutes := range models.DefaultBreakMinutes {
		out[kind] = minutes
	}
	for kind, minutes := range c.Breaks {
		out[models.BreakKind(kind)] = minutes
	}
	return out
}

// DefaultRoster is used when no roster is configured.
func DefaultRoster() []models.Employee {
	return []models.Employee{
		{ID: "NTS-001", Name: "Prathamesh Shinde", ShiftWindow: "10:00 AM - 7:00 PM"},
		{ID: "NTS-002", Name: "Adarsh Singh", ShiftWindow: "10:00 AM - 7:00 PM"},
		{ID: "NTS-003", Name: "Payal Nalavade", ShiftWindow: "9:00 AM - 6:00 PM"},
		{ID: "NTS-004", Name: "Vaishnavi Ghodvinde", ShiftWindow: "9:00 AM - 6:00 PM"},
		{ID: "NTS-005", Name: "Rushikesh Andhale", ShiftWindow: "9:00 AM - 6:00 PM"},
		{ID: "NTS-006", Name: "Upasana Patil", ShiftWindow: "9:00 AM - 6:00 PM"},
		{ID: "NTS-007", Name: "Prajakta Dhande", ShiftWindow: "9:00 AM - 6:00 PM"},
		{ID: "NTS-008", Name: "Chotelal Singh", ShiftWindow: "9:00 AM - 6:00 PM"},
	}
}
