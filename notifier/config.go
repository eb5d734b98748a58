package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/notifier-app/notifier/internal/log"
)

const DefaultServer = "https://notifier-app-953644780816.asia-northeast1.run.app/api/v1"

type Config struct {
	Server      string         `cfg:"server"`
	HTTPTimeout time.Duration  `cfg:"http_timeout"`
	Log         log.Config     `cfg:"log"`
	Auth        AuthConfig     `cfg:"auth"`
	Query       QueryConfig    `cfg:"query"`
	Database    DatabaseConfig `cfg:"database"`
	Otel        *OtelConfig    `cfg:"otel"`
}

func (c Config) String() string {
	return fmt.Sprintf("\n Server: %s\n HTTPTimeout: %s\n Log: %s\n Auth: %s\n Query: %s\n Database: %s\n Otel: %s\n",
		c.Server,
		c.HTTPTimeout,
		c.Log,
		c.Auth,
		c.Query,
		c.Database,
		c.Otel,
	)
}

type AuthConfig struct {
	APIKey      string `cfg:"api_key"`
	IdentityURL string `cfg:"identity_url"`
	TokenURL    string `cfg:"token_url"`
}

func (c AuthConfig) String() string {
	return fmt.Sprintf("\n  APIKey: %s\n  IdentityURL: %s\n  TokenURL: %s",
		strings.Repeat("*", len(c.APIKey)),
		c.IdentityURL,
		c.TokenURL,
	)
}

type QueryConfig struct {
	StaleTime time.Duration `cfg:"stale_time"`
}

func (c QueryConfig) String() string {
	return fmt.Sprintf("\n  StaleTime: %s", c.StaleTime)
}

type DatabaseConfig struct {
	Type            string        `cfg:"type"`
	Debug           bool          `cfg:"debug"`
	ExpireAfter     time.Duration `cfg:"expire_after"`
	CleanupInterval time.Duration `cfg:"cleanup_interval"`

	// SQLite
	Path string `cfg:"path"`

	// PostgreSQL
	Host     string `cfg:"host"`
	Port     int    `cfg:"port"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Database string `cfg:"database"`
	SSLMode  string `cfg:"ssl_mode"`
}

func (c DatabaseConfig) String() string {
	str := fmt.Sprintf("\n  Type: %s\n  Debug: %t\n  ExpireAfter: %s\n  CleanupInterval: %s\n  ",
		c.Type,
		c.Debug,
		c.ExpireAfter,
		c.CleanupInterval,
	)
	switch c.Type {
	case "postgres":
		str += fmt.Sprintf("Host: %s\n  Port: %d\n  Username: %s\n  Password: %s\n  Database: %s\n  SSLMode: %s",
			c.Host,
			c.Port,
			c.Username,
			strings.Repeat("*", len(c.Password)),
			c.Database,
			c.SSLMode,
		)
	case "sqlite":
		str += fmt.Sprintf("Path: %s", c.Path)
	default:
		str += "Invalid database type!"
	}
	return str
}

func (c DatabaseConfig) PostgresDataSourceName() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

type OtelConfig struct {
	InstanceID string         `cfg:"instance_id"`
	Trace      *TraceConfig   `cfg:"trace"`
	Metrics    *MetricsConfig `cfg:"metrics"`
}

func (c *OtelConfig) String() string {
	if c == nil {
		return "disabled"
	}
	return fmt.Sprintf("\n  InstanceID: %s\n  Trace: %s\n  Metrics: %s",
		c.InstanceID,
		c.Trace,
		c.Metrics,
	)
}

type TraceConfig struct {
	Endpoint string `cfg:"endpoint"`
	Insecure bool   `cfg:"insecure"`
}

func (c *TraceConfig) String() string {
	if c == nil {
		return "disabled"
	}
	return fmt.Sprintf("\n   Endpoint: %s\n   Insecure: %t",
		c.Endpoint,
		c.Insecure,
	)
}

type MetricsConfig struct {
	ListenAddr string `cfg:"listen_addr"`
}

func (c *MetricsConfig) String() string {
	if c == nil {
		return "disabled"
	}
	return fmt.Sprintf("\n   ListenAddr: %s", c.ListenAddr)
}
