package services

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ConnectionConfig describes how to reach a site's database.
type ConnectionConfig struct {
	Driver   string `json:"driver,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"-"`
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
	Socket   string `json:"socket,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Merge returns c with every non-empty field of override applied.
func (c ConnectionConfig) Merge(override ConnectionConfig) ConnectionConfig {
	if override.Driver != "" {
		c.Driver = override.Driver
	}
	if override.User != "" {
		c.User = override.User
	}
	if override.Password != "" {
		c.Password = override.Password
	}
	if override.Host != "" {
		c.Host = override.Host
	}
	if override.Port != "" {
		c.Port = override.Port
	}
	if override.Socket != "" {
		c.Socket = override.Socket
	}
	if override.Name != "" {
		c.Name = override.Name
	}
	return c
}

// Address is host:port, or the socket path when one is set.
func (c ConnectionConfig) Address() string {
	if c.Socket != "" {
		return c.Socket
	}
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == "" {
		port = "3306"
	}
	return net.JoinHostPort(host, port)
}

// DSN renders the config as a go-sql-driver/mysql data source name.
func (c ConnectionConfig) DSN(timeout time.Duration) string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.Name
	cfg.Timeout = timeout
	cfg.ReadTimeout = timeout
	if c.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = c.Socket
	} else {
		cfg.Net = "tcp"
		// "localhost" in settings.php means the local socket to PHP; prefer it when present.
		if c.Host == "localhost" && c.Port == "" {
			if sock := localSocket(); sock != "" {
				cfg.Net = "unix"
				cfg.Addr = sock
				return cfg.FormatDSN()
			}
		}
		cfg.Addr = c.Address()
	}
	return cfg.FormatDSN()
}

var socketPaths = []string{
	"/var/run/mysqld/mysqld.sock",
	"/tmp/mysql.sock",
	"/var/lib/mysql/mysql.sock",
}

func localSocket() string {
	for _, sock := range socketPaths {
		if _, err := os.Stat(sock); err == nil {
			return sock
		}
	}
	return ""
}

// ProbeState is the outcome of a connection attempt.
type ProbeState string

const (
	ProbeConnected     ProbeState = "Connected"
	ProbeFailed        ProbeState = "Failed"
	ProbeNotConfigured ProbeState = "Not configured"
	ProbeUnsupported   ProbeState = "Unsupported driver"
)

// ProbeResult is what `status` shows about the database.
type ProbeResult struct {
	State   ProbeState    `json:"state"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency,omitempty"`
}

// String renders the result for the status table.
func (p ProbeResult) String() string {
	if p.State == ProbeFailed && p.Error != "" {
		return fmt.Sprintf("%s: %s", p.State, p.Error)
	}
	return string(p.State)
}

// DatabaseService checks whether a site's database is reachable.
type DatabaseService struct {
	Timeout time.Duration
	open    func(driver, dsn string) (*sql.DB, error)
}

func NewDatabaseService() *DatabaseService {
	return &DatabaseService{
		Timeout: 3 * time.Second,
		open:    sql.Open,
	}
}

// Probe opens a connection and pings it. It never returns an error: the
// failure is part of the result so `status` can still be rendered.
func (s *DatabaseService) Probe(ctx context.Context, config ConnectionConfig) ProbeResult {
	if config.Name == "" {
		return ProbeResult{State: ProbeNotConfigured}
	}
	switch config.Driver {
	case "", "mysql", "mysqli":
	default:
		return ProbeResult{State: ProbeUnsupported, Error: config.Driver}
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	start := time.Now()
	db, err := s.open("mysql", config.DSN(s.Timeout))
	if err != nil {
		return ProbeResult{State: ProbeFailed, Error: err.Error()}
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return ProbeResult{State: ProbeFailed, Error: err.Error()}
	}
	return ProbeResult{State: ProbeConnected, Latency: time.Since(start)}
}
