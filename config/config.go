package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// DefaultFile is read by New when -config is not given. A missing default
// file is not an error.
const DefaultFile = "trellis.yaml"

// Config holds all application configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Static    StaticConfig    `yaml:"static"`
	Views     ViewsConfig     `yaml:"views"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds listener, timeout and tls settings.
type ServerConfig struct {
	Address        string    `yaml:"address"`
	Port           int       `yaml:"port"`
	ReadBufferSize SizeBytes `yaml:"read_buffer_size"`
	ReadTimeout    Duration  `yaml:"read_timeout"`
	WriteTimeout   Duration  `yaml:"write_timeout"`
	ShutdownGrace  Duration  `yaml:"shutdown_grace"`
	MaxConnections int       `yaml:"max_connections"`
	// ReusePort sets SO_REUSEPORT so several processes can share the port
	ReusePort bool      `yaml:"reuse_port"`
	TLS       TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration. TLS mode is on when both
// files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether a certificate and key are configured
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig configures the per-client token bucket. RPS <= 0 disables it.
// Buckets are keyed by the peer address. TrustForwarded keys on the first
// X-Forwarded-For entry instead and must only be set behind a proxy that
// overwrites that header.
type RateLimitConfig struct {
	RPS            float64 `yaml:"rps"`
	Burst          int     `yaml:"burst"`
	TrustForwarded bool    `yaml:"trust_forwarded"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StaticConfig names directories served as static files. Empty means off.
type StaticConfig struct {
	PublicDir string `yaml:"public_dir"`
	AssetsDir string `yaml:"assets_dir"`
}

type ViewsConfig struct {
	Dir string `yaml:"dir"`
	Ext string `yaml:"ext"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Name: "trellis",
		Env:  "development",
		Server: ServerConfig{
			Address:        "127.0.0.1",
			Port:           3000,
			ReadBufferSize: 1024,
			ReadTimeout:    Duration(10 * time.Second),
			WriteTimeout:   Duration(30 * time.Second),
			ShutdownGrace:  Duration(5 * time.Second),
		},
		RateLimit: RateLimitConfig{Burst: 20},
		Logging:   LoggingConfig{Level: "info"},
		Views:     ViewsConfig{Dir: "views", Ext: ".html"},
		Metrics:   MetricsConfig{Path: "/metrics"},
	}
}

// Addr returns the host:port the server binds
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// Validate checks values that would otherwise fail at bind or accept time
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("server.read_buffer_size must be positive"))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("server.max_connections must not be negative"))
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		errs = append(errs, fmt.Errorf("server.tls needs both cert_file and key_file"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be positive when rps is set"))
	}
	return errors.Join(errs...)
}

// New loads configuration from the config file, .env, environment and
// command-line flags, in increasing order of precedence. Invalid input
// exits the process.
func New() *Config {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Parse resolves configuration for the given command-line arguments
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("trellis", flag.ContinueOnError)

	path := fs.String("config", DefaultFile, "Path to YAML config file")
	port := fs.Int("port", 3000, "HTTP server port")
	readTimeout := fs.Int("read-timeout", 10, "HTTP read timeout (seconds)")
	writeTimeout := fs.Int("write-timeout", 30, "HTTP write timeout (seconds)")
	env := fs.String("env", "development", "Environment (development/production)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := Load(*path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || set["config"] {
			return nil, err
		}
		cfg = Default()
	}

	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if set["port"] {
		cfg.Server.Port = *port
	}
	if set["read-timeout"] {
		cfg.Server.ReadTimeout = Duration(time.Duration(*readTimeout) * time.Second)
	}
	if set["write-timeout"] {
		cfg.Server.WriteTimeout = Duration(time.Duration(*writeTimeout) * time.Second)
	}
	if set["env"] {
		cfg.Env = *env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
