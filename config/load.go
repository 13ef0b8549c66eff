package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TRELLIS_"

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path (".env" when empty) into the
// process environment. Variables already set are kept and a missing file
// is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from TRELLIS_* variables. PORT is honored too,
// below TRELLIS_PORT.
func ApplyEnv(cfg *Config) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
		}
	}
	duration := func(name string, dst *Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		} else {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		}
	}

	str("NAME", &cfg.Name)
	str("ENV", &cfg.Env)

	if v, ok := os.LookupEnv(EnvPrefix + "ADDR"); ok {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sADDR: %w", EnvPrefix, err))
		} else if p, err := strconv.Atoi(port); err != nil {
			errs = append(errs, fmt.Errorf("%sADDR: %w", EnvPrefix, err))
		} else {
			cfg.Server.Address, cfg.Server.Port = host, p
		}
	}
	str("ADDRESS", &cfg.Server.Address)
	integer("PORT", &cfg.Server.Port)
	if v, ok := os.LookupEnv(EnvPrefix + "READ_BUFFER_SIZE"); ok {
		s, err := ParseSize(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREAD_BUFFER_SIZE: %w", EnvPrefix, err))
		} else {
			cfg.Server.ReadBufferSize = s
		}
	}
	duration("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	duration("SHUTDOWN_GRACE", &cfg.Server.ShutdownGrace)
	integer("MAX_CONNECTIONS", &cfg.Server.MaxConnections)
	boolean("REUSE_PORT", &cfg.Server.ReusePort)
	str("TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	str("TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	if v, ok := os.LookupEnv(EnvPrefix + "CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_RPS: %w", EnvPrefix, err))
		} else {
			cfg.RateLimit.RPS = f
		}
	}
	integer("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	boolean("RATE_LIMIT_TRUST_FORWARDED", &cfg.RateLimit.TrustForwarded)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("PUBLIC_DIR", &cfg.Static.PublicDir)
	str("ASSETS_DIR", &cfg.Static.AssetsDir)
	str("VIEWS_DIR", &cfg.Views.Dir)
	str("VIEWS_EXT", &cfg.Views.Ext)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_PATH", &cfg.Metrics.Path)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
