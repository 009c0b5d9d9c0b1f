package config

// loader.go fills Config from environment variables described by struct
// tags:
//
//	env:"NAME"        primary variable
//	envAlt:"OTHER"    fallback variable when NAME is unset
//	default:"value"   used when both are unset
//	required:"true"   unset with no default is an error
//
// Nested structs are walked recursively. Every bad variable is reported,
// not just the first.

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Getenv looks up a single variable. os.Getenv satisfies it.
type Getenv func(key string) string

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv, applies defaults and
// validates the result.
func LoadFrom(getenv Getenv) (*Config, error) {
	cfg := &Config{}

	var l loader
	l.walk(reflect.ValueOf(cfg).Elem(), getenv)
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

type loader struct {
	errs []error
}

func (l *loader) walk(v reflect.Value, getenv Getenv) {
	t := v.Type()
	for i := range t.NumField() {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			l.walk(fv, getenv)
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookup(getenv, name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				l.errs = append(l.errs, fmt.Errorf("%s is required", name))
				continue
			}
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		parse, found := parsers[field.Type]
		if !found {
			l.errs = append(l.errs, fmt.Errorf("%s: unsupported field type %s", name, field.Type))
			continue
		}
		val, err := parse(raw)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s=%q: %w", name, raw, err))
			continue
		}
		fv.Set(reflect.ValueOf(val).Convert(field.Type))
	}
}

// lookup returns the trimmed value of name, or of alt when name is blank.
func lookup(getenv Getenv, name, alt string) (string, bool) {
	if v := strings.TrimSpace(getenv(name)); v != "" {
		return v, true
	}
	if alt != "" {
		if v := strings.TrimSpace(getenv(alt)); v != "" {
			return v, true
		}
	}
	return "", false
}

// parsers maps each supported field type to its string parser.
var parsers = map[reflect.Type]func(string) (any, error){
	reflect.TypeFor[string](): func(s string) (any, error) { return s, nil },
	reflect.TypeFor[int](): func(s string) (any, error) {
		return strconv.Atoi(s)
	},
	reflect.TypeFor[int64](): func(s string) (any, error) {
		return strconv.ParseInt(s, 10, 64)
	},
	reflect.TypeFor[float64](): func(s string) (any, error) {
		return strconv.ParseFloat(s, 64)
	},
	reflect.TypeFor[bool](): func(s string) (any, error) {
		return strconv.ParseBool(s)
	},
	reflect.TypeFor[time.Duration](): func(s string) (any, error) {
		return time.ParseDuration(s)
	},
	reflect.TypeFor[[]string](): func(s string) (any, error) {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	},
}

// problems collects validation messages.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var p problems
	c.Server.validate(&p)
	c.Storage.validate(&p)
	c.API.validate(&p)
	c.Import.validate(&p)
	c.Table.validate(&p)
	c.Rate.validate(&p)
	c.Security.validate(&p)
	c.Logging.validate(&p)

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

func (c ServerConfig) validate(p *problems) {
	if c.Port <= 0 || c.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		p.addf("SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_IDLE_TIMEOUT must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

func (c StorageConfig) validate(p *problems) {
	switch strings.ToLower(c.Driver) {
	case DriverFile, DriverSQLite:
		if c.Path == "" {
			p.addf("STORAGE_PATH is required for the file and sqlite drivers")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			p.addf("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
		if c.MaxConns <= 0 {
			p.addf("DB_MAX_CONNS must be positive")
		} else if c.MaxConns < c.MinConns {
			p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns)
		}
	case DriverMemory:
	default:
		p.addf("STORAGE_DRIVER (%q) must be one of: file, sqlite, postgres, memory", c.Driver)
	}
	if c.SlotKey == "" {
		p.addf("STORAGE_SLOT_KEY must not be empty")
	}
}

func (c APIConfig) validate(p *problems) {
	if c.FailureRate < 0 || c.FailureRate > 1 {
		p.addf("API_FAILURE_RATE (%g) must be between 0 and 1", c.FailureRate)
	}
	if c.Delay < 0 {
		p.addf("API_DELAY must not be negative")
	}
}

func (c ImportConfig) validate(p *problems) {
	if c.MaxFileSize <= 0 {
		p.addf("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.MaxConcurrent <= 0 {
		p.addf("IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.MaxWaitTime <= 0 {
		p.addf("IMPORT_MAX_WAIT_TIME must be positive")
	}
}

func (c TableConfig) validate(p *problems) {
	if c.RowsPerPage <= 0 {
		p.addf("TABLE_ROWS_PER_PAGE must be positive")
	}
	if c.MaxRowsPerPage < c.RowsPerPage {
		p.addf("TABLE_MAX_ROWS_PER_PAGE (%d) must be >= TABLE_ROWS_PER_PAGE (%d)", c.MaxRowsPerPage, c.RowsPerPage)
	}
}

func (c RateLimitConfig) validate(p *problems) {
	if c.Enabled && c.RequestsPerMinute <= 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
}

// Trusted proxies may be CIDRs or single addresses.
func (c SecurityConfig) validate(p *problems) {
	for _, entry := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			p.addf("TRUSTED_PROXIES entry %q is not a CIDR or IP address", entry)
		}
	}
}

func (c LoggingConfig) validate(p *problems) {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", c.Format)
	}
}
