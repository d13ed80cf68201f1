package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/macos-calendar-mcp/internal/i18n"
)

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	// transportStreamableHTTP is accepted as an alias of TransportHTTP.
	transportStreamableHTTP = "streamable-http"
)

// Config is the server configuration.
type Config struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`

	HTTP     HTTPConfig     `yaml:"http"`
	Script   ScriptConfig   `yaml:"script"`
	FanOut   FanOutConfig   `yaml:"fanout"`
	Batch    BatchConfig    `yaml:"batch"`
	Calendar CalendarConfig `yaml:"calendar"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// Language selects the language of suggestions and prompts (en, zh, de).
	Language string `yaml:"language"`

	// ReadOnly hides the tools that change calendars.
	ReadOnly bool `yaml:"read_only"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
}

// HTTPConfig configures the streamable HTTP transport.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// DisableStreaming turns off SSE responses for clients that cannot handle them.
	DisableStreaming bool `yaml:"disable_streaming"`

	// SessionIdleTimeout expires HTTP sessions without requests for this long.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// ScriptConfig configures script execution.
type ScriptConfig struct {
	// Timeout is the deadline of every script run.
	Timeout time.Duration `yaml:"timeout"`

	// Interpreter is the binary scripts are run with.
	Interpreter string `yaml:"interpreter"`
}

// FanOutConfig configures multi-calendar search.
type FanOutConfig struct {
	Concurrency    int  `yaml:"concurrency"`
	Limit          int  `yaml:"limit"`
	ReportFailures bool `yaml:"report_failures"`
}

// BatchConfig configures batch tools.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// CalendarConfig holds default calendar names. macOS localizes calendar
// names, so these are configuration rather than constants.
type CalendarConfig struct {
	// Default is used by create-event, list-today-events and search-events.
	Default string `yaml:"default"`

	// Work is used by batch, delete, week and fix tools.
	Work string `yaml:"work"`
}

// MetricsConfig configures the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Transport: TransportStdio,
		HTTP: HTTPConfig{
			Host:               "0.0.0.0",
			Port:               3000,
			SessionIdleTimeout: 30 * time.Minute,
		},
		Script: ScriptConfig{
			Timeout:     30 * time.Second,
			Interpreter: "osascript",
		},
		FanOut: FanOutConfig{
			Concurrency: 4,
			Limit:       50,
		},
		Batch: BatchConfig{
			Concurrency: 1,
		},
		Calendar: CalendarConfig{
			Default: "Personal",
			Work:    "Work",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Language:  "en",
		LogFormat: "text",
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults. Unknown keys in the file are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with the environment variables lookup finds.
// Malformed values are reported together; valid ones are still applied.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
				return
			}
			*dst = b
		}
	}

	str("MCP_TRANSPORT", &c.Transport)
	str("MCP_HTTP_HOST", &c.HTTP.Host)
	integer("MCP_HTTP_PORT", &c.HTTP.Port)
	boolean("MCP_DISABLE_STREAMING", &c.HTTP.DisableStreaming)

	if v, ok := lookup("MCP_SCRIPT_TIMEOUT_SECONDS"); ok && v != "" {
		secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MCP_SCRIPT_TIMEOUT_SECONDS: invalid number %q", v))
		} else {
			c.Script.Timeout = time.Duration(secs * float64(time.Second))
		}
	}
	str("MCP_OSASCRIPT_PATH", &c.Script.Interpreter)

	integer("MCP_FANOUT_CONCURRENCY", &c.FanOut.Concurrency)
	integer("MCP_FANOUT_LIMIT", &c.FanOut.Limit)
	boolean("MCP_FANOUT_REPORT_FAILURES", &c.FanOut.ReportFailures)
	integer("MCP_BATCH_CONCURRENCY", &c.Batch.Concurrency)

	str("MCP_DEFAULT_CALENDAR", &c.Calendar.Default)
	str("MCP_WORK_CALENDAR", &c.Calendar.Work)

	// MCP_LANGUAGE wins over the POSIX LANGUAGE variable.
	str("LANGUAGE", &c.Language)
	str("MCP_LANGUAGE", &c.Language)

	boolean("MCP_READ_ONLY", &c.ReadOnly)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("METRICS_ADDR", &c.Metrics.Addr)
	str("LOG_FORMAT", &c.LogFormat)

	return errors.Join(errs...)
}

// Normalize canonicalizes aliases. Call it before Validate.
func (c *Config) Normalize() {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == transportStreamableHTTP {
		c.Transport = TransportHTTP
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport))
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.SessionIdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("http.session_idle_timeout must not be negative"))
	}
	if c.Script.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("script.timeout must be positive, got %s", c.Script.Timeout))
	}
	if strings.TrimSpace(c.Script.Interpreter) == "" {
		errs = append(errs, errors.New("script.interpreter must not be empty"))
	}
	if c.FanOut.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("fanout.concurrency must be at least 1, got %d", c.FanOut.Concurrency))
	}
	if c.FanOut.Limit < 1 {
		errs = append(errs, fmt.Errorf("fanout.limit must be at least 1, got %d", c.FanOut.Limit))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency))
	}
	if strings.TrimSpace(c.Calendar.Default) == "" {
		errs = append(errs, errors.New("calendar.default must not be empty"))
	}
	if strings.TrimSpace(c.Calendar.Work) == "" {
		errs = append(errs, errors.New("calendar.work must not be empty"))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// Translator returns the translator for the configured language.
func (c *Config) Translator() *i18n.Translator {
	return i18n.New(c.Language)
}
