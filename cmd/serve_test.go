package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/server"
)

func lookupFrom(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func parseServeFlags(t *testing.T, args ...string) (*serveOptions, func(config.LookupFunc) (config.Config, error)) {
	t.Helper()
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags(args))

	// The flag variables live in the RunE closure; read them back from the flag set.
	opts := &serveOptions{}
	f := cmd.Flags()
	opts.configFile, _ = f.GetString("config")
	opts.transport, _ = f.GetString("transport")
	opts.httpHost, _ = f.GetString("http-host")
	opts.httpPort, _ = f.GetInt("http-port")
	opts.disableStreaming, _ = f.GetBool("disable-streaming")
	opts.readOnly, _ = f.GetBool("read-only")
	opts.timeout, _ = f.GetDuration("timeout")
	opts.language, _ = f.GetString("language")
	opts.logFormat, _ = f.GetString("log-format")
	opts.metricsEnabled, _ = f.GetBool("metrics-enabled")
	opts.metricsAddr, _ = f.GetString("metrics-addr")

	return opts, func(lookup config.LookupFunc) (config.Config, error) {
		return loadConfig(cmd, *opts, lookup)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	_, load := parseServeFlags(t)

	cfg, err := load(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, config.TransportStdio, cfg.Transport)
	assert.Equal(t, 30*time.Second, cfg.Script.Timeout)
	assert.Equal(t, "Personal", cfg.Calendar.Default)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfigFile(t, `
transport: http
http:
  port: 4000
language: de
calendar:
  work: Arbeit
`)

	_, load := parseServeFlags(t, "--config", path, "--http-port", "5000")
	cfg, err := load(lookupFrom(map[string]string{
		"MCP_HTTP_PORT": "4500",
		"MCP_LANGUAGE":  "zh",
	}))
	require.NoError(t, err)

	assert.Equal(t, config.TransportHTTP, cfg.Transport, "file over defaults")
	assert.Equal(t, "Arbeit", cfg.Calendar.Work, "file over defaults")
	assert.Equal(t, "zh", cfg.Language, "environment over file")
	assert.Equal(t, 5000, cfg.HTTP.Port, "flag over environment")
}

func TestLoadConfig_UnchangedFlagsDoNotOverride(t *testing.T) {
	_, load := parseServeFlags(t)

	cfg, err := load(lookupFrom(map[string]string{
		"MCP_TRANSPORT":              "streamable-http",
		"MCP_SCRIPT_TIMEOUT_SECONDS": "12",
	}))
	require.NoError(t, err)
	assert.Equal(t, config.TransportHTTP, cfg.Transport)
	assert.Equal(t, 12*time.Second, cfg.Script.Timeout)
}

func TestLoadConfig_ConfigFileFromEnvironment(t *testing.T) {
	path := writeConfigFile(t, "read_only: true\n")
	_, load := parseServeFlags(t)

	cfg, err := load(lookupFrom(map[string]string{configFileEnv: path}))
	require.NoError(t, err)
	assert.True(t, cfg.ReadOnly)
}

func TestLoadConfig_Flags(t *testing.T) {
	_, load := parseServeFlags(t,
		"--transport", "http",
		"--http-host", "127.0.0.1",
		"--read-only",
		"--timeout", "5s",
		"--language", "de",
		"--disable-streaming",
		"--metrics-enabled",
		"--metrics-addr", ":9999",
		"--log-format", "json",
	)

	cfg, err := load(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, config.TransportHTTP, cfg.Transport)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, 5*time.Second, cfg.Script.Timeout)
	assert.Equal(t, "de", cfg.Language)
	assert.True(t, cfg.HTTP.DisableStreaming)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"bad transport flag", []string{"--transport", "carrier-pigeon"}, nil, "transport"},
		{"zero timeout", []string{"--timeout", "0s"}, nil, "script.timeout"},
		{"bad env integer", nil, map[string]string{"MCP_HTTP_PORT": "eighty"}, "MCP_HTTP_PORT"},
		{"missing config file", []string{"--config", "/nonexistent/config.yaml"}, nil, "config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, load := parseServeFlags(t, tt.args...)
			_, err := load(lookupFrom(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckExporters(t *testing.T) {
	cfg := instrumentation.DefaultConfig()
	cfg.Enabled = true
	cfg.MetricsExporter = instrumentation.ExporterStdout

	assert.Error(t, checkExporters(config.TransportStdio, cfg))
	assert.NoError(t, checkExporters(config.TransportHTTP, cfg))

	cfg.Enabled = false
	assert.NoError(t, checkExporters(config.TransportStdio, cfg))

	cfg.Enabled = true
	cfg.MetricsExporter = instrumentation.ExporterPrometheus
	cfg.TracingExporter = instrumentation.ExporterNone
	assert.NoError(t, checkExporters(config.TransportStdio, cfg))
}

func TestWriteBanner(t *testing.T) {
	cfg := config.Default()
	cfg.ReadOnly = true

	var buf bytes.Buffer
	writeBanner(&buf, cfg, []server.Endpoint{
		{Name: "localhost", Address: "127.0.0.1", URL: "http://127.0.0.1:3000/mcp"},
		{Name: "Tailscale", Address: "100.101.102.103", URL: "http://100.101.102.103:3000/mcp"},
	}, ":9090")

	out := buf.String()
	assert.Contains(t, out, "listening on 0.0.0.0:3000")
	assert.Contains(t, out, "http://127.0.0.1:3000/mcp")
	assert.Contains(t, out, "Tailscale")
	assert.Contains(t, out, ":9090/metrics")
	assert.Contains(t, out, "read-only")
}

func TestWriteBanner_NoMetrics(t *testing.T) {
	var buf bytes.Buffer
	writeBanner(&buf, config.Default(), nil, "")
	assert.NotContains(t, buf.String(), "Metrics endpoint")
	assert.NotContains(t, buf.String(), "MCP endpoints")
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)
	assert.Contains(t, buf.String(), "macos-calendar-mcp version "+version)
}
