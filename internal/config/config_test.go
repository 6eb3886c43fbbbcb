package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagoresarker/irr-prefix-lookup/internal/irr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "AS400427", cfg.Lookup.DefaultASN)
	assert.Equal(t, 60*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, ModeDirect, cfg.Lookup.Mode)
	assert.Equal(t, irr.DefaultSources, cfg.IRR.Sources)
	assert.Len(t, cfg.IRR.Sources, 13)
	assert.Equal(t, []irr.Range{{Start: 64512, End: 65534}, {Start: 4200000000, End: 4294967294}}, cfg.IRR.PrivateRanges)
	assert.Equal(t, []string{"bgpq4", "jq", "egrep"}, cfg.RequiredTools())
}

func TestLoad_File(t *testing.T) {
	t.Setenv("IRR_HOST", "rr.ntt.net")
	path := writeConfig(t, `
server:
  listen: ":9000"
lookup:
  timeout: 30s
  mode: shell
irr:
  sources: [RADB, RIPE]
  host: ${IRR_HOST}
  private_ranges:
    - {start: 64512, end: 65534}
tools:
  bgpq4: /usr/local/bin/bgpq4
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, ModeShell, cfg.Lookup.Mode)
	assert.Equal(t, []string{"RADB", "RIPE"}, cfg.IRR.Sources)
	assert.Equal(t, "rr.ntt.net", cfg.IRR.Host)
	assert.Len(t, cfg.IRR.PrivateRanges, 1)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "AS400427", cfg.Lookup.DefaultASN)

	tools := cfg.QueryTools()
	assert.Equal(t, "/usr/local/bin/bgpq4", tools.BGPQ4)
	assert.Equal(t, "rr.ntt.net", tools.Host)
	assert.Equal(t, []string{"/usr/local/bin/bgpq4", "jq", "egrep", "/bin/sh"}, cfg.RequiredTools())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "lookup: [not, a, map"))
	assert.ErrorContains(t, err, "failed to parse config YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad mode", func(c *Config) { c.Lookup.Mode = "parallel" }, "lookup.mode"},
		{"zero timeout", func(c *Config) { c.Lookup.Timeout = 0 }, "lookup.timeout"},
		{"no sources", func(c *Config) { c.IRR.Sources = nil }, "allow-list is empty"},
		{"inverted range", func(c *Config) { c.IRR.PrivateRanges = []irr.Range{{Start: 10, End: 1}} }, "inverted"},
		{"private default asn", func(c *Config) { c.Lookup.DefaultASN = "AS64512" }, "lookup.default_asn"},
		{"negative concurrency", func(c *Config) { c.Lookup.MaxConcurrentLookups = -1 }, "max_concurrent_lookups"},
		{"shell without jq", func(c *Config) { c.Lookup.Mode = ModeShell; c.Tools.JQ = "" }, "shell mode"},
		{"no listen", func(c *Config) { c.Server.Listen = "" }, "server.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("IRR_HOST", "whois.radb.net")
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().IRR.Sources, cfg.IRR.Sources)
	assert.Equal(t, Default().IRR.PrivateRanges, cfg.IRR.PrivateRanges)
	assert.Equal(t, "whois.radb.net", cfg.IRR.Host)
	assert.Equal(t, "json", cfg.Logging.Format)
}
