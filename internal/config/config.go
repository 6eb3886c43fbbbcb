// Package config loads the service configuration from YAML. Every field has a
// default, so running without a config file is valid.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sagoresarker/irr-prefix-lookup/internal/irr"
	"github.com/sagoresarker/irr-prefix-lookup/internal/query"
)

// Execution modes for lookups.
const (
	ModeDirect = "direct"
	ModeShell  = "shell"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Lookup  LookupConfig  `yaml:"lookup"`
	IRR     IRRConfig     `yaml:"irr"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LookupConfig struct {
	DefaultASN string        `yaml:"default_asn"`
	Timeout    time.Duration `yaml:"timeout"`
	// Mode is "direct" (one bgpq4 process per source, aggregated in
	// memory) or "shell" (a single bgpq4 | jq | egrep pipeline).
	Mode                 string `yaml:"mode"`
	MaxConcurrentLookups int64  `yaml:"max_concurrent_lookups"`
}

type IRRConfig struct {
	Sources       []string    `yaml:"sources"`
	PrivateRanges []irr.Range `yaml:"private_ranges"`
	// Host is the IRR whois server handed to bgpq4 with -h.
	Host string `yaml:"host"`
	// Resolver is the DNS server (host:port) used by the readiness probe to
	// resolve Host. Empty means the first nameserver in /etc/resolv.conf.
	Resolver string `yaml:"resolver"`
}

type ToolsConfig struct {
	BGPQ4 string `yaml:"bgpq4"`
	JQ    string `yaml:"jq"`
	Egrep string `yaml:"egrep"`
	Shell string `yaml:"shell"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	tools := query.DefaultTools()
	return &Config{
		Server: ServerConfig{
			Listen:          ":8090",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    75 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Lookup: LookupConfig{
			DefaultASN:           "AS400427",
			Timeout:              query.DefaultTimeout,
			Mode:                 ModeDirect,
			MaxConcurrentLookups: 32,
		},
		IRR: IRRConfig{
			Sources:       append([]string(nil), irr.DefaultSources...),
			PrivateRanges: append([]irr.Range(nil), irr.DefaultPrivateRanges...),
		},
		Tools: ToolsConfig{
			BGPQ4: tools.BGPQ4,
			JQ:    tools.JQ,
			Egrep: tools.Egrep,
			Shell: tools.Shell,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads path on top of the defaults. Environment variables in the file
// are expanded before parsing. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML into cfg, leaving fields absent from data unchanged.
func Parse(data []byte, cfg *Config) error {
	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if c.Lookup.Timeout <= 0 {
		errs = append(errs, errors.New("lookup.timeout must be positive"))
	}
	if c.Lookup.Mode != ModeDirect && c.Lookup.Mode != ModeShell {
		errs = append(errs, fmt.Errorf("lookup.mode %q is not one of %q, %q", c.Lookup.Mode, ModeDirect, ModeShell))
	}
	if c.Lookup.MaxConcurrentLookups < 0 {
		errs = append(errs, errors.New("lookup.max_concurrent_lookups must not be negative"))
	}
	if c.Tools.BGPQ4 == "" {
		errs = append(errs, errors.New("tools.bgpq4 must not be empty"))
	}
	if c.Lookup.Mode == ModeShell && (c.Tools.Shell == "" || c.Tools.JQ == "" || c.Tools.Egrep == "") {
		errs = append(errs, errors.New("shell mode needs tools.shell, tools.jq and tools.egrep"))
	}

	v, err := c.Validator()
	if err != nil {
		errs = append(errs, err)
	} else if _, err := v.ASN(c.Lookup.DefaultASN); err != nil {
		errs = append(errs, fmt.Errorf("lookup.default_asn: %w", err))
	}

	return errors.Join(errs...)
}

// Validator builds the input validator described by the irr section.
func (c *Config) Validator() (*irr.Validator, error) {
	v, err := irr.NewValidator(c.IRR.Sources, c.IRR.PrivateRanges)
	if err != nil {
		return nil, fmt.Errorf("irr: %w", err)
	}
	return v, nil
}

// QueryTools returns the tool set handed to the query runners.
func (c *Config) QueryTools() query.Tools {
	return query.Tools{
		BGPQ4: c.Tools.BGPQ4,
		JQ:    c.Tools.JQ,
		Egrep: c.Tools.Egrep,
		Shell: c.Tools.Shell,
		Host:  c.IRR.Host,
	}
}

// RequiredTools lists the executables that must be present before serving.
func (c *Config) RequiredTools() []string {
	tools := []string{c.Tools.BGPQ4, c.Tools.JQ, c.Tools.Egrep}
	if c.Lookup.Mode == ModeShell {
		tools = append(tools, c.Tools.Shell)
	}
	return tools
}
