// Package preflight verifies that the host can serve lookups: the external
// tools are installed and the IRR server name resolves.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"
)

const fallbackResolver = "8.8.8.8:53"

// Checker runs the startup and readiness checks.
type Checker struct {
	// Tools are executable names or paths that must be resolvable.
	Tools []string
	// Host is the IRR server to resolve; empty skips the DNS check.
	Host string
	// Resolver is a host:port DNS server; empty reads /etc/resolv.conf.
	Resolver string

	client   *dns.Client
	lookPath func(string) (string, error)
}

// NewChecker returns a Checker for tools and host.
func NewChecker(tools []string, host, resolver string) *Checker {
	return &Checker{
		Tools:    tools,
		Host:     host,
		Resolver: resolver,
		client: &dns.Client{
			Timeout: 5 * time.Second,
		},
		lookPath: exec.LookPath,
	}
}

// CheckTools reports every tool that cannot be found.
func (c *Checker) CheckTools() error {
	var err error
	for _, tool := range c.Tools {
		if _, lookErr := c.lookPath(tool); lookErr != nil {
			err = multierr.Append(err, fmt.Errorf("missing required tool %s: %w", tool, lookErr))
		}
	}
	return err
}

// ResolveHost looks up the A records of Host.
func (c *Checker) ResolveHost(ctx context.Context) ([]net.IP, error) {
	if c.Host == "" {
		return nil, nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(c.Host), dns.TypeA)

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.resolver())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", c.Host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("resolve %s: %s", c.Host, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			ips = append(ips, a.A)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve %s: no A records", c.Host)
	}
	return ips, nil
}

// Check runs all checks and returns a status per check name. ok is false when
// any check failed.
func (c *Checker) Check(ctx context.Context) (status map[string]string, ok bool) {
	status = make(map[string]string)
	ok = true

	for _, tool := range c.Tools {
		if _, err := c.lookPath(tool); err != nil {
			status["tool:"+tool] = err.Error()
			ok = false
		} else {
			status["tool:"+tool] = "ok"
		}
	}

	if c.Host != "" {
		if _, err := c.ResolveHost(ctx); err != nil {
			status["dns:"+c.Host] = err.Error()
			ok = false
		} else {
			status["dns:"+c.Host] = "ok"
		}
	}
	return status, ok
}

func (c *Checker) resolver() string {
	if c.Resolver != "" {
		return c.Resolver
	}
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return fallbackResolver
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

// ErrNoTools is returned by Startup when the checker has nothing to verify.
var ErrNoTools = errors.New("no required tools configured")

// Startup is the gate run before the server accepts traffic. Only missing
// tools are fatal; DNS problems are left to the readiness probe.
func (c *Checker) Startup() error {
	if len(c.Tools) == 0 {
		return ErrNoTools
	}
	return c.CheckTools()
}
