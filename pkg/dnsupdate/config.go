package dnsupdate

import (
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Default configuration values.
const (
	// DefaultPort is the standard DNS port.
	DefaultPort = 53

	// DefaultTimeout is the default timeout for DNS operations.
	DefaultTimeout = 10 * time.Second

	// DefaultTSIGAlgorithm is the default TSIG algorithm if none specified.
	DefaultTSIGAlgorithm = dns.HmacSHA256
)

// Config holds RFC 2136 client configuration. The server and zone are
// not part of it: they arrive with each update request, derived from
// the directory connection URI and the configured domain.
type Config struct {
	// Port is the DNS server port (default: 53).
	Port int

	// TSIGKeyName is the TSIG key name used to authenticate updates.
	// Must end with a dot (e.g., "host-client1.").
	TSIGKeyName string

	// TSIGSecret is the base64-encoded TSIG shared secret.
	TSIGSecret string

	// TSIGAlgorithm is the TSIG algorithm (default: hmac-sha256).
	// Supported: hmac-md5, hmac-sha256, hmac-sha512.
	TSIGAlgorithm string

	// Timeout is the timeout for DNS operations (default: 10s).
	Timeout time.Duration

	// UseTCP forces TCP transport instead of UDP.
	UseTCP bool
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d", c.Port))
	}

	if c.HasTSIG() {
		if c.TSIGKeyName == "" {
			errs = append(errs, "tsig_key_name is required when using TSIG authentication")
		}
		if c.TSIGSecret == "" {
			errs = append(errs, "tsig_secret is required when using TSIG authentication")
		}
		if c.TSIGAlgorithm != "" {
			alg := c.GetTSIGAlgorithm()
			if alg != dns.HmacMD5 && alg != dns.HmacSHA256 && alg != dns.HmacSHA512 {
				errs = append(errs, fmt.Sprintf("unsupported tsig_algorithm: %s (supported: hmac-md5, hmac-sha256, hmac-sha512)", c.TSIGAlgorithm))
			}
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("dnsupdate config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// HasTSIG reports whether any TSIG field is set.
func (c *Config) HasTSIG() bool {
	return c.TSIGKeyName != "" || c.TSIGSecret != "" || c.TSIGAlgorithm != ""
}

// GetPort returns the configured port or the default.
func (c *Config) GetPort() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultPort
}

// GetTimeout returns the configured timeout or the default.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// GetTSIGAlgorithm returns the normalized TSIG algorithm.
func (c *Config) GetTSIGAlgorithm() string {
	return normalizeAlgorithm(c.TSIGAlgorithm)
}
