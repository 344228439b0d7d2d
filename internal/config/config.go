// Package config handles loading and validation of dyndnsd
// configuration from environment variables, layered over an optional
// YAML or TOML configuration file. All settings use the DYNDNS_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration defaults.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultTTL             = 1200
	DefaultRefreshInterval = 24 * time.Hour
	DefaultHealthPort      = 8080
)

// Config holds the complete daemon configuration.
type Config struct {
	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Host identity
	Domain    string // DNS zone is the lower-cased domain
	Hostname  string // FQDN to publish; defaults to os.Hostname()
	Realm     string // Kerberos realm the host is enrolled in
	Interface string // network interface to publish; empty means all

	// Directory connection
	ServerURI    string // ldap:// URI of the directory server
	BindDN       string
	BindPassword string

	// Update behavior
	TTL             int           // record time-to-live in seconds
	RefreshInterval time.Duration // periodic refresh; 0 disables the timer

	// DNS transport
	DNSPort       int
	DNSTimeout    time.Duration
	UseTCP        bool
	TSIGKeyName   string
	TSIGSecret    string
	TSIGAlgorithm string

	// Health and metrics server
	HealthPort int
}

// Load builds the configuration: defaults, then the optional config
// file named by DYNDNS_CONFIG_FILE, then environment variables on top.
// Returns a *ValidationError listing every problem found.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		TTL:             DefaultTTL,
		RefreshInterval: DefaultRefreshInterval,
		HealthPort:      DefaultHealthPort,
	}

	var errs []string

	if path := os.Getenv("DYNDNS_CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			errs = append(errs, "config file: "+err.Error())
		} else {
			for _, e := range fileCfg.apply(cfg) {
				errs = append(errs, "config file: "+e)
			}
		}
	}

	errs = append(errs, loadEnv(cfg)...)

	if cfg.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			errs = append(errs, "hostname: not configured and not discoverable: "+err.Error())
		} else {
			cfg.Hostname = hostname
		}
	}

	errs = append(errs, validate(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// loadEnv overlays DYNDNS_* environment variables onto cfg.
func loadEnv(cfg *Config) []string {
	var errs []string

	setString(&cfg.LogLevel, "DYNDNS_LOG_LEVEL")
	setString(&cfg.LogFormat, "DYNDNS_LOG_FORMAT")
	setString(&cfg.Domain, "DYNDNS_DOMAIN")
	setString(&cfg.Hostname, "DYNDNS_HOSTNAME")
	setString(&cfg.Realm, "DYNDNS_REALM")
	setString(&cfg.Interface, "DYNDNS_INTERFACE")
	setString(&cfg.ServerURI, "DYNDNS_SERVER_URI")
	setString(&cfg.BindDN, "DYNDNS_BIND_DN")
	setString(&cfg.TSIGKeyName, "DYNDNS_TSIG_KEY_NAME")
	setString(&cfg.TSIGAlgorithm, "DYNDNS_TSIG_ALGORITHM")

	errs = append(errs, setSecret(&cfg.BindPassword, "DYNDNS_BIND_PASSWORD")...)
	errs = append(errs, setSecret(&cfg.TSIGSecret, "DYNDNS_TSIG_SECRET")...)

	errs = append(errs, setInt(&cfg.TTL, "DYNDNS_TTL")...)
	errs = append(errs, setInt(&cfg.DNSPort, "DYNDNS_DNS_PORT")...)
	errs = append(errs, setInt(&cfg.HealthPort, "DYNDNS_HEALTH_PORT")...)
	errs = append(errs, setDuration(&cfg.RefreshInterval, "DYNDNS_REFRESH_INTERVAL")...)
	errs = append(errs, setDuration(&cfg.DNSTimeout, "DYNDNS_DNS_TIMEOUT")...)
	errs = append(errs, setBool(&cfg.UseTCP, "DYNDNS_USE_TCP")...)

	return errs
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setSecret reads KEY, or the contents of the file named by KEY_FILE.
// The direct value wins when both are set.
func setSecret(dst *string, key string) []string {
	if v := os.Getenv(key); v != "" {
		*dst = v
		return nil
	}
	path := os.Getenv(key + "_FILE")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("%s_FILE: %v", key, err)}
	}
	*dst = strings.TrimSpace(string(data))
	return nil
}

func setInt(dst *int, key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return []string{fmt.Sprintf("%s: invalid integer %q", key, v)}
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return []string{fmt.Sprintf("%s: invalid duration %q", key, v)}
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return []string{fmt.Sprintf("%s: invalid boolean %q", key, v)}
	}
	return nil
}

// parseDuration accepts Go duration syntax and bare seconds, the form
// directory deployments usually carry over from their previous tooling.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", v)
	}
	return d, nil
}
