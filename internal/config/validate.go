package config

import (
	"fmt"
	"strings"
)

// ValidationError collects every configuration problem found during
// Load so the operator sees them all at once.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validate performs cross-field validation on the loaded configuration.
func validate(cfg *Config) []string {
	var errs []string

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("DYNDNS_LOG_LEVEL: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("DYNDNS_LOG_FORMAT: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	if cfg.ServerURI == "" {
		errs = append(errs, "DYNDNS_SERVER_URI: required")
	}

	if cfg.TTL < 0 {
		errs = append(errs, fmt.Sprintf("DYNDNS_TTL: must be non-negative, got %d", cfg.TTL))
	}

	if cfg.RefreshInterval < 0 {
		errs = append(errs, "DYNDNS_REFRESH_INTERVAL: must be non-negative")
	}

	if cfg.HealthPort < 1 || cfg.HealthPort > 65535 {
		errs = append(errs, fmt.Sprintf("DYNDNS_HEALTH_PORT: invalid port %d", cfg.HealthPort))
	}

	if cfg.DNSPort < 0 || cfg.DNSPort > 65535 {
		errs = append(errs, fmt.Sprintf("DYNDNS_DNS_PORT: invalid port %d", cfg.DNSPort))
	}

	if cfg.BindDN != "" && cfg.BindPassword == "" {
		errs = append(errs, "DYNDNS_BIND_PASSWORD: required when DYNDNS_BIND_DN is set")
	}

	return errs
}
