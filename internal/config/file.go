package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig is the configuration file structure. Both YAML and TOML
// are accepted; the file extension picks the parser.
type FileConfig struct {
	Logging   *FileLoggingConfig   `yaml:"logging,omitempty" toml:"logging"`
	Host      *FileHostConfig      `yaml:"host,omitempty" toml:"host"`
	Directory *FileDirectoryConfig `yaml:"directory,omitempty" toml:"directory"`
	Updates   *FileUpdatesConfig   `yaml:"updates,omitempty" toml:"updates"`
	Server    *FileServerConfig    `yaml:"server,omitempty" toml:"server"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level"`
	Format string `yaml:"format,omitempty" toml:"format"`
}

// FileHostConfig holds the host identity published in DNS.
type FileHostConfig struct {
	Domain    string `yaml:"domain,omitempty" toml:"domain"`
	Hostname  string `yaml:"hostname,omitempty" toml:"hostname"`
	Realm     string `yaml:"realm,omitempty" toml:"realm"`
	Interface string `yaml:"interface,omitempty" toml:"interface"`
}

// FileDirectoryConfig holds the directory connection settings.
type FileDirectoryConfig struct {
	ServerURI    string `yaml:"server_uri,omitempty" toml:"server_uri"`
	BindDN       string `yaml:"bind_dn,omitempty" toml:"bind_dn"`
	BindPassword string `yaml:"bind_password,omitempty" toml:"bind_password"`
}

// FileUpdatesConfig holds update behavior and DNS transport settings.
type FileUpdatesConfig struct {
	TTL             *int   `yaml:"ttl,omitempty" toml:"ttl"`
	RefreshInterval string `yaml:"refresh_interval,omitempty" toml:"refresh_interval"`
	DNSPort         *int   `yaml:"dns_port,omitempty" toml:"dns_port"`
	DNSTimeout      string `yaml:"dns_timeout,omitempty" toml:"dns_timeout"`
	UseTCP          *bool  `yaml:"use_tcp,omitempty" toml:"use_tcp"`
	TSIGKeyName     string `yaml:"tsig_key_name,omitempty" toml:"tsig_key_name"`
	TSIGSecret      string `yaml:"tsig_secret,omitempty" toml:"tsig_secret"`
	TSIGAlgorithm   string `yaml:"tsig_algorithm,omitempty" toml:"tsig_algorithm"`
}

// FileServerConfig holds the health and metrics server settings.
type FileServerConfig struct {
	HealthPort *int `yaml:"health_port,omitempty" toml:"health_port"`
}

// LoadFile reads and parses a configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (use .yaml, .yml, or .toml)", filepath.Ext(path))
	}

	return &cfg, nil
}

// apply overlays the file settings onto cfg, returning any value
// errors. Environment variables are applied afterwards and win.
func (f *FileConfig) apply(cfg *Config) []string {
	var errs []string

	if f.Logging != nil {
		if f.Logging.Level != "" {
			cfg.LogLevel = f.Logging.Level
		}
		if f.Logging.Format != "" {
			cfg.LogFormat = f.Logging.Format
		}
	}

	if f.Host != nil {
		if f.Host.Domain != "" {
			cfg.Domain = f.Host.Domain
		}
		if f.Host.Hostname != "" {
			cfg.Hostname = f.Host.Hostname
		}
		if f.Host.Realm != "" {
			cfg.Realm = f.Host.Realm
		}
		if f.Host.Interface != "" {
			cfg.Interface = f.Host.Interface
		}
	}

	if f.Directory != nil {
		if f.Directory.ServerURI != "" {
			cfg.ServerURI = f.Directory.ServerURI
		}
		if f.Directory.BindDN != "" {
			cfg.BindDN = f.Directory.BindDN
		}
		if f.Directory.BindPassword != "" {
			cfg.BindPassword = f.Directory.BindPassword
		}
	}

	if f.Updates != nil {
		if f.Updates.TTL != nil {
			cfg.TTL = *f.Updates.TTL
		}
		if f.Updates.RefreshInterval != "" {
			if d, err := parseDuration(f.Updates.RefreshInterval); err == nil {
				cfg.RefreshInterval = d
			} else {
				errs = append(errs, fmt.Sprintf("refresh_interval: invalid duration %q", f.Updates.RefreshInterval))
			}
		}
		if f.Updates.DNSPort != nil {
			cfg.DNSPort = *f.Updates.DNSPort
		}
		if f.Updates.DNSTimeout != "" {
			if d, err := parseDuration(f.Updates.DNSTimeout); err == nil {
				cfg.DNSTimeout = d
			} else {
				errs = append(errs, fmt.Sprintf("dns_timeout: invalid duration %q", f.Updates.DNSTimeout))
			}
		}
		if f.Updates.UseTCP != nil {
			cfg.UseTCP = *f.Updates.UseTCP
		}
		if f.Updates.TSIGKeyName != "" {
			cfg.TSIGKeyName = f.Updates.TSIGKeyName
		}
		if f.Updates.TSIGSecret != "" {
			cfg.TSIGSecret = f.Updates.TSIGSecret
		}
		if f.Updates.TSIGAlgorithm != "" {
			cfg.TSIGAlgorithm = f.Updates.TSIGAlgorithm
		}
	}

	if f.Server != nil && f.Server.HealthPort != nil {
		cfg.HealthPort = *f.Server.HealthPort
	}

	return errs
}
