// Package config loads the server's on-disk YAML configuration (§6):
// the listening port, hostname and the boolean
// feature flags that gate TLS, registration and the SASL mechanisms.
package config

import (
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Config is the server-wide set of recognized options.
type Config struct {
	Port     int    `yaml:"port"`
	Hostname string `yaml:"hostname"`

	EnableIPv4 bool `yaml:"enable_ipv4"`
	EnableIPv6 bool `yaml:"enable_ipv6"`

	// EnableTLS must stay false in this version; TLS is a non-goal (§1).
	EnableTLS bool `yaml:"enable_tls"`

	EnableRegistration  bool `yaml:"enable_registration"`
	EnablePlainAuth     bool `yaml:"enable_plain_auth"`
	EnableUnsecureAuth  bool `yaml:"enable_unsecure_auth"`
	EnableAnonymousAuth bool `yaml:"enable_anonymous_auth"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:                5222,
		Hostname:            "localhost",
		EnableIPv4:          true,
		EnableIPv6:          true,
		EnablePlainAuth:     true,
		EnableUnsecureAuth:  true,
		EnableAnonymousAuth: true,
	}
}

// Load reads and parses a YAML configuration file over Default(), so
// any field the file does not set keeps its default; a field the file
// sets explicitly, even to false or 0, keeps the file's value.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	return cfg, nil
}

// Validate enforces §4.1's configuration failure model: at least one
// acceptor family must be enabled, and TLS must stay disabled.
func (c *Config) Validate() error {
	if !c.EnableIPv4 && !c.EnableIPv6 {
		return errors.New("config: neither enable_ipv4 nor enable_ipv6 is set")
	}
	if c.EnableTLS {
		return errors.New("config: enable_tls is not supported in this version")
	}
	if c.Hostname == "" {
		return errors.New("config: hostname must not be empty")
	}
	return nil
}
