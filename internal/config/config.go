// Package config provides configuration parsing and validation for croc-go.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RelayConfig configures the relay server (the rendezvous broker both
// clients connect to).
type RelayConfig struct {
	// Address is the main control-channel listen address.
	Address string `yaml:"address"`

	// MultiplexPorts are additional listen addresses used for bulk file
	// data, kept separate from the control channel so large transfers
	// don't starve keepalive traffic.
	MultiplexPorts []string `yaml:"multiplex_ports"`

	// Password gates the control channel. Clients must present it through
	// the AEAD envelope negotiated with the relay.
	Password string `yaml:"password"`

	// MultiplexPassword gates the multiplex (bulk data) listeners.
	MultiplexPassword string `yaml:"multiplex_password"`

	// RoomTTL bounds how long an unpaired room may sit waiting for a
	// second participant before the relay evicts it.
	RoomTTL time.Duration `yaml:"room_ttl"`

	// BandwidthLimit caps bytes/sec bridged per direction, per room
	// (0 = unlimited).
	BandwidthLimit int `yaml:"bandwidth_limit"`

	// MetricsAddress, when non-empty, serves Prometheus metrics on this
	// address.
	MetricsAddress string `yaml:"metrics_address"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ClientConfig configures a sending or receiving client.
type ClientConfig struct {
	// RelayAddress is the host:port of the relay's control channel.
	RelayAddress string `yaml:"relay_address"`

	// RelayPassword authenticates the client to the relay control
	// channel.
	RelayPassword string `yaml:"relay_password"`

	// MultiplexPassword authenticates the client to the relay's bulk
	// data listener.
	MultiplexPassword string `yaml:"multiplex_password"`

	// DisableLocal skips advertising local network interface addresses
	// during IP exchange.
	DisableLocal bool `yaml:"disable_local"`

	// NoCompress disables archive compression before sending.
	NoCompress bool `yaml:"no_compress"`

	// HashAlgorithm names the file-integrity hash ("md5" or "sha256").
	HashAlgorithm string `yaml:"hash_algorithm"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultRelayConfig returns a RelayConfig with the defaults a standalone
// relay runs with.
func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		Address:           ":9009",
		MultiplexPorts:    []string{":9010"},
		Password:          "pass123",
		MultiplexPassword: "pass123",
		RoomTTL:           10 * time.Minute,
		BandwidthLimit:    0,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// DefaultClientConfig returns a ClientConfig with the defaults a croc-go
// send/receive invocation runs with.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RelayAddress:      "localhost:9009",
		RelayPassword:     "pass123",
		MultiplexPassword: "pass123",
		HashAlgorithm:     "sha256",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadRelayConfig reads and parses a relay configuration file, applying
// defaults for anything the file leaves unset.
func LoadRelayConfig(path string) (*RelayConfig, error) {
	cfg := DefaultRelayConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read relay config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse relay config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("relay config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig reads and parses a client configuration file, applying
// defaults for anything the file leaves unset.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the relay configuration for errors.
func (c *RelayConfig) Validate() error {
	var errs []string
	if c.Address == "" {
		errs = append(errs, "address is required")
	}
	if c.RoomTTL <= 0 {
		errs = append(errs, "room_ttl must be positive")
	}
	if !isValidLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log_level: %s", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Validate checks the client configuration for errors.
func (c *ClientConfig) Validate() error {
	var errs []string
	if c.RelayAddress == "" {
		errs = append(errs, "relay_address is required")
	}
	if c.HashAlgorithm != "md5" && c.HashAlgorithm != "sha256" {
		errs = append(errs, fmt.Sprintf("invalid hash_algorithm: %s", c.HashAlgorithm))
	}
	if !isValidLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log_level: %s", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a YAML representation of the relay config with the
// password fields redacted. Safe to log.
func (c *RelayConfig) String() string {
	redacted := *c
	if redacted.Password != "" {
		redacted.Password = redactedValue
	}
	if redacted.MultiplexPassword != "" {
		redacted.MultiplexPassword = redactedValue
	}
	data, _ := yaml.Marshal(redacted)
	return string(data)
}

// String returns a YAML representation of the client config with the
// password fields redacted. Safe to log.
func (c *ClientConfig) String() string {
	redacted := *c
	if redacted.RelayPassword != "" {
		redacted.RelayPassword = redactedValue
	}
	if redacted.MultiplexPassword != "" {
		redacted.MultiplexPassword = redactedValue
	}
	data, _ := yaml.Marshal(redacted)
	return string(data)
}

const redactedValue = "[REDACTED]"

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their
// values, supporting ${VAR:-default} fallback syntax.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}
		if idx := strings.Index(name, ":-"); idx != -1 {
			varName := name[:idx]
			defaultVal := name[idx+2:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
