// Package config defines the construction-time configuration for the
// admission gate and loads it from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ClassConfig holds the quota parameters for one policy class.
type ClassConfig struct {
	Name            string   `yaml:"name"`
	PathPrefixes    []string `yaml:"path_prefixes,omitempty"`
	Capacity        int64    `yaml:"capacity"`
	IntervalSeconds int      `yaml:"interval_seconds"`
}

// RegistryConfig tunes bucket eviction.
type RegistryConfig struct {
	TTLSeconds     int `yaml:"ttl_seconds"`
	SweepThreshold int `yaml:"sweep_threshold"`
	SweepEvery     int `yaml:"sweep_every"`
}

// IdentityConfig selects the client identification strategy.
type IdentityConfig struct {
	// Strategy is "forwarded_for" (trust the first X-Forwarded-For hop,
	// fall back to the peer address) or "peer_address". Empty means
	// forwarded_for.
	Strategy string `yaml:"strategy,omitempty"`
}

// Config is the full construction-time surface of the admission gate.
type Config struct {
	// General is the class applied to every path no other class claims.
	General ClassConfig `yaml:"general"`
	// Classes are matched by path prefix, longest prefix first.
	Classes  []ClassConfig  `yaml:"classes,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Identity IdentityConfig `yaml:"identity,omitempty"`
}

// Default returns the stock configuration: a low-quota class for the
// authentication namespace and a higher-quota general class, both on a
// one-minute window.
func Default() Config {
	return Config{
		General: ClassConfig{
			Name:            "general",
			Capacity:        100,
			IntervalSeconds: 60,
		},
		Classes: []ClassConfig{
			{
				Name:            "auth",
				PathPrefixes:    []string{"/api/auth"},
				Capacity:        5,
				IntervalSeconds: 60,
			},
		},
		Registry: RegistryConfig{
			TTLSeconds:     300,
			SweepThreshold: 1000,
			SweepEvery:     64,
		},
	}
}

// configFile is the top-level YAML document shape.
type configFile struct {
	Admission Config `yaml:"admission"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("unmarshal config file %s: %w", path, err)
	}
	if err := cf.Admission.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cf.Admission, nil
}

// Validate checks the quota parameters of every class.
func (c *Config) Validate() error {
	if err := c.General.validate(); err != nil {
		return fmt.Errorf("general class: %w", err)
	}
	for _, class := range c.Classes {
		if err := class.validate(); err != nil {
			return fmt.Errorf("class '%s': %w", class.Name, err)
		}
		if len(class.PathPrefixes) == 0 {
			return fmt.Errorf("class '%s': missing path_prefixes", class.Name)
		}
	}
	return nil
}

func (cc *ClassConfig) validate() error {
	if cc.Name == "" {
		return fmt.Errorf("missing name")
	}
	if cc.Capacity <= 0 {
		return fmt.Errorf("capacity must be > 0, got %d", cc.Capacity)
	}
	if cc.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be > 0, got %d", cc.IntervalSeconds)
	}
	return nil
}
