package config

import (
	"path/filepath"
	"strings"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// ValidateTemperature rejects values outside the accepted sampling range
func ValidateTemperature(t float64) error {
	if t < MinTemperature || t > MaxTemperature {
		return errors.Errorf("temperature %v out of range [%v, %v]", t, MinTemperature, MaxTemperature)
	}
	return nil
}

// ValidateProfileName accepts only a single path element. A profile writes
// into <output_dir>/<name>.
func ValidateProfileName(name string) error {
	if name == "" {
		return errors.New("name must not be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return errors.Errorf("name '%s' must be a single path element", name)
	}
	return nil
}

// Validate checks the loaded configuration before any request is sent
func (c *Config) Validate() error {
	if _, _, err := llm.ParseModelString(c.Model); err != nil {
		return errors.Wrap(err, "model")
	}
	if c.Temperature != nil {
		if err := ValidateTemperature(*c.Temperature); err != nil {
			return err
		}
	}
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	if c.RequestsPerMinute < 0 {
		return errors.New("requests_per_minute must not be negative")
	}
	if c.BatchConcurrency < 0 {
		return errors.New("batch_concurrency must not be negative")
	}
	if err := c.Retry.Validate(); err != nil {
		return errors.Wrap(err, "retry")
	}

	seen := make(map[string]struct{}, len(c.Profiles))
	for i, p := range c.Profiles {
		if err := ValidateProfileName(p.Name); err != nil {
			return errors.Wrapf(err, "profiles[%d]", i)
		}
		if _, ok := seen[p.Name]; ok {
			return errors.Errorf("profiles[%d]: duplicate name '%s'", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.Model != "" {
			if _, _, err := llm.ParseModelString(p.Model); err != nil {
				return errors.Wrapf(err, "profile '%s' model", p.Name)
			}
		}
		if p.Temperature != nil {
			if err := ValidateTemperature(*p.Temperature); err != nil {
				return errors.Wrapf(err, "profile '%s'", p.Name)
			}
		}
		if p.MaxTokens < 0 {
			return errors.Errorf("profile '%s': max_tokens must not be negative", p.Name)
		}
	}
	return nil
}
