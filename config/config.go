/*
Copyright 2026 The J2Cache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the region definitions used to build caches.
//
// A configuration holds the settings applied to every region and per-region
// overrides. Fields left out of an override inherit the default value:
//
//	defaults:
//	  maxEntries: 1000
//	  timeToIdle: 30m
//	  timeToLive: 1h
//	regions:
//	  users:
//	    maxEntries: 100
//	    timeToLive: 5m
//	snapshotDir: /var/lib/j2cache
//	metricsPrefix: j2cache_
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

const (
	flagConfigPath = "cache-config"

	// DefaultMaxEntries is the capacity of a region when none is configured.
	DefaultMaxEntries = 1000
	// DefaultCleanupInterval is the expiration sweep interval when none is
	// configured.
	DefaultCleanupInterval = time.Minute
)

// RegionConfig holds the settings of a region. Nil fields are inherited from
// the defaults.
type RegionConfig struct {
	// MaxEntries bounds the number of entries of the region, zero means
	// unbounded.
	MaxEntries *int `json:"maxEntries,omitempty"`
	// TimeToIdle expires entries not read for this long, zero disables it.
	TimeToIdle *metav1.Duration `json:"timeToIdle,omitempty"`
	// TimeToLive expires entries written this long ago, zero disables it.
	TimeToLive *metav1.Duration `json:"timeToLive,omitempty"`
	// CleanupInterval is the period of the expiration sweep.
	CleanupInterval *metav1.Duration `json:"cleanupInterval,omitempty"`
	// CleanupJitter modifies each sweep interval by a random percentage
	// between -CleanupJitter and CleanupJitter. It must be in [0, 1).
	CleanupJitter *float64 `json:"cleanupJitter,omitempty"`
}

// Config is the configuration of a cache provider.
type Config struct {
	Defaults RegionConfig            `json:"defaults,omitempty"`
	Regions  map[string]RegionConfig `json:"regions,omitempty"`
	// SnapshotDir enables region persistence. Each region is stored in
	// <SnapshotDir>/<name>.bbolt.
	SnapshotDir string `json:"snapshotDir,omitempty"`
	// MetricsPrefix is prepended to the name of every metric.
	MetricsPrefix string `json:"metricsPrefix,omitempty"`
}

// Settings are the resolved settings of a region.
type Settings struct {
	MaxEntries      int
	TimeToIdle      time.Duration
	TimeToLive      time.Duration
	CleanupInterval time.Duration
	CleanupJitter   float64
	SnapshotPath    string
}

// Default returns a configuration with bounded, eternal regions.
func Default() *Config {
	maxEntries := DefaultMaxEntries
	return &Config{
		Defaults: RegionConfig{
			MaxEntries:      &maxEntries,
			CleanupInterval: &metav1.Duration{Duration: DefaultCleanupInterval},
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML or JSON configuration on top of Default and validates
// the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that no setting is negative and that region names are
// not empty.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Defaults.validate(); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	for name, rc := range c.Regions {
		if err := ValidateRegionName(name); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := rc.validate(); err != nil {
			errs = append(errs, fmt.Errorf("region '%s': %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateRegionName returns an error if name cannot name a region. The name
// is part of the snapshot file name, so it must not hold a path separator or
// a parent directory reference.
func ValidateRegionName(name string) error {
	switch {
	case name == "":
		return errors.New("region name must not be empty")
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("region name '%s' must not contain a path separator", name)
	case name == "." || strings.Contains(name, ".."):
		return fmt.Errorf("region name '%s' must not reference a parent directory", name)
	}
	return nil
}

func (rc RegionConfig) validate() error {
	var errs []error
	if rc.MaxEntries != nil && *rc.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("maxEntries must not be negative, got %d", *rc.MaxEntries))
	}
	if rc.CleanupJitter != nil && (*rc.CleanupJitter < 0 || *rc.CleanupJitter >= 1) {
		errs = append(errs, fmt.Errorf("cleanupJitter must be in [0, 1), got %v", *rc.CleanupJitter))
	}
	for field, d := range map[string]*metav1.Duration{
		"timeToIdle":      rc.TimeToIdle,
		"timeToLive":      rc.TimeToLive,
		"cleanupInterval": rc.CleanupInterval,
	} {
		if d != nil && d.Duration < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", field, d.Duration))
		}
	}
	return errors.Join(errs...)
}

// Region returns the settings of the named region, merging its overrides
// with the defaults. A name rejected by ValidateRegionName gets no snapshot
// path.
func (c *Config) Region(name string) Settings {
	s := Settings{CleanupInterval: DefaultCleanupInterval}
	s.apply(c.Defaults)
	if rc, ok := c.Regions[name]; ok {
		s.apply(rc)
	}
	if c.SnapshotDir != "" && ValidateRegionName(name) == nil {
		s.SnapshotPath = filepath.Join(c.SnapshotDir, name+".bbolt")
	}
	return s
}

func (s *Settings) apply(rc RegionConfig) {
	if rc.MaxEntries != nil {
		s.MaxEntries = *rc.MaxEntries
	}
	if rc.TimeToIdle != nil {
		s.TimeToIdle = rc.TimeToIdle.Duration
	}
	if rc.TimeToLive != nil {
		s.TimeToLive = rc.TimeToLive.Duration
	}
	if rc.CleanupInterval != nil {
		s.CleanupInterval = rc.CleanupInterval.Duration
	}
	if rc.CleanupJitter != nil {
		s.CleanupJitter = *rc.CleanupJitter
	}
}

// Options contains the command line options for locating the configuration.
type Options struct {
	Path string
}

// BindFlags will parse the given pflag.FlagSet for config option flags and
// set the Options accordingly.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Path, flagConfigPath, "",
		"Path to the YAML file defining the cache regions. Defaults are used when empty.")
}

// Load returns the configuration at Path, or Default if Path is empty.
func (o Options) Load() (*Config, error) {
	if o.Path == "" {
		return Default(), nil
	}
	return Load(o.Path)
}
