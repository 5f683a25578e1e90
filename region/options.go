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

package region

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultInterval is the default interval for the janitor to run.
const defaultInterval = time.Minute

type regionOptions struct {
	maxEntries    int
	timeToIdle    time.Duration
	timeToLive    time.Duration
	interval      time.Duration
	jitter        float64
	registerer    prometheus.Registerer
	metricsPrefix string
	snapshotPath  string
	logger        logr.Logger
}

// Option is a function that sets the region options.
type Option func(*regionOptions) error

// WithMaxEntries bounds the number of entries held by the region. Zero means
// the region is unbounded.
func WithMaxEntries(n int) Option {
	return func(o *regionOptions) error {
		if n < 0 {
			return fmt.Errorf("%w: max entries must not be negative, got %d", ErrInvalidOption, n)
		}
		o.maxEntries = n
		return nil
	}
}

// WithTimeToIdle sets the default time-to-idle of the region's entries.
// Zero disables idle expiration.
func WithTimeToIdle(d time.Duration) Option {
	return func(o *regionOptions) error {
		if d < 0 {
			return fmt.Errorf("%w: time to idle must not be negative, got %s", ErrInvalidOption, d)
		}
		o.timeToIdle = d
		return nil
	}
}

// WithTimeToLive sets the default time-to-live of the region's entries.
// Zero disables live expiration.
func WithTimeToLive(d time.Duration) Option {
	return func(o *regionOptions) error {
		if d < 0 {
			return fmt.Errorf("%w: time to live must not be negative, got %s", ErrInvalidOption, d)
		}
		o.timeToLive = d
		return nil
	}
}

// WithCleanupInterval sets the interval of the expiration sweep.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *regionOptions) error {
		o.interval = interval
		return nil
	}
}

// WithMetricsRegisterer sets the Prometheus registerer for the region metrics.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *regionOptions) error {
		o.registerer = r
		return nil
	}
}

// WithMetricsPrefix sets the metrics prefix for the region metrics.
func WithMetricsPrefix(prefix string) Option {
	return func(o *regionOptions) error {
		o.metricsPrefix = prefix
		return nil
	}
}

// WithSnapshotPath enables persistence of the region to a bbolt database at
// the given path. The snapshot is loaded on creation and written on Persist
// and Dispose.
func WithSnapshotPath(path string) Option {
	return func(o *regionOptions) error {
		o.snapshotPath = path
		return nil
	}
}

// WithLogger sets the logger used for listener failures and lifecycle events.
func WithLogger(log logr.Logger) Option {
	return func(o *regionOptions) error {
		o.logger = log
		return nil
	}
}

// WithCleanupJitter spreads the expiration sweeps by modifying each interval
// by a random percentage between -p and p, so that regions created together
// do not sweep in lockstep. p must be in [0, 1).
func WithCleanupJitter(p float64) Option {
	return func(o *regionOptions) error {
		if p < 0 || p >= 1 {
			return fmt.Errorf("%w: cleanup jitter must be in [0, 1), got %v", ErrInvalidOption, p)
		}
		o.jitter = p
		return nil
	}
}

func makeOptions(opts ...Option) (*regionOptions, error) {
	opt := regionOptions{logger: logr.Discard()}
	for _, o := range opts {
		if err := o(&opt); err != nil {
			return nil, err
		}
	}
	if opt.interval <= 0 {
		opt.interval = defaultInterval
	}
	return &opt, nil
}
