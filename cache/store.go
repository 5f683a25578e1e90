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

package cache

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

// Cache is the uniform contract of a cache tier.
type Cache[V any] interface {
	// Get returns the value stored for key and whether it was found.
	// Absence is not an error.
	Get(key string) (V, bool, error)
	// GetAll returns the values stored for keys. Keys that are not found are
	// absent from the result.
	GetAll(keys []string) (map[string]V, error)
	// Put stores value for key with the default expiration.
	Put(key string, value V) error
	// PutAll stores all the entries with the default expiration.
	PutAll(entries map[string]V) error
	// Evict removes the given keys. Missing keys are ignored.
	Evict(keys ...string) error
	// Exists reports whether key holds a live value.
	Exists(key string) (bool, error)
	// Keys returns the keys of the live entries in no particular order.
	Keys() ([]string, error)
	// Clear removes all the entries and leaves the cache usable.
	Clear() error
}

// TTLCache is a Cache that supports a time-to-live per entry.
type TTLCache[V any] interface {
	Cache[V]
	// PutWithTTL stores value for key. A zero ttl uses the default
	// expiration, a positive ttl overrides it for this entry.
	PutWithTTL(key string, value V, ttl time.Duration) error
	// PutAllWithTTL stores all the entries with the given ttl.
	PutAllWithTTL(entries map[string]V, ttl time.Duration) error
	// PutIfAbsent stores value only if key holds no live value, and returns
	// the existing value and true otherwise.
	PutIfAbsent(key string, value V, ttl time.Duration) (V, bool, error)
	// TimeToLive returns the default time-to-live of the entries.
	TimeToLive() time.Duration
}

type storeOptions struct {
	registerer    prometheus.Registerer
	metricsPrefix string
	logger        logr.Logger
}

// Options is a function that sets the store options.
type Options func(*storeOptions) error

// WithMetricsRegisterer sets the Prometheus registerer for the cache metrics.
func WithMetricsRegisterer(r prometheus.Registerer) Options {
	return func(o *storeOptions) error {
		o.registerer = r
		return nil
	}
}

// WithMetricsPrefix sets the metrics prefix for the cache metrics.
func WithMetricsPrefix(prefix string) Options {
	return func(o *storeOptions) error {
		o.metricsPrefix = prefix
		return nil
	}
}

// WithLogger sets the logger used to report listener failures.
func WithLogger(log logr.Logger) Options {
	return func(o *storeOptions) error {
		o.logger = log
		return nil
	}
}

func makeOptions(opts ...Options) (*storeOptions, error) {
	opt := storeOptions{logger: logr.Discard()}
	for _, o := range opts {
		if err := o(&opt); err != nil {
			return nil, err
		}
	}
	return &opt, nil
}
