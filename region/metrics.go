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
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// CacheEventTypeMiss is the event type for cache misses.
	CacheEventTypeMiss = "cache_miss"
	// CacheEventTypeHit is the event type for cache hits.
	CacheEventTypeHit = "cache_hit"
	// StatusSuccess is the status for successful region requests.
	StatusSuccess = "success"
	// StatusFailure is the status for failed region requests.
	StatusFailure = "failure"
)

type regionMetrics struct {
	cacheEventsCounter     *prometheus.CounterVec
	cacheItemsGauge        prometheus.Gauge
	cacheRequestsCounter   *prometheus.CounterVec
	cacheEvictionCounter   prometheus.Counter
	cacheExpirationCounter prometheus.Counter
}

// newRegionMetrics returns the metrics of the named region. The region name
// is a constant label so that many regions can share a registerer. A region
// rebuilt with the name of a previous region on the same registerer reuses
// the collectors already registered.
func newRegionMetrics(prefix, name string, reg prometheus.Registerer) (*regionMetrics, error) {
	labels := prometheus.Labels{"region": name}
	m := &regionMetrics{
		cacheEventsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        fmt.Sprintf("%scache_events_total", prefix),
				Help:        "Total number of cache retrieval events partitioned by hit or miss.",
				ConstLabels: labels,
			},
			[]string{"event_type"},
		),
		cacheItemsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        fmt.Sprintf("%scached_items", prefix),
				Help:        "Total number of items in the cache.",
				ConstLabels: labels,
			},
		),
		cacheRequestsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        fmt.Sprintf("%scache_requests_total", prefix),
				Help:        "Total number of cache requests partitioned by success or failure.",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
		cacheEvictionCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        fmt.Sprintf("%scache_evictions_total", prefix),
				Help:        "Total number of cache evictions due to capacity.",
				ConstLabels: labels,
			},
		),
		cacheExpirationCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        fmt.Sprintf("%scache_expirations_total", prefix),
				Help:        "Total number of cache entries expired by time-to-live or time-to-idle.",
				ConstLabels: labels,
			},
		),
	}

	var err error
	if m.cacheEventsCounter, err = registerCollector(reg, m.cacheEventsCounter); err != nil {
		return nil, err
	}
	if m.cacheItemsGauge, err = registerCollector(reg, m.cacheItemsGauge); err != nil {
		return nil, err
	}
	if m.cacheRequestsCounter, err = registerCollector(reg, m.cacheRequestsCounter); err != nil {
		return nil, err
	}
	if m.cacheEvictionCounter, err = registerCollector(reg, m.cacheEvictionCounter); err != nil {
		return nil, err
	}
	if m.cacheExpirationCounter, err = registerCollector(reg, m.cacheExpirationCounter); err != nil {
		return nil, err
	}
	return m, nil
}

// registerCollector registers c with reg, or returns the equal collector
// that is already registered.
func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

func (m *regionMetrics) incCacheEvents(event string) {
	m.cacheEventsCounter.WithLabelValues(event).Inc()
}

func (m *regionMetrics) setCachedItems(value float64) {
	m.cacheItemsGauge.Set(value)
}

func (m *regionMetrics) incCacheItems() {
	m.cacheItemsGauge.Inc()
}

func (m *regionMetrics) decCacheItems() {
	m.cacheItemsGauge.Dec()
}

func (m *regionMetrics) incCacheRequests(status string) {
	m.cacheRequestsCounter.WithLabelValues(status).Inc()
}

func (m *regionMetrics) incCacheEvictions() {
	m.cacheEvictionCounter.Inc()
}

func (m *regionMetrics) incCacheExpirations() {
	m.cacheExpirationCounter.Inc()
}

func recordRequest(metrics *regionMetrics, status string) {
	if metrics != nil {
		metrics.incCacheRequests(status)
	}
}

func recordEvent(metrics *regionMetrics, event string) {
	if metrics != nil {
		metrics.incCacheEvents(event)
	}
}

func recordEviction(metrics *regionMetrics) {
	if metrics != nil {
		metrics.incCacheEvictions()
		metrics.decCacheItems()
	}
}

func recordExpiration(metrics *regionMetrics) {
	if metrics != nil {
		metrics.incCacheExpirations()
		metrics.decCacheItems()
	}
}

func recordDecrement(metrics *regionMetrics) {
	if metrics != nil {
		metrics.decCacheItems()
	}
}

func recordItemIncrement(metrics *regionMetrics) {
	if metrics != nil {
		metrics.incCacheItems()
	}
}

func recordItems(metrics *regionMetrics, n int) {
	if metrics != nil {
		metrics.setCachedItems(float64(n))
	}
}
