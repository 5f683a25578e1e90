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
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type bridgeMetrics struct {
	// expiredNotificationsCounter counts the expirations delivered to the
	// listener.
	expiredNotificationsCounter prometheus.Counter
	listenerFailuresCounter     prometheus.Counter
}

// newBridgeMetrics returns the metrics of the bridge attached to the named
// region. A bridge that is built again for the same region reuses the
// collectors already registered.
func newBridgeMetrics(prefix, name string, reg prometheus.Registerer) *bridgeMetrics {
	labels := prometheus.Labels{"region": name}
	return &bridgeMetrics{
		expiredNotificationsCounter: registerCounter(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        fmt.Sprintf("%scache_expired_notifications_total", prefix),
				Help:        "Total number of expirations delivered to the expiration listener.",
				ConstLabels: labels,
			},
		)),
		listenerFailuresCounter: registerCounter(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        fmt.Sprintf("%scache_listener_failures_total", prefix),
				Help:        "Total number of expiration notifications that failed in the listener.",
				ConstLabels: labels,
			},
		)),
	}
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) prometheus.Counter {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *bridgeMetrics) incExpiredNotifications() {
	m.expiredNotificationsCounter.Inc()
}

func (m *bridgeMetrics) incListenerFailures() {
	m.listenerFailuresCounter.Inc()
}

func recordNotification(metrics *bridgeMetrics) {
	if metrics != nil {
		metrics.incExpiredNotifications()
	}
}

func recordListenerFailure(metrics *bridgeMetrics) {
	if metrics != nil {
		metrics.incListenerFailures()
	}
}
