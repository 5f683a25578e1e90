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

// Package cache provides the Cache and TTLCache interfaces for a cache tier,
// along with RegionCache, an implementation of TTLCache backed by a region.
// The data type of the value stored in the cache has to be defined when
// creating the region. For example, for storing string values
//
//	r, err := region.New[string]("users", region.WithMaxEntries(100))
//	// Handle any error.
//	...
//	c, err := NewRegionCache(r, nil)
//
// A RegionCache borrows its region, the owner of the region disposes it.
//
// The expirations of the region are forwarded to an ExpiredListener by an
// ExpirationBridge. Capacity evictions, explicit removals and updates are
// never forwarded.
//
//	listener := ExpiredListenerFunc(func(region, key string) error {
//		log.Info("expired", "region", region, "key", key)
//		return nil
//	})
//	c, err := NewRegionCache(r, listener, WithLogger(log))
//
// A Provider builds regions and their caches from a configuration and owns
// their lifecycle:
//
//	p, err := NewProvider[string](cfg, WithMetricsRegisterer(reg))
//	// Handle any error.
//	...
//	defer p.Stop()
//	c, err := p.BuildCache("users", listener)
//
// The bridge is self-instrumenting and exports the number of delivered
// notifications and listener failures if it is configured with a metrics
// registerer. The regions export their own metrics on the same registerer.
package cache
