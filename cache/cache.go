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

	"github.com/FISHStack/J2Cache/region"
)

// RegionCache adapts a region to the TTLCache contract and bridges the
// expirations of the region to an ExpiredListener.
//
// The region is borrowed: RegionCache never disposes it. Operations on a
// region that was disposed by its owner return an error with the
// ErrCacheException reason.
//
// RegionCache holds no mutable state of its own. Atomicity, including the
// compare and set of PutIfAbsent, is provided by the region.
type RegionCache[V any] struct {
	region *region.Region[V]
	bridge *ExpirationBridge[V]
}

var _ TTLCache[any] = &RegionCache[any]{}

// NewRegionCache returns a cache backed by r. The expirations of r are
// forwarded to listener, which may be nil to discard them.
func NewRegionCache[V any](r *region.Region[V], listener ExpiredListener, opts ...Options) (*RegionCache[V], error) {
	if r == nil {
		return nil, invalidArgument("region must not be nil")
	}
	bridge, err := NewExpirationBridge[V](listener, opts...)
	if err != nil {
		return nil, err
	}
	if err := bridge.Register(r); err != nil {
		return nil, err
	}
	return &RegionCache[V]{region: r, bridge: bridge}, nil
}

// Region returns the name of the underlying region.
func (c *RegionCache[V]) Region() string {
	return c.region.Name()
}

// TimeToLive returns the default time-to-live of the region.
func (c *RegionCache[V]) TimeToLive() time.Duration {
	return c.region.TimeToLive()
}

// Get returns the value stored for key. An empty key is reported as not
// found.
func (c *RegionCache[V]) Get(key string) (V, bool, error) {
	var res V
	if key == "" {
		return res, false, nil
	}
	res, ok, err := c.region.Get(key)
	if err != nil {
		return res, false, wrapRegionError(err)
	}
	return res, ok, nil
}

// GetAll returns the values stored for keys. Keys that are not found, and
// empty keys, are absent from the result.
func (c *RegionCache[V]) GetAll(keys []string) (map[string]V, error) {
	lookup := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			lookup = append(lookup, key)
		}
	}
	res, err := c.region.GetAll(lookup)
	if err != nil {
		return nil, wrapRegionError(err)
	}
	return res, nil
}

// Put stores value for key with the default expiration of the region.
func (c *RegionCache[V]) Put(key string, value V) error {
	return c.PutWithTTL(key, value, 0)
}

// PutWithTTL stores value for key, replacing any existing value and
// restarting its clocks. A zero ttl uses the time-to-idle and time-to-live of
// the region, a positive ttl overrides both for this entry.
func (c *RegionCache[V]) PutWithTTL(key string, value V, ttl time.Duration) error {
	return wrapRegionError(c.region.Put(key, value, ttl))
}

// PutIfAbsent stores value for key unless the key holds a live value, in
// which case the existing value is returned with true and left untouched.
func (c *RegionCache[V]) PutIfAbsent(key string, value V, ttl time.Duration) (V, bool, error) {
	prev, loaded, err := c.region.PutIfAbsent(key, value, ttl)
	if err != nil {
		return prev, false, wrapRegionError(err)
	}
	return prev, loaded, nil
}

// PutAll stores the entries with the default expiration of the region.
func (c *RegionCache[V]) PutAll(entries map[string]V) error {
	return c.PutAllWithTTL(entries, 0)
}

// PutAllWithTTL stores the entries in one batch. The batch is not
// transactional.
func (c *RegionCache[V]) PutAllWithTTL(entries map[string]V, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	return wrapRegionError(c.region.PutAll(entries, ttl))
}

// Evict removes the given keys. Keys that are not found are ignored.
func (c *RegionCache[V]) Evict(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrapRegionError(c.region.RemoveAll(keys))
}

// Exists reports whether key holds a live value. An empty key does not.
func (c *RegionCache[V]) Exists(key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	ok, err := c.region.ContainsKey(key)
	if err != nil {
		return false, wrapRegionError(err)
	}
	return ok, nil
}

// Keys returns the keys of the live entries.
func (c *RegionCache[V]) Keys() ([]string, error) {
	keys, err := c.region.Keys()
	if err != nil {
		return nil, wrapRegionError(err)
	}
	return keys, nil
}

// Clear removes all the entries of the region.
func (c *RegionCache[V]) Clear() error {
	return wrapRegionError(c.region.Clear())
}

// Close stops forwarding the expirations of the region. The region itself is
// left untouched.
func (c *RegionCache[V]) Close() error {
	c.bridge.Dispose()
	return nil
}
