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
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// entry is an item stored in the region. It is also a node of the doubly
// linked list that keeps the entries in access order.
type entry[V any] struct {
	key   string
	value V
	// createdAt is when the value was stored, it starts the live clock.
	createdAt time.Time
	// accessedAt is the last read of the value, it starts the idle clock.
	accessedAt time.Time
	timeToIdle time.Duration
	timeToLive time.Duration
	prev       *entry[V]
	next       *entry[V]
}

// expiresAt returns the earliest of the live and idle deadlines, or the zero
// time if the entry is eternal.
func (e *entry[V]) expiresAt() time.Time {
	var t time.Time
	if e.timeToLive > 0 {
		t = e.createdAt.Add(e.timeToLive)
	}
	if e.timeToIdle > 0 {
		idle := e.accessedAt.Add(e.timeToIdle)
		if t.IsZero() || idle.Before(t) {
			t = idle
		}
	}
	return t
}

func (e *entry[V]) expired(now time.Time) bool {
	t := e.expiresAt()
	return !t.IsZero() && !t.After(now)
}

// Region is a named, bounded, thread-safe in-memory key/value store.
// All methods are safe for concurrent use.
//
// Entries expire when either their time-to-live (counted from the last write)
// or their time-to-idle (counted from the last read) elapses. Expired entries
// are removed lazily when they are accessed and periodically by a janitor
// goroutine. When the region holds more than its maximum number of entries,
// expired entries are reaped first and then the least recently used entries
// are evicted.
//
// Every change is reported to the registered listeners as an Event. An
// entry is removed from the index in the same critical section that decides
// its fate, so each expiration is reported exactly once.
//
//	       least recently used                 most recently used
//	┌───────┐  ┌───────┐   ┌───────┐     ┌───────┐   ┌───────┐  ┌───────┐
//	│       │  │       │   │       │ ... │       │   │       │  │       │
//	│ HEAD  │◄►│ entry │◄─►│ entry │◄───►│ entry │◄─►│ entry │◄►│ TAIL  │
//	│       │  │       │   │       │     │       │   │       │  │       │
//	└───────┘  └───────┘   └───────┘     └───────┘   └───────┘  └───────┘
//
// Use the New function to create a region that is ready to use.
type Region[V any] struct {
	name  string
	index map[string]*entry[V]
	head  *entry[V]
	tail  *entry[V]

	maxEntries int
	timeToIdle time.Duration
	timeToLive time.Duration

	metrics  *regionMetrics
	notifier notifier[V]
	janitor  *janitor
	snapshot *snapshot
	log      logr.Logger

	disposed bool
	mu       sync.Mutex
}

// New creates a new region with the given name and options.
func New[V any](name string, opts ...Option) (*Region[V], error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	opt, err := makeOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}

	head := &entry[V]{}
	tail := &entry[V]{}
	head.next = tail
	tail.prev = head

	r := &Region[V]{
		name:       name,
		index:      make(map[string]*entry[V]),
		head:       head,
		tail:       tail,
		maxEntries: opt.maxEntries,
		timeToIdle: opt.timeToIdle,
		timeToLive: opt.timeToLive,
		log:        opt.logger.WithValues("region", name),
	}

	if opt.registerer != nil {
		m, err := newRegionMetrics(opt.metricsPrefix, name, opt.registerer)
		if err != nil {
			return nil, &Error{Region: name, Reason: ErrInvalidOption, Err: err}
		}
		r.metrics = m
		recordItems(r.metrics, 0)
	}

	if opt.snapshotPath != "" {
		s, err := openSnapshot(opt.snapshotPath, name)
		if err != nil {
			return nil, &Error{Region: name, Reason: ErrSnapshot, Err: err}
		}
		r.snapshot = s
		n, err := r.load()
		if err != nil {
			return nil, &Error{Region: name, Reason: ErrSnapshot, Err: errors.Join(err, s.close())}
		}
		r.log.V(1).Info("snapshot loaded", "path", opt.snapshotPath, "entries", n)
	}

	r.janitor = newJanitor(opt.interval, percentJitter(opt.jitter, nil))
	go r.janitor.run(r.deleteExpired)

	return r, nil
}

// Name returns the name of the region.
func (r *Region[V]) Name() string {
	return r.name
}

// TimeToLive returns the default time-to-live of the region's entries.
func (r *Region[V]) TimeToLive() time.Duration {
	return r.timeToLive
}

// TimeToIdle returns the default time-to-idle of the region's entries.
func (r *Region[V]) TimeToIdle() time.Duration {
	return r.timeToIdle
}

// MaxEntries returns the capacity of the region, zero if unbounded.
func (r *Region[V]) MaxEntries() int {
	return r.maxEntries
}

// Get returns the value stored for key and whether it was found. An expired
// entry is removed and reported as not found. A hit resets the idle clock of
// the entry.
func (r *Region[V]) Get(key string) (V, bool, error) {
	var res V
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return res, false, ErrRegionDisposed
	}
	now := time.Now()
	e, events := r.lookupLocked(key, now)
	if e == nil {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusSuccess)
		recordEvent(r.metrics, CacheEventTypeMiss)
		r.dispatch(events)
		return res, false, nil
	}
	r.touchLocked(e, now)
	res = e.value
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	recordEvent(r.metrics, CacheEventTypeHit)
	return res, true, nil
}

// GetAll returns the values stored for the given keys. Keys that are not
// found are absent from the result.
func (r *Region[V]) GetAll(keys []string) (map[string]V, error) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return nil, ErrRegionDisposed
	}
	now := time.Now()
	res := make(map[string]V, len(keys))
	var events []Event[V]
	for _, key := range keys {
		e, evs := r.lookupLocked(key, now)
		events = append(events, evs...)
		if e == nil {
			recordEvent(r.metrics, CacheEventTypeMiss)
			continue
		}
		r.touchLocked(e, now)
		res[key] = e.value
		recordEvent(r.metrics, CacheEventTypeHit)
	}
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return res, nil
}

// Put stores value for key, replacing any existing value and restarting its
// clocks. A zero ttl applies the region's time-to-idle and time-to-live, a
// positive ttl overrides both for this entry only.
func (r *Region[V]) Put(key string, value V, ttl time.Duration) error {
	if err := validate(key, ttl); err != nil {
		recordRequest(r.metrics, StatusFailure)
		return err
	}
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return ErrRegionDisposed
	}
	events := r.putLocked(key, value, ttl, time.Now())
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return nil
}

// PutAll stores all the given entries under a single lock acquisition, with
// the same ttl semantics as Put. The batch is not transactional: capacity
// evictions may drop entries of the batch itself.
func (r *Region[V]) PutAll(entries map[string]V, ttl time.Duration) error {
	for key := range entries {
		if err := validate(key, ttl); err != nil {
			recordRequest(r.metrics, StatusFailure)
			return err
		}
	}
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return ErrRegionDisposed
	}
	now := time.Now()
	var events []Event[V]
	for key, value := range entries {
		events = append(events, r.putLocked(key, value, ttl, now)...)
	}
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return nil
}

// PutIfAbsent stores value for key only if the key holds no live value.
// It returns the existing value and true if one was found, in which case the
// region is left untouched. The check and the insert are atomic.
func (r *Region[V]) PutIfAbsent(key string, value V, ttl time.Duration) (V, bool, error) {
	var res V
	if err := validate(key, ttl); err != nil {
		recordRequest(r.metrics, StatusFailure)
		return res, false, err
	}
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return res, false, ErrRegionDisposed
	}
	now := time.Now()
	e, events := r.lookupLocked(key, now)
	if e != nil {
		res = e.value
		r.mu.Unlock()
		recordRequest(r.metrics, StatusSuccess)
		return res, true, nil
	}
	events = append(events, r.putLocked(key, value, ttl, now)...)
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return res, false, nil
}

// ContainsKey reports whether key holds a live value. Unlike Get, it does not
// reset the idle clock of the entry.
func (r *Region[V]) ContainsKey(key string) (bool, error) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return false, ErrRegionDisposed
	}
	e, events := r.lookupLocked(key, time.Now())
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return e != nil, nil
}

// Remove deletes key from the region. Does nothing if the key is not found.
func (r *Region[V]) Remove(key string) error {
	return r.RemoveAll([]string{key})
}

// RemoveAll deletes the given keys from the region. Keys that are not found
// are ignored.
func (r *Region[V]) RemoveAll(keys []string) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return ErrRegionDisposed
	}
	var events []Event[V]
	for _, key := range keys {
		e, ok := r.index[key]
		if !ok {
			continue
		}
		r.removeLocked(e)
		recordDecrement(r.metrics)
		events = append(events, Event[V]{Kind: EventRemoved, Region: r.name, Key: e.key, Value: e.value})
	}
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return nil
}

// Clear removes all the entries of the region and leaves it usable.
// A single EventRemoveAll is emitted.
func (r *Region[V]) Clear() error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return ErrRegionDisposed
	}
	r.index = make(map[string]*entry[V])
	r.head.next = r.tail
	r.tail.prev = r.head
	r.mu.Unlock()
	recordItems(r.metrics, 0)
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch([]Event[V]{{Kind: EventRemoveAll, Region: r.name}})
	return nil
}

// Keys returns the keys of the live entries, least recently used first.
// Expired entries found while listing are removed.
func (r *Region[V]) Keys() ([]string, error) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		recordRequest(r.metrics, StatusFailure)
		return nil, ErrRegionDisposed
	}
	events := r.deleteExpiredLocked(time.Now())
	keys := make([]string, 0, len(r.index))
	for e := r.head.next; e != r.tail; e = e.next {
		keys = append(keys, e.key)
	}
	r.mu.Unlock()
	recordRequest(r.metrics, StatusSuccess)
	r.dispatch(events)
	return keys, nil
}

// Len returns the number of entries held by the region, including expired
// entries that have not been removed yet.
func (r *Region[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}

// Dispose stops the expiration sweep, writes the snapshot if one is
// configured and emits EventDisposed. Every operation on a disposed region
// returns ErrRegionDisposed.
func (r *Region[V]) Dispose() error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return ErrRegionDisposed
	}
	r.disposed = true
	recordItems(r.metrics, 0)
	var records map[string][]byte
	var err error
	if r.snapshot != nil {
		records, err = r.encodeLocked(time.Now())
	}
	r.mu.Unlock()

	r.janitor.stop()

	if r.snapshot != nil {
		if err == nil {
			err = r.snapshot.write(records)
		}
		if err = errors.Join(err, r.snapshot.close()); err != nil {
			err = &Error{Region: r.name, Reason: ErrSnapshot, Err: err}
		}
	}

	r.dispatch([]Event[V]{{Kind: EventDisposed, Region: r.name}})
	r.notifier.reset()
	r.log.V(1).Info("region disposed")
	return err
}

// lookupLocked returns the live entry for key. An expired entry is removed
// and its EventExpired returned.
func (r *Region[V]) lookupLocked(key string, now time.Time) (*entry[V], []Event[V]) {
	e, ok := r.index[key]
	if !ok {
		return nil, nil
	}
	if e.expired(now) {
		return nil, []Event[V]{r.expireLocked(e)}
	}
	return e, nil
}

func (r *Region[V]) putLocked(key string, value V, ttl time.Duration, now time.Time) []Event[V] {
	var events []Event[V]
	if e, ok := r.index[key]; ok {
		if !e.expired(now) {
			e.value = value
			r.resetLocked(e, ttl, now)
			r.unlink(e)
			r.pushBack(e)
			return append(events, Event[V]{Kind: EventUpdate, Region: r.name, Key: key, Value: value})
		}
		events = append(events, r.expireLocked(e))
	}

	e := &entry[V]{key: key, value: value}
	r.resetLocked(e, ttl, now)
	r.index[key] = e
	r.pushBack(e)
	recordItemIncrement(r.metrics)
	events = append(events, Event[V]{Kind: EventPut, Region: r.name, Key: key, Value: value})
	return append(events, r.enforceCapacityLocked(now)...)
}

// resetLocked restarts the clocks of e and applies the ttl override.
func (r *Region[V]) resetLocked(e *entry[V], ttl time.Duration, now time.Time) {
	e.createdAt = now
	e.accessedAt = now
	e.timeToIdle, e.timeToLive = r.timeToIdle, r.timeToLive
	if ttl > 0 {
		e.timeToIdle, e.timeToLive = ttl, ttl
	}
}

// enforceCapacityLocked reaps expired entries and then evicts the least
// recently used ones until the region fits its capacity.
func (r *Region[V]) enforceCapacityLocked(now time.Time) []Event[V] {
	if r.maxEntries <= 0 || len(r.index) <= r.maxEntries {
		return nil
	}
	events := r.deleteExpiredLocked(now)
	for len(r.index) > r.maxEntries {
		e := r.head.next
		if e == r.tail {
			break
		}
		r.removeLocked(e)
		recordEviction(r.metrics)
		events = append(events, Event[V]{Kind: EventEvicted, Region: r.name, Key: e.key, Value: e.value})
	}
	return events
}

func (r *Region[V]) expireLocked(e *entry[V]) Event[V] {
	r.removeLocked(e)
	recordExpiration(r.metrics)
	return Event[V]{Kind: EventExpired, Region: r.name, Key: e.key, Value: e.value}
}

// deleteExpiredLocked removes all expired entries.
// This is O(n): idle deadlines move on every read, so entries cannot be kept
// sorted by expiration time cheaply.
func (r *Region[V]) deleteExpiredLocked(now time.Time) []Event[V] {
	var events []Event[V]
	for e := r.head.next; e != r.tail; {
		next := e.next
		if e.expired(now) {
			events = append(events, r.expireLocked(e))
		}
		e = next
	}
	return events
}

// deleteExpired is called by the janitor.
func (r *Region[V]) deleteExpired() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	events := r.deleteExpiredLocked(time.Now())
	r.mu.Unlock()
	r.dispatch(events)
}

func (r *Region[V]) touchLocked(e *entry[V], now time.Time) {
	e.accessedAt = now
	r.unlink(e)
	r.pushBack(e)
}

func (r *Region[V]) removeLocked(e *entry[V]) {
	r.unlink(e)
	delete(r.index, e.key)
}

func (r *Region[V]) pushBack(e *entry[V]) {
	prev := r.tail.prev
	prev.next = e
	e.prev = prev
	e.next = r.tail
	r.tail.prev = e
}

func (r *Region[V]) unlink(e *entry[V]) {
	e.prev.next, e.next.prev = e.next, e.prev
	e.next, e.prev = nil, nil // avoid memory leaks
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	return nil
}
