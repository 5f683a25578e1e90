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
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

// recorder collects the events of a region.
type recorder[V any] struct {
	mu     sync.Mutex
	events []Event[V]
}

func (r *recorder[V]) OnEvent(e Event[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder[V]) count(kind EventKind, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind && e.Key == key {
			n++
		}
	}
	return n
}

func (r *recorder[V]) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func newTestRegion[V any](t *testing.T, opts ...Option) (*Region[V], *recorder[V]) {
	t.Helper()
	g := NewWithT(t)
	r, err := New[V]("test", opts...)
	g.Expect(err).ToNot(HaveOccurred())
	t.Cleanup(func() { _ = r.Dispose() })

	rec := &recorder[V]{}
	_, err = r.RegisterListener(rec)
	g.Expect(err).ToNot(HaveOccurred())
	return r, rec
}

func TestRegion(t *testing.T) {
	t.Run("Add and update keys", func(t *testing.T) {
		g := NewWithT(t)
		r, rec := newTestRegion[string](t, WithMaxEntries(3))

		got, ok, err := r.Get("key1")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeFalse())
		g.Expect(got).To(BeEmpty())

		g.Expect(r.Put("key1", "val1", 0)).To(Succeed())
		got, ok, err = r.Get("key1")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeTrue())
		g.Expect(got).To(Equal("val1"))

		g.Expect(r.Put("key2", "val2", 0)).To(Succeed())
		g.Expect(r.Keys()).To(ConsistOf("key1", "key2"))

		// Replace an item in the region
		g.Expect(r.Put("key2", "val3", 0)).To(Succeed())
		got, _, err = r.Get("key2")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(got).To(Equal("val3"))

		g.Expect(r.Clear()).To(Succeed())
		g.Expect(r.Keys()).To(BeEmpty())
		g.Expect(r.Len()).To(Equal(0))

		// the region is usable after a clear
		g.Expect(r.Put("key3", "val4", 0)).To(Succeed())
		g.Expect(r.Keys()).To(ConsistOf("key3"))

		g.Expect(rec.kinds()).To(Equal([]EventKind{
			EventPut, EventPut, EventUpdate, EventRemoveAll, EventPut,
		}))
	})

	t.Run("Region of integer value", func(t *testing.T) {
		g := NewWithT(t)
		r, _ := newTestRegion[int](t)

		g.Expect(r.Put("key1", 4, 0)).To(Succeed())
		got, ok, err := r.Get("key1")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeTrue())
		g.Expect(got).To(Equal(4))
	})
}

func Test_Region_New(t *testing.T) {
	g := NewWithT(t)

	_, err := New[string]("")
	g.Expect(err).To(MatchError(ErrInvalidName))

	_, err = New[string]("test", WithMaxEntries(-1))
	g.Expect(err).To(MatchError(ErrInvalidOption))

	_, err = New[string]("test", WithTimeToLive(-time.Second))
	g.Expect(err).To(MatchError(ErrInvalidOption))

	_, err = New[string]("test", WithTimeToIdle(-time.Second))
	g.Expect(err).To(MatchError(ErrInvalidOption))

	r, err := New[string]("test",
		WithMaxEntries(10),
		WithTimeToIdle(time.Minute),
		WithTimeToLive(time.Hour))
	g.Expect(err).ToNot(HaveOccurred())
	defer r.Dispose()
	g.Expect(r.Name()).To(Equal("test"))
	g.Expect(r.MaxEntries()).To(Equal(10))
	g.Expect(r.TimeToIdle()).To(Equal(time.Minute))
	g.Expect(r.TimeToLive()).To(Equal(time.Hour))
}

func Test_Region_Put_InvalidArguments(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t)

	g.Expect(r.Put("", "val", 0)).To(MatchError(ErrInvalidKey))
	g.Expect(r.Put("key", "val", -time.Second)).To(MatchError(ErrInvalidTTL))
	g.Expect(r.PutAll(map[string]string{"a": "1", "": "2"}, 0)).To(MatchError(ErrInvalidKey))
	_, _, err := r.PutIfAbsent("", "val", 0)
	g.Expect(err).To(MatchError(ErrInvalidKey))

	g.Expect(r.Len()).To(Equal(0))
	g.Expect(rec.kinds()).To(BeEmpty())
}

func Test_Region_PutIfAbsent(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t)

	prev, loaded, err := r.PutIfAbsent("key", "v1", 0)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(loaded).To(BeFalse())
	g.Expect(prev).To(BeEmpty())

	prev, loaded, err = r.PutIfAbsent("key", "v2", 0)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(loaded).To(BeTrue())
	g.Expect(prev).To(Equal("v1"))

	got, _, err := r.Get("key")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got).To(Equal("v1"))
	g.Expect(rec.kinds()).To(Equal([]EventKind{EventPut}))

	// an expired value counts as absent
	g.Expect(r.Put("short", "old", 20*time.Millisecond)).To(Succeed())
	time.Sleep(40 * time.Millisecond)
	_, loaded, err = r.PutIfAbsent("short", "new", 0)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(loaded).To(BeFalse())
	got, _, err = r.Get("short")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got).To(Equal("new"))
	g.Expect(rec.count(EventExpired, "short")).To(Equal(1))
}

func Test_Region_PutIfAbsent_Concurrent(t *testing.T) {
	g := NewWithT(t)
	r, _ := newTestRegion[int](t)

	const writers = 100
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored []int
	)
	run := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-run
			_, loaded, err := r.PutIfAbsent("key", i, 0)
			if err == nil && !loaded {
				mu.Lock()
				stored = append(stored, i)
				mu.Unlock()
			}
		}()
	}
	close(run)
	wg.Wait()

	g.Expect(stored).To(HaveLen(1))
	got, ok, err := r.Get("key")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeTrue())
	g.Expect(got).To(Equal(stored[0]))
}

func Test_Region_GetAll_PutAll(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t)

	g.Expect(r.PutAll(map[string]string{"k1": "v1", "k2": "v2"}, 0)).To(Succeed())
	got, err := r.GetAll([]string{"k1", "k2", "k3"})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got).To(Equal(map[string]string{"k1": "v1", "k2": "v2"}))
	g.Expect(rec.count(EventPut, "k1")).To(Equal(1))
	g.Expect(rec.count(EventPut, "k2")).To(Equal(1))
}

func Test_Region_Remove(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t)

	g.Expect(r.PutAll(map[string]string{"k1": "v1", "k2": "v2", "k3": "v3"}, 0)).To(Succeed())
	g.Expect(r.Remove("missing")).To(Succeed())
	g.Expect(r.RemoveAll([]string{"k1", "k2", "missing"})).To(Succeed())
	g.Expect(r.Keys()).To(ConsistOf("k3"))

	ok, err := r.ContainsKey("k1")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	ok, err = r.ContainsKey("k3")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeTrue())

	g.Expect(rec.count(EventRemoved, "k1")).To(Equal(1))
	g.Expect(rec.count(EventRemoved, "k2")).To(Equal(1))
	g.Expect(rec.count(EventRemoved, "missing")).To(Equal(0))
}

func Test_Region_TimeToLive(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t, WithTimeToLive(time.Hour))

	g.Expect(r.Put("default", "v", 0)).To(Succeed())
	g.Expect(r.Put("short", "v", 50*time.Millisecond)).To(Succeed())

	// reading does not extend the live time
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		_, _, _ = r.Get("short")
	}

	_, ok, err := r.Get("short")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	_, ok, err = r.Get("short")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeFalse())

	_, ok, err = r.Get("default")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeTrue())

	g.Expect(rec.count(EventExpired, "short")).To(Equal(1))
	g.Expect(rec.count(EventExpired, "default")).To(Equal(0))
}

func Test_Region_TimeToIdle(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t, WithTimeToIdle(150*time.Millisecond))

	g.Expect(r.Put("read", "v", 0)).To(Succeed())
	g.Expect(r.Put("unread", "v", 0)).To(Succeed())

	for i := 0; i < 8; i++ {
		time.Sleep(30 * time.Millisecond)
		_, ok, err := r.Get("read")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeTrue())
	}

	ok, err := r.ContainsKey("unread")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	g.Expect(rec.count(EventExpired, "unread")).To(Equal(1))
	g.Expect(rec.count(EventExpired, "read")).To(Equal(0))
}

func Test_Region_Janitor(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t, WithCleanupInterval(5*time.Millisecond))

	g.Expect(r.Put("ttl", "v", 20*time.Millisecond)).To(Succeed())
	g.Expect(r.Put("eternal", "v", 0)).To(Succeed())

	g.Eventually(r.Len, time.Second, 5*time.Millisecond).Should(Equal(1))
	g.Expect(rec.count(EventExpired, "ttl")).To(Equal(1))
	g.Expect(r.Keys()).To(ConsistOf("eternal"))
}

func Test_Region_CapacityEviction(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t, WithMaxEntries(2))

	g.Expect(r.Put("a", "A", 0)).To(Succeed())
	g.Expect(r.Put("b", "B", 0)).To(Succeed())

	// Touch a so b becomes the least recently used.
	_, ok, err := r.Get("a")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeTrue())

	g.Expect(r.Put("c", "C", 0)).To(Succeed())
	g.Expect(r.Keys()).To(ConsistOf("a", "c"))
	g.Expect(rec.count(EventEvicted, "b")).To(Equal(1))
	g.Expect(rec.count(EventExpired, "b")).To(Equal(0))
}

func Test_Region_CapacityReapsExpiredFirst(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t, WithMaxEntries(2))

	g.Expect(r.Put("live", "v", 0)).To(Succeed())
	g.Expect(r.Put("short", "v", 10*time.Millisecond)).To(Succeed())
	time.Sleep(20 * time.Millisecond)

	g.Expect(r.Put("new", "v", 0)).To(Succeed())
	g.Expect(r.Keys()).To(ConsistOf("live", "new"))
	g.Expect(rec.count(EventExpired, "short")).To(Equal(1))
	g.Expect(rec.count(EventEvicted, "live")).To(Equal(0))
}

func Test_Region_ExpiredExactlyOnce(t *testing.T) {
	const keysNum = 50
	g := NewWithT(t)
	r, rec := newTestRegion[string](t, WithCleanupInterval(time.Millisecond))

	for i := 0; i < keysNum; i++ {
		g.Expect(r.Put(fmt.Sprintf("test-%d", i), "v", 20*time.Millisecond)).To(Succeed())
	}
	time.Sleep(20 * time.Millisecond)

	// race lazy expiration against the janitor
	wg := sync.WaitGroup{}
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < keysNum; i++ {
				key := fmt.Sprintf("test-%d", rand.IntN(keysNum))
				_, _, _ = r.Get(key)
				_, _ = r.ContainsKey(key)
			}
			_, _ = r.Keys()
		}()
	}
	wg.Wait()

	g.Eventually(r.Len, time.Second, 5*time.Millisecond).Should(Equal(0))
	for i := 0; i < keysNum; i++ {
		g.Expect(rec.count(EventExpired, fmt.Sprintf("test-%d", i))).To(Equal(1))
	}
}

func Test_Region_Listeners(t *testing.T) {
	g := NewWithT(t)
	r, rec := newTestRegion[string](t)

	_, err := r.RegisterListener(nil)
	g.Expect(err).To(MatchError(ErrInvalidOption))

	unregister, err := r.RegisterListener(ListenerFunc[string](func(Event[string]) {
		panic("boom")
	}))
	g.Expect(err).ToNot(HaveOccurred())

	// the panicking listener does not affect the operation or other listeners
	g.Expect(r.Put("key", "v", 0)).To(Succeed())
	g.Expect(rec.count(EventPut, "key")).To(Equal(1))

	unregister()
	unregister()

	other := &recorder[string]{}
	unregisterOther, err := r.RegisterListener(other)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.Remove("key")).To(Succeed())
	unregisterOther()
	g.Expect(r.Put("key", "v", 0)).To(Succeed())

	g.Expect(other.kinds()).To(Equal([]EventKind{EventRemoved}))
	g.Expect(rec.kinds()).To(Equal([]EventKind{EventPut, EventRemoved, EventPut}))
}

func Test_Region_Dispose(t *testing.T) {
	g := NewWithT(t)
	r, err := New[string]("test", WithCleanupInterval(time.Millisecond))
	g.Expect(err).ToNot(HaveOccurred())
	rec := &recorder[string]{}
	_, err = r.RegisterListener(rec)
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(r.Put("key", "v", 0)).To(Succeed())
	g.Expect(r.Dispose()).To(Succeed())
	g.Expect(r.Dispose()).To(MatchError(ErrRegionDisposed))

	g.Expect(r.Put("key", "v", 0)).To(MatchError(ErrRegionDisposed))
	_, _, err = r.Get("key")
	g.Expect(err).To(MatchError(ErrRegionDisposed))
	_, err = r.GetAll([]string{"key"})
	g.Expect(err).To(MatchError(ErrRegionDisposed))
	_, _, err = r.PutIfAbsent("key", "v", 0)
	g.Expect(err).To(MatchError(ErrRegionDisposed))
	g.Expect(r.PutAll(map[string]string{"key": "v"}, 0)).To(MatchError(ErrRegionDisposed))
	g.Expect(r.Remove("key")).To(MatchError(ErrRegionDisposed))
	g.Expect(r.Clear()).To(MatchError(ErrRegionDisposed))
	_, err = r.ContainsKey("key")
	g.Expect(err).To(MatchError(ErrRegionDisposed))
	_, err = r.Keys()
	g.Expect(err).To(MatchError(ErrRegionDisposed))
	_, err = r.RegisterListener(rec)
	g.Expect(err).To(MatchError(ErrRegionDisposed))

	g.Expect(rec.kinds()).To(Equal([]EventKind{EventPut, EventDisposed}))
}

func Test_Region_Metrics(t *testing.T) {
	g := NewWithT(t)
	reg := prometheus.NewPedanticRegistry()
	r, err := New[string]("test",
		WithMaxEntries(1),
		WithMetricsRegisterer(reg),
		WithMetricsPrefix("j2cache_"))
	g.Expect(err).ToNot(HaveOccurred())
	defer r.Dispose()

	_, _, err = r.Get("a")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.Put("a", "1", 0)).To(Succeed())
	_, _, err = r.Get("a")
	g.Expect(err).ToNot(HaveOccurred())
	// evicts a
	g.Expect(r.Put("b", "2", 0)).To(Succeed())

	validateMetrics(reg, `
	# HELP j2cache_cache_events_total Total number of cache retrieval events partitioned by hit or miss.
	# TYPE j2cache_cache_events_total counter
	j2cache_cache_events_total{event_type="cache_hit",region="test"} 1
	j2cache_cache_events_total{event_type="cache_miss",region="test"} 1
	# HELP j2cache_cache_evictions_total Total number of cache evictions due to capacity.
	# TYPE j2cache_cache_evictions_total counter
	j2cache_cache_evictions_total{region="test"} 1
	# HELP j2cache_cache_expirations_total Total number of cache entries expired by time-to-live or time-to-idle.
	# TYPE j2cache_cache_expirations_total counter
	j2cache_cache_expirations_total{region="test"} 0
	# HELP j2cache_cache_requests_total Total number of cache requests partitioned by success or failure.
	# TYPE j2cache_cache_requests_total counter
	j2cache_cache_requests_total{region="test",status="success"} 4
	# HELP j2cache_cached_items Total number of items in the cache.
	# TYPE j2cache_cached_items gauge
	j2cache_cached_items{region="test"} 1
`, t)
}

func Test_Region_Metrics_SameNameOnRegistry(t *testing.T) {
	g := NewWithT(t)
	reg := prometheus.NewPedanticRegistry()
	opts := []Option{WithMetricsRegisterer(reg), WithMetricsPrefix("j2cache_")}

	r, err := New[string]("users", opts...)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.Put("a", "1", 0)).To(Succeed())
	g.Expect(r.Put("b", "2", 0)).To(Succeed())
	g.Expect(r.Dispose()).To(Succeed())

	// a region rebuilt under the same name reuses the registered collectors
	r, err = New[string]("users", opts...)
	g.Expect(err).ToNot(HaveOccurred())
	defer r.Dispose()
	g.Expect(r.Put("c", "3", 0)).To(Succeed())

	validateMetrics(reg, `
	# HELP j2cache_cache_requests_total Total number of cache requests partitioned by success or failure.
	# TYPE j2cache_cache_requests_total counter
	j2cache_cache_requests_total{region="users",status="success"} 3
	# HELP j2cache_cached_items Total number of items in the cache.
	# TYPE j2cache_cached_items gauge
	j2cache_cached_items{region="users"} 1
`, t, "j2cache_cache_requests_total", "j2cache_cached_items")
}

func TestRegion_Concurrent(t *testing.T) {
	const (
		concurrency = 500
		keysNum     = 10
	)
	g := NewWithT(t)
	r, _ := newTestRegion[string](t,
		WithMaxEntries(10),
		WithCleanupInterval(time.Millisecond))

	keymap := map[int]string{}
	for i := 0; i < keysNum; i++ {
		keymap[i] = fmt.Sprintf("test-%d", i)
	}

	wg := sync.WaitGroup{}
	run := make(chan bool)

	// simulate concurrent read and write
	for i := 0; i < concurrency; i++ {
		key := rand.IntN(keysNum)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Put(keymap[key], "test-token", 0)
		}()
		go func() {
			defer wg.Done()
			<-run
			_, _, _ = r.Get(keymap[key])
			_, _ = r.ContainsKey(keymap[key])
		}()
	}
	close(run)
	wg.Wait()

	for _, key := range keymap {
		_ = r.Put(key, "test-token", 0)
	}
	keys, err := r.Keys()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(keys).To(HaveLen(len(keymap)))

	for _, key := range keymap {
		val, ok, err := r.Get(key)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeTrue(), "object %s not found", key)
		g.Expect(val).To(Equal("test-token"))
	}
}
