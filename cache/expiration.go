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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/FISHStack/J2Cache/region"
)

// ExpiredListener is notified when a key of a region expired because its
// time-to-live or time-to-idle elapsed. It is called at most once per
// expiration, from any goroutine, and must be safe for concurrent use. It
// must not dispose the bridge that calls it, nor close the cache owning it.
type ExpiredListener interface {
	NotifyExpired(region, key string) error
}

// ExpiredListenerFunc adapts a function to the ExpiredListener interface.
type ExpiredListenerFunc func(region, key string) error

// NotifyExpired calls f(region, key).
func (f ExpiredListenerFunc) NotifyExpired(region, key string) error {
	return f(region, key)
}

// BridgeState is the lifecycle state of an ExpirationBridge.
type BridgeState int32

const (
	// BridgeUnregistered is the state of a bridge that is not subscribed to
	// a region yet.
	BridgeUnregistered BridgeState = iota
	// BridgeRegistered is the state of a bridge that forwards expirations.
	BridgeRegistered
	// BridgeDisposed is the terminal state. Events are dropped.
	BridgeDisposed
)

func (s BridgeState) String() string {
	switch s {
	case BridgeUnregistered:
		return "Unregistered"
	case BridgeRegistered:
		return "Registered"
	case BridgeDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("BridgeState(%d)", int32(s))
	}
}

// ExpirationBridge subscribes to the events of one region and forwards the
// expirations, and only those, to an ExpiredListener. Capacity evictions,
// removals and updates are observed and dropped.
//
// A bridge without a listener discards every event.
type ExpirationBridge[V any] struct {
	listener ExpiredListener
	state    atomic.Int32

	// inflight is read-held for the duration of OnEvent. Dispose takes it to
	// wait for the notifications in progress.
	inflight sync.RWMutex

	// mu serializes the state transitions.
	mu         sync.Mutex
	unregister func()
	region     string

	metricsPrefix string
	registerer    prometheus.Registerer
	metrics       *bridgeMetrics
	log           logr.Logger
}

var _ region.Listener[any] = &ExpirationBridge[any]{}

// NewExpirationBridge returns an unregistered bridge that forwards the
// expirations to listener. The listener may be nil.
func NewExpirationBridge[V any](listener ExpiredListener, opts ...Options) (*ExpirationBridge[V], error) {
	opt, err := makeOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &ExpirationBridge[V]{
		listener:      listener,
		metricsPrefix: opt.metricsPrefix,
		registerer:    opt.registerer,
		log:           opt.logger,
	}, nil
}

// Register subscribes the bridge to the events of r. A bridge can be
// registered once.
func (b *ExpirationBridge[V]) Register(r *region.Region[V]) error {
	if r == nil {
		return invalidArgument("region must not be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if s := b.State(); s != BridgeUnregistered {
		return &CacheError{Reason: ErrCacheException, Err: fmt.Errorf("cannot register a bridge in state %s", s)}
	}

	b.region = r.Name()
	b.log = b.log.WithValues("region", b.region)
	if b.registerer != nil {
		b.metrics = newBridgeMetrics(b.metricsPrefix, b.region, b.registerer)
	}

	// The state is set first so that no event emitted between the
	// subscription and the return of RegisterListener is dropped.
	b.state.Store(int32(BridgeRegistered))
	unregister, err := r.RegisterListener(b)
	if err != nil {
		b.state.Store(int32(BridgeUnregistered))
		return wrapRegionError(err)
	}
	b.unregister = unregister
	b.log.V(1).Info("expiration bridge registered")
	return nil
}

// Dispose unsubscribes the bridge from its region and waits for the
// notifications in progress to return. The listener is not called once
// Dispose returned. Calling Dispose more than once is a no-op.
func (b *ExpirationBridge[V]) Dispose() {
	b.dispose()

	b.inflight.Lock()
	defer b.inflight.Unlock()
}

func (b *ExpirationBridge[V]) dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if BridgeState(b.state.Swap(int32(BridgeDisposed))) == BridgeDisposed {
		return
	}
	if b.unregister != nil {
		b.unregister()
		b.unregister = nil
	}
	b.log.V(1).Info("expiration bridge disposed")
}

// State returns the lifecycle state of the bridge.
func (b *ExpirationBridge[V]) State() BridgeState {
	return BridgeState(b.state.Load())
}

// OnEvent implements region.Listener.
func (b *ExpirationBridge[V]) OnEvent(e region.Event[V]) {
	b.inflight.RLock()
	defer b.inflight.RUnlock()

	if b.State() != BridgeRegistered {
		return
	}

	switch e.Kind {
	case region.EventExpired:
		b.notify(e.Region, e.Key)
	case region.EventDisposed:
		// The region dropped its listeners.
		b.state.Store(int32(BridgeDisposed))
	case region.EventPut, region.EventUpdate, region.EventRemoved,
		region.EventRemoveAll, region.EventEvicted:
	default:
		b.log.V(1).Info("ignoring unknown event", "kind", e.Kind.String())
	}
}

// notify delivers one expiration to the listener. A failure is logged and
// does not reach the region.
func (b *ExpirationBridge[V]) notify(regionName, key string) {
	if b.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			recordListenerFailure(b.metrics)
			b.log.Error(fmt.Errorf("panic: %v", r), "expiration listener panicked", "key", key)
		}
	}()
	if err := b.listener.NotifyExpired(regionName, key); err != nil {
		recordListenerFailure(b.metrics)
		b.log.Error(err, "expiration listener failed", "key", key)
		return
	}
	recordNotification(b.metrics)
}
