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
	"sync"
)

// EventKind identifies the change a region reports to its listeners.
type EventKind int

const (
	// EventPut is emitted when a new key is stored.
	EventPut EventKind = iota
	// EventUpdate is emitted when the value of a live key is replaced.
	EventUpdate
	// EventRemoved is emitted when a key is removed explicitly.
	EventRemoved
	// EventRemoveAll is emitted once when the region is cleared.
	EventRemoveAll
	// EventEvicted is emitted when a live entry is dropped to respect the
	// region capacity.
	EventEvicted
	// EventExpired is emitted when an entry outlived its time-to-live or
	// time-to-idle. It is emitted once per expiration.
	EventExpired
	// EventDisposed is emitted once when the region is disposed.
	EventDisposed
)

func (k EventKind) String() string {
	switch k {
	case EventPut:
		return "put"
	case EventUpdate:
		return "update"
	case EventRemoved:
		return "removed"
	case EventRemoveAll:
		return "remove_all"
	case EventEvicted:
		return "evicted"
	case EventExpired:
		return "expired"
	case EventDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a notification emitted by a region. Key and Value are empty for
// EventRemoveAll and EventDisposed.
type Event[V any] struct {
	Kind   EventKind
	Region string
	Key    string
	Value  V
}

// Listener receives the events of a region. OnEvent is invoked after the
// region lock is released, either on the goroutine that performed the
// operation or on the expiration sweep goroutine, and must be safe for
// concurrent use.
type Listener[V any] interface {
	OnEvent(Event[V])
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc[V any] func(Event[V])

// OnEvent calls f(e).
func (f ListenerFunc[V]) OnEvent(e Event[V]) {
	f(e)
}

type registration[V any] struct {
	id       uint64
	listener Listener[V]
}

// notifier is the notification service of a region.
type notifier[V any] struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners []registration[V]
}

func (n *notifier[V]) register(l Listener[V]) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.listeners = append(n.listeners, registration[V]{id: n.nextID, listener: l})
	return n.nextID
}

func (n *notifier[V]) unregister(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, r := range n.listeners {
		if r.id == id {
			n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
			return
		}
	}
}

func (n *notifier[V]) reset() {
	n.mu.Lock()
	n.listeners = nil
	n.mu.Unlock()
}

func (n *notifier[V]) snapshot() []registration[V] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.listeners
}

// RegisterListener subscribes l to the events of the region. The returned
// function unregisters the listener and is safe to call more than once.
func (r *Region[V]) RegisterListener(l Listener[V]) (func(), error) {
	if l == nil {
		return nil, fmt.Errorf("%w: listener must not be nil", ErrInvalidOption)
	}
	r.mu.Lock()
	disposed := r.disposed
	r.mu.Unlock()
	if disposed {
		return nil, ErrRegionDisposed
	}

	id := r.notifier.register(l)
	var once sync.Once
	return func() {
		once.Do(func() { r.notifier.unregister(id) })
	}, nil
}

// dispatch delivers events to every registered listener. It must be called
// without holding the region lock.
func (r *Region[V]) dispatch(events []Event[V]) {
	if len(events) == 0 {
		return
	}
	listeners := r.notifier.snapshot()
	for _, e := range events {
		for _, reg := range listeners {
			r.deliver(reg.listener, e)
		}
	}
}

func (r *Region[V]) deliver(l Listener[V], e Event[V]) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(fmt.Errorf("%v", rec), "listener panicked",
				"event", e.Kind.String(), "key", e.Key)
		}
	}()
	l.OnEvent(e)
}
