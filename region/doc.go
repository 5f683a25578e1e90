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

// Package region provides Region, a named in-memory cache region with
// per-entry time-to-idle and time-to-live, least recently used capacity
// eviction and a notification service reporting every change as a typed
// Event. A region is generic over the type of its values
//
//	r, err := region.New[string]("users",
//		region.WithMaxEntries(1000),
//		region.WithTimeToLive(time.Hour))
//
// Listeners are registered on the region and receive events of every kind,
// including EventExpired for entries that outlived their timers and
// EventEvicted for entries dropped to respect the capacity
//
//	unregister, err := r.RegisterListener(region.ListenerFunc[string](func(e region.Event[string]) {
//		if e.Kind == region.EventExpired {
//			...
//		}
//	}))
//
// The region is self-instrumenting when configured with a metrics registerer,
// and can persist its entries to a bbolt database with WithSnapshotPath.
package region
