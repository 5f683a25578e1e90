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
	"sync"
	"time"
)

// janitor runs the expiration sweep of a region on an interval, modified by
// jitter before each sweep.
type janitor struct {
	interval time.Duration
	jitter   jitterFunc
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newJanitor(interval time.Duration, jitter jitterFunc) *janitor {
	if jitter == nil {
		jitter = noJitter
	}
	return &janitor{
		interval: interval,
		jitter:   jitter,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *janitor) run(sweep func()) {
	defer close(j.done)
	timer := time.NewTimer(j.jitter(j.interval))
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			sweep()
			timer.Reset(j.jitter(j.interval))
		case <-j.quit:
			return
		}
	}
}

// stop signals the sweep to exit and waits for it. It is safe to call more
// than once.
func (j *janitor) stop() {
	j.once.Do(func() { close(j.quit) })
	<-j.done
}
