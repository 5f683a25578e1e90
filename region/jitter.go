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
	"math/rand/v2"
	"time"
)

// jitterFunc modifies the interval between two expiration sweeps.
type jitterFunc func(time.Duration) time.Duration

func noJitter(d time.Duration) time.Duration {
	return d
}

// percentJitter returns a jitterFunc that modifies the given interval by a
// random percentage between -p and p.
//
// When p <= 0 or p >= 1, the interval is returned without a modification.
func percentJitter(p float64, r *rand.Rand) jitterFunc {
	if p <= 0 || p >= 1 {
		return noJitter
	}
	if r == nil {
		r = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return func(d time.Duration) time.Duration {
		randomP := p * (2*r.Float64() - 1)
		return time.Duration(float64(d) * (1 + randomP))
	}
}
