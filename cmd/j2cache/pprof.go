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

package main

import (
	"net/http"
	"net/http/pprof"
	"runtime"
)

// httpPrefixPProf is the prefix of the profiling endpoints.
const httpPrefixPProf = "/debug/pprof"

var pprofEndpoints = map[string]http.Handler{
	httpPrefixPProf + "/":             http.HandlerFunc(pprof.Index),
	httpPrefixPProf + "/cmdline":      http.HandlerFunc(pprof.Cmdline),
	httpPrefixPProf + "/profile":      http.HandlerFunc(pprof.Profile),
	httpPrefixPProf + "/symbol":       http.HandlerFunc(pprof.Symbol),
	httpPrefixPProf + "/trace":        http.HandlerFunc(pprof.Trace),
	httpPrefixPProf + "/heap":         pprof.Handler("heap"),
	httpPrefixPProf + "/goroutine":    pprof.Handler("goroutine"),
	httpPrefixPProf + "/threadcreate": pprof.Handler("threadcreate"),
	httpPrefixPProf + "/block":        pprof.Handler("block"),
	httpPrefixPProf + "/mutex":        pprof.Handler("mutex"),
}

// setupPProfHandlers registers the profiling endpoints on the metrics mux.
// Region locks show up in the mutex profile.
func setupPProfHandlers(mux *http.ServeMux) {
	// Only set the fraction if there is no existing setting
	if runtime.SetMutexProfileFraction(-1) == 0 {
		// Default to report 1 out of 5 mutex events, on average
		runtime.SetMutexProfileFraction(5)
	}

	for p, h := range pprofEndpoints {
		mux.Handle(p, h)
	}
}
