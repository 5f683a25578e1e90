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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/FISHStack/J2Cache/cache"
	"github.com/FISHStack/J2Cache/config"
	"github.com/FISHStack/J2Cache/logger"
)

const demoRegion = "demo"

func main() {
	var (
		loggerOptions logger.Options
		configOptions config.Options
		metricsAddr   string
		enablePProf   bool
		demoTTL       time.Duration
	)

	loggerOptions.BindFlags(pflag.CommandLine)
	configOptions.BindFlags(pflag.CommandLine)
	pflag.StringVar(&metricsAddr, "metrics-addr", "",
		"The address the metrics endpoint binds to. The process exits after the demo when empty.")
	pflag.BoolVar(&enablePProf, "enable-pprof", false,
		"Serve the profiling endpoints on the metrics address.")
	pflag.DurationVar(&demoTTL, "demo-ttl", 200*time.Millisecond,
		"The time-to-live of the short-lived entry written by the demo.")
	pflag.Parse()

	log := logger.NewLogger(loggerOptions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, configOptions, metricsAddr, enablePProf, demoTTL); err != nil {
		log.Error(err, "j2cache failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log logr.Logger, configOptions config.Options,
	metricsAddr string, enablePProf bool, demoTTL time.Duration) error {
	cfg, err := configOptions.Load()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider, err := cache.NewProvider[string](cfg,
		cache.WithMetricsRegisterer(reg),
		cache.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create cache provider: %w", err)
	}
	defer func() {
		if err := provider.Stop(); err != nil {
			log.Error(err, "failed to stop cache provider")
		}
	}()

	listener := cache.ExpiredListenerFunc(func(region, key string) error {
		log.Info("entry expired", "region", region, "key", key)
		return nil
	})
	c, err := provider.BuildCache(demoRegion, listener)
	if err != nil {
		return err
	}

	if err := demo(ctx, log, c, demoTTL); err != nil {
		return err
	}

	if metricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, log, reg, metricsAddr, enablePProf)
}

// demo exercises the cache and waits for the short-lived entry to expire.
func demo(ctx context.Context, log logr.Logger, c *cache.RegionCache[string], ttl time.Duration) error {
	if err := c.PutAll(map[string]string{"a": "A", "b": "B"}); err != nil {
		return err
	}
	if prev, loaded, err := c.PutIfAbsent("a", "A2", 0); err != nil {
		return err
	} else if loaded {
		log.Info("key already present", "key", "a", "value", prev)
	}
	if err := c.PutWithTTL("ttl", "short", ttl); err != nil {
		return err
	}
	keys, err := c.Keys()
	if err != nil {
		return err
	}
	log.Info("entries written", "keys", keys, "timeToLive", c.TimeToLive().String())

	if err := c.Evict("b", "missing"); err != nil {
		return err
	}

	// Wait for the expiry. Exists below reaps the entry if no sweep ran yet.
	wait := time.NewTimer(2 * ttl)
	defer wait.Stop()
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
		return nil
	case <-wait.C:
	}

	ok, err := c.Exists("ttl")
	if err != nil {
		return err
	}
	keys, err = c.Keys()
	if err != nil {
		return err
	}
	log.Info("demo finished", "ttlPresent", ok, "keys", keys)
	return nil
}

func serveMetrics(ctx context.Context, log logr.Logger, reg *prometheus.Registry, addr string, enablePProf bool) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	if enablePProf {
		setupPProfHandlers(mux)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
