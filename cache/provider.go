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
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/FISHStack/J2Cache/config"
	"github.com/FISHStack/J2Cache/region"
)

// ErrProviderStopped is returned by BuildCache after Stop.
var ErrProviderStopped = errors.New("provider is stopped")

// Provider owns the regions it builds from a configuration and the caches
// adapting them. It is safe for concurrent use.
type Provider[V any] struct {
	cfg  *config.Config
	opts []Options
	opt  *storeOptions

	mu      sync.Mutex
	regions map[string]*region.Region[V]
	caches  map[string]*RegionCache[V]
	stopped bool
}

// NewProvider returns a provider that builds its regions from cfg. A nil cfg
// is the default configuration. The options apply to the caches and, for
// metrics and logging, to the regions.
func NewProvider[V any](cfg *config.Config, opts ...Options) (*Provider[V], error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, invalidArgument("invalid configuration: %w", err)
	}
	opt, err := makeOptions(opts...)
	if err != nil {
		return nil, err
	}
	if opt.metricsPrefix == "" {
		opt.metricsPrefix = cfg.MetricsPrefix
		opts = append(slices.Clone(opts), WithMetricsPrefix(cfg.MetricsPrefix))
	}
	return &Provider[V]{
		cfg:     cfg,
		opts:    opts,
		opt:     opt,
		regions: make(map[string]*region.Region[V]),
		caches:  make(map[string]*RegionCache[V]),
	}, nil
}

// BuildCache returns the cache of the named region, creating the region on
// first use. Building a region that already exists returns the existing
// cache, and listener is ignored.
func (p *Provider[V]) BuildCache(name string, listener ExpiredListener) (*RegionCache[V], error) {
	if err := config.ValidateRegionName(name); err != nil {
		return nil, invalidArgument("%w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, &CacheError{Reason: ErrCacheException, Err: ErrProviderStopped}
	}
	if c, ok := p.caches[name]; ok {
		return c, nil
	}

	r, err := region.New[V](name, p.regionOptions(name)...)
	if err != nil {
		return nil, wrapRegionError(err)
	}
	c, err := NewRegionCache(r, listener, p.opts...)
	if err != nil {
		return nil, errors.Join(err, r.Dispose())
	}

	p.regions[name] = r
	p.caches[name] = c
	p.opt.logger.V(1).Info("region created", "region", name)
	return c, nil
}

func (p *Provider[V]) regionOptions(name string) []region.Option {
	s := p.cfg.Region(name)
	opts := []region.Option{
		region.WithMaxEntries(s.MaxEntries),
		region.WithTimeToIdle(s.TimeToIdle),
		region.WithTimeToLive(s.TimeToLive),
		region.WithCleanupInterval(s.CleanupInterval),
		region.WithCleanupJitter(s.CleanupJitter),
		region.WithMetricsPrefix(p.opt.metricsPrefix),
		region.WithLogger(p.opt.logger),
	}
	if p.opt.registerer != nil {
		opts = append(opts, region.WithMetricsRegisterer(p.opt.registerer))
	}
	if s.SnapshotPath != "" {
		opts = append(opts, region.WithSnapshotPath(s.SnapshotPath))
	}
	return opts
}

// Regions returns the sorted names of the regions built so far.
func (p *Provider[V]) Regions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.regions))
	for name := range p.regions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stop disposes every region built by the provider, writing their snapshots
// when configured. The provider cannot build caches afterwards.
func (p *Provider[V]) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	var errs []error
	for name, r := range p.regions {
		p.caches[name].Close()
		if err := r.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("failed to dispose region '%s': %w", name, err))
		}
	}
	return errors.Join(errs...)
}
