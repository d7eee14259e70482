package cache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/workstack/workstack/internal/config"
)

// Region names used by the services. The coordinator only serves regions it
// was constructed with, so additions here must be mirrored in Regions().
const (
	RegionProjects         = "projects"
	RegionProjectPages     = "projectsPage"
	RegionTasks            = "tasks"
	RegionTaskPages        = "tasksPage"
	RegionOverdueTaskPages = "overdueTasksPage"
	RegionTaskStatusCounts = "taskStatusCounts"
	RegionUsers            = "users"
	RegionAdminDashboard   = "adminDashboard"
)

// Regions returns the closed set of cache region names.
func Regions() []string {
	return []string{
		RegionProjects,
		RegionProjectPages,
		RegionTasks,
		RegionTaskPages,
		RegionOverdueTaskPages,
		RegionTaskStatusCounts,
		RegionUsers,
		RegionAdminDashboard,
	}
}

// Stats holds cumulative hit and miss counts for one region.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

type region struct {
	entries *expirable.LRU[string, any]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// Coordinator manages a fixed set of named in-process cache regions. Each
// region evicts by LRU above the configured capacity and by TTL. Lookups on
// unknown regions are errors rather than silent passthroughs so that a
// renamed region cannot quietly stop caching.
type Coordinator struct {
	regions map[string]*region
}

// NewCoordinator creates a coordinator with the given region names, each
// sized and aged per the cache configuration.
func NewCoordinator(cfg config.CacheConfig, names []string) *Coordinator {
	c := &Coordinator{regions: make(map[string]*region, len(names))}
	for _, name := range names {
		c.regions[name] = &region{
			entries: expirable.NewLRU[string, any](cfg.MaxEntriesPerRegion, nil, cfg.TTL),
		}
	}
	return c
}

func (c *Coordinator) region(name string) (*region, error) {
	r, ok := c.regions[name]
	if !ok {
		return nil, fmt.Errorf("unknown cache region %q", name)
	}
	return r, nil
}

// GetOrCompute returns the cached value for key in the named region, or runs
// compute and caches its result. Concurrent computes for the same key may
// both run; the last writer wins, which is acceptable for read-through
// caching of idempotent lookups.
func (c *Coordinator) GetOrCompute(ctx context.Context, regionName, key string, compute func(context.Context) (any, error)) (any, error) {
	r, err := c.region(regionName)
	if err != nil {
		return nil, err
	}
	if v, ok := r.entries.Get(key); ok {
		r.hits.Add(1)
		return v, nil
	}
	r.misses.Add(1)
	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	r.entries.Add(key, v)
	return v, nil
}

// Put stores a value directly, replacing any existing entry for the key.
func (c *Coordinator) Put(regionName, key string, value any) error {
	r, err := c.region(regionName)
	if err != nil {
		return err
	}
	r.entries.Add(key, value)
	return nil
}

// InvalidateKey removes a single entry from the named region.
func (c *Coordinator) InvalidateKey(regionName, key string) error {
	r, err := c.region(regionName)
	if err != nil {
		return err
	}
	r.entries.Remove(key)
	return nil
}

// Invalidate removes every entry in the named region.
func (c *Coordinator) Invalidate(regionName string) error {
	r, err := c.region(regionName)
	if err != nil {
		return err
	}
	r.entries.Purge()
	return nil
}

// InvalidateAll clears every region. Used after bulk data changes.
func (c *Coordinator) InvalidateAll() {
	for _, r := range c.regions {
		r.entries.Purge()
	}
}

// RegionStats returns cumulative statistics for the named region.
func (c *Coordinator) RegionStats(regionName string) (Stats, error) {
	r, err := c.region(regionName)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
		Size:   r.entries.Len(),
	}, nil
}

// AllStats returns statistics for every region keyed by region name.
func (c *Coordinator) AllStats() map[string]Stats {
	out := make(map[string]Stats, len(c.regions))
	for name, r := range c.regions {
		out[name] = Stats{
			Hits:   r.hits.Load(),
			Misses: r.misses.Load(),
			Size:   r.entries.Len(),
		}
	}
	return out
}

// PageKey builds a cache key for a paged listing from its filter parts.
func PageKey(parts ...string) string {
	return strings.Join(parts, "|")
}
