package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Policy decides when a cached load is considered stale.
type Policy string

const (
	// PolicySession keeps the first successful load for the lifetime of the
	// cache, even if the files change on disk.
	PolicySession Policy = "session"
	// PolicyModTime reloads when any source file's modification time differs
	// from the one observed at load.
	PolicyModTime Policy = "mtime"
)

// ParsePolicy maps a config value to a Policy. Empty means PolicySession.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "session", "forever":
		return PolicySession, nil
	case "mtime", "modtime":
		return PolicyModTime, nil
	default:
		return "", fmt.Errorf("invalid cache policy: %s (use session or mtime)", s)
	}
}

type cacheEntry struct {
	src    *Sources
	mtimes []time.Time
}

// Cache memoizes Load results keyed by the resolved source paths. Failed
// loads are not cached.
type Cache struct {
	mu      sync.Mutex
	policy  Policy
	opt     Options
	entries map[string]*cacheEntry
	loads   int
}

// NewCache returns an empty cache with the given policy and read options.
func NewCache(policy Policy, opt Options) *Cache {
	if policy == "" {
		policy = PolicySession
	}
	return &Cache{policy: policy, opt: opt, entries: make(map[string]*cacheEntry)}
}

// Get returns the cached Sources for files, loading them on first use.
func (c *Cache) Get(files Files) (*Sources, error) {
	key := cacheKey(files)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if c.policy != PolicyModTime {
			return e.src, nil
		}
		if cur, err := modTimes(files); err == nil && sameTimes(cur, e.mtimes) {
			return e.src, nil
		}
	}
	var mtimes []time.Time
	if c.policy == PolicyModTime {
		// Stat before reading so a write racing the load triggers another reload.
		mt, err := modTimes(files)
		if err != nil {
			return nil, err
		}
		mtimes = mt
	}
	src, err := Load(files, c.opt)
	if err != nil {
		return nil, err
	}
	c.loads++
	c.entries[key] = &cacheEntry{src: src, mtimes: mtimes}
	return src, nil
}

// Loads reports how many times the cache has read files from disk.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Policy returns the invalidation policy in effect.
func (c *Cache) Policy() Policy { return c.policy }

// Reset drops every cached entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

func cacheKey(files Files) string {
	parts := files.paths()
	for i, p := range parts {
		if abs, err := filepath.Abs(p); err == nil {
			parts[i] = abs
		}
	}
	return strings.Join(parts, "\x00")
}

func modTimes(files Files) ([]time.Time, error) {
	paths := files.paths()
	out := make([]time.Time, len(paths))
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &FileAccessError{Path: p, Err: err}
		}
		out[i] = info.ModTime()
	}
	return out, nil
}

func sameTimes(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

var (
	sharedMu sync.Mutex
	shared   = NewCache(PolicySession, Options{})
)

// Shared returns the process-wide cache used by the CLI and dashboard.
func Shared() *Cache {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared
}

// ConfigureShared replaces the process-wide cache. It is meant to be called
// once at startup, before any load.
func ConfigureShared(policy Policy, opt Options) *Cache {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = NewCache(policy, opt)
	return shared
}
