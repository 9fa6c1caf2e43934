package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/byahe/internal/models"
)

// Cache is the client's durable local store: the full route list under one
// key and the per-client vote map under a parallel key. Each key is read
// and written as a whole — no partial updates — so a half-applied mutation
// can never be observed after a crash. The mutex serializes the
// load-modify-write cycles: the replay goroutine and the caller thread
// mutate the same files.
type Cache struct {
	dir string
	mu  sync.Mutex
}

const (
	routesKey = "routes.json"
	votesKey  = "votes.json"
)

// NewCache creates (if needed) the cache directory and returns a cache
// rooted there.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cache: resolve dir: %w", err)
	}
	return &Cache{dir: abs}, nil
}

// LoadRoutes returns the cached route list. A missing or corrupt cache
// yields an empty list, never an error: the cache is a fallback, and a bad
// fallback degrades to "no data" rather than blocking startup.
func (c *Cache) LoadRoutes() []models.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadRoutes()
}

// SaveRoutes replaces the cached route list.
func (c *Cache) SaveRoutes(routes []models.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveRoutes(routes)
}

// UpsertRoute replaces (or appends) one route in the cached list. The
// whole read-patch-write cycle runs under the lock so concurrent upserts
// cannot clobber each other's entries.
func (c *Cache) UpsertRoute(route models.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	routes := c.loadRoutes()
	replaced := false
	for i := range routes {
		if routes[i].ID == route.ID {
			routes[i] = route
			replaced = true
			break
		}
	}
	if !replaced {
		routes = append(routes, route)
	}
	return c.saveRoutes(routes)
}

// loadRoutes reads the route list. Callers hold c.mu.
func (c *Cache) loadRoutes() []models.Route {
	data, err := os.ReadFile(filepath.Join(c.dir, routesKey))
	if err != nil {
		return nil
	}
	var routes []models.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil
	}
	return routes
}

// saveRoutes writes the route list. Callers hold c.mu.
func (c *Cache) saveRoutes(routes []models.Route) error {
	if routes == nil {
		routes = []models.Route{}
	}
	data, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("cache: encode routes: %w", err)
	}
	return c.writeAtomic(routesKey, data)
}

// LoadVotes returns the persisted per-client vote map. Satisfies
// vote.Persister.
func (c *Cache) LoadVotes() (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(c.dir, votesKey))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("cache: read votes: %w", err)
	}
	var votes map[string]int
	if err := json.Unmarshal(data, &votes); err != nil {
		return map[string]int{}, nil
	}
	return votes, nil
}

// SaveVotes replaces the persisted vote map. Satisfies vote.Persister.
func (c *Cache) SaveVotes(votes map[string]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(votes)
	if err != nil {
		return fmt.Errorf("cache: encode votes: %w", err)
	}
	return c.writeAtomic(votesKey, data)
}

// writeAtomic writes content via tmp file, fsync, rename so readers never
// see a torn file.
func (c *Cache) writeAtomic(name string, content []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".byahe-tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("cache: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("cache: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(c.dir, name)); err != nil {
		return fmt.Errorf("cache: rename: %w", err)
	}
	success = true
	return nil
}
