package dataset

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Dataset identifies a registered dataset.
type Dataset struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Registry resolves dataset ids.
type Registry interface {
	Lookup(id string) (Dataset, bool)
	List() []Dataset
}

// StaticRegistry is a fixed set of datasets, usually from configuration.
type StaticRegistry struct {
	byID map[string]Dataset
}

// NewStaticRegistry builds a registry. Later entries replace earlier ones
// with the same id; entries without an id are ignored.
func NewStaticRegistry(entries ...Dataset) *StaticRegistry {
	r := &StaticRegistry{byID: make(map[string]Dataset, len(entries))}
	for _, d := range entries {
		if d.ID == "" {
			continue
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		r.byID[d.ID] = d
	}
	return r
}

func (r *StaticRegistry) Lookup(id string) (Dataset, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// List returns datasets sorted by id.
func (r *StaticRegistry) List() []Dataset {
	out := make([]Dataset, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DisplayName returns the registered name for id, or id itself.
func DisplayName(r Registry, id string) string {
	if r != nil {
		if d, ok := r.Lookup(id); ok && d.Name != "" {
			return d.Name
		}
	}
	return id
}

// Cache loads dataset files once and shares the result. Concurrent loads of
// the same path are collapsed into one read.
type Cache struct {
	opt    LoadOptions
	group  singleflight.Group
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewCache returns an empty cache that loads with opt.
func NewCache(opt LoadOptions) *Cache {
	return &Cache{opt: opt, frames: map[string]*Frame{}}
}

// Get returns the frame for path, loading it on first use.
func (c *Cache) Get(path string) (*Frame, error) {
	c.mu.RLock()
	f, ok := c.frames[path]
	c.mu.RUnlock()
	if ok {
		return f, nil
	}
	v, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.frames[path]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		f, err := Load(path, c.opt)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.frames[path] = f
		c.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Frame), nil
}

// Forget drops a cached frame so the next Get reloads it.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}
