// Package rcontext implements the shared mutable state carried through a
// recipe run: an artifact mapping steps read and write, and a read-only
// configuration mapping seeded once at Runner start. Named rcontext (not
// context) to avoid colliding with the standard library's context package,
// which every step also threads through for cancellation.
package rcontext

import (
	"sync"

	"github.com/robotdad/recipe-tool/internal/rerrors"
)

// Context holds per-run artifacts and read-only config. Each artifact
// operation takes the mutex, but values stored in it are shared, not
// copied: concurrent loop iterations and parallel branches each operate on
// a Clone.
type Context struct {
	mu        sync.RWMutex
	artifacts map[string]interface{}
	config    map[string]interface{}
}

// New creates a Context seeded with the given config (never mutated
// afterwards) and an empty artifact map.
func New(config map[string]interface{}) *Context {
	if config == nil {
		config = map[string]interface{}{}
	}
	return &Context{
		artifacts: make(map[string]interface{}),
		config:    config,
	}
}

// Get returns the artifact at key, or def if absent. A nil def with a
// missing key is not an error here; use MustGet for strict reads.
func (c *Context) Get(key string, def interface{}) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.artifacts[key]; ok {
		return v
	}
	return def
}

// MustGet returns the artifact at key, failing with rerrors.UnknownKey if
// it is absent.
func (c *Context) MustGet(key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.artifacts[key]
	if !ok {
		return nil, rerrors.UnknownKey(key)
	}
	return v, nil
}

// Set inserts or overwrites the artifact at key.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts[key] = value
}

// Remove deletes the artifact at key; silent if absent.
func (c *Context) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.artifacts, key)
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.artifacts[key]
	return ok
}

// Keys returns a stable snapshot of artifact keys, safe to range over even
// if the Context is mutated concurrently by other code.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.artifacts))
	for k := range c.artifacts {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of artifacts.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.artifacts)
}

// Config returns the read-only configuration mapping. Callers must not
// mutate the returned map.
func (c *Context) Config() map[string]interface{} {
	return c.config
}

// ConfigGet returns a single config value, or def if absent.
func (c *Context) ConfigGet(key string, def interface{}) interface{} {
	if v, ok := c.config[key]; ok {
		return v
	}
	return def
}

// ConfigGetString is a convenience accessor for string-valued config keys.
func (c *Context) ConfigGetString(key string) string {
	if v, ok := c.config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Dump returns a serializable snapshot of the artifact map for diagnostics.
func (c *Context) Dump() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.artifacts))
	for k, v := range c.artifacts {
		out[k] = deepCopy(v)
	}
	return out
}

// Clone returns a deep, independent copy of the Context: mutations to
// either side are invisible to the other. Used by loop and parallel to
// isolate branches.
func (c *Context) Clone() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	artifacts := make(map[string]interface{}, len(c.artifacts))
	for k, v := range c.artifacts {
		artifacts[k] = deepCopy(v)
	}
	config := make(map[string]interface{}, len(c.config))
	for k, v := range c.config {
		config[k] = deepCopy(v)
	}
	return &Context{artifacts: artifacts, config: config}
}

// deepCopy recursively copies the value kinds artifacts hold: strings,
// numbers, booleans, nil, nested maps, ordered sequences, byte slices,
// and anything else that implements Cloner.
func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = deepCopy(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = deepCopy(e)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case Cloner:
		return val.Clone()
	default:
		// Strings, numbers, booleans, and nil are copied by value already.
		return v
	}
}

// Cloner lets engine-defined record types (file specs, LLM results) supply
// their own deep-copy logic instead of relying on the generic map/slice
// recursion above.
type Cloner interface {
	Clone() interface{}
}
