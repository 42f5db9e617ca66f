// Package catalog discovers the Xcode projects, workspaces and Swift packages
// xcf can act on.
package catalog

import (
	"context"
	"sync"
)

// Kind describes what made a directory a project.
type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindProject   Kind = "project"
	KindPackage   Kind = "package"
	KindManifest  Kind = "manifest"
)

// Entry is one discovered project. Entries are snapshots and never mutated.
type Entry struct {
	Name string
	// Path is the absolute directory containing the project.
	Path string
	Kind Kind
	// Target is the .xcworkspace or .xcodeproj bundle for Xcode kinds.
	Target   string
	Manifest *Manifest
}

// Catalog enumerates projects in a stable order.
type Catalog interface {
	List(ctx context.Context) []Entry
}

// Find returns the entry with the given path.
func Find(entries []Entry, path string) (Entry, bool) {
	for _, e := range entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Cache memoizes another Catalog until invalidated.
type Cache struct {
	mu      sync.Mutex
	inner   Catalog
	entries []Entry
	valid   bool
}

// NewCache wraps inner.
func NewCache(inner Catalog) *Cache {
	return &Cache{inner: inner}
}

// List returns the cached listing, scanning on first use or after Invalidate.
func (c *Cache) List(ctx context.Context) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		c.entries = c.inner.List(ctx)
		c.valid = true
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Invalidate forces the next List to rescan.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
