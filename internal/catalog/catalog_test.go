package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(p, 0755))
	return p
}

func touch(t *testing.T, content string, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func names(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestScanner_DetectsKinds(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "Alpha", "Alpha.xcodeproj")
	mkdir(t, root, "Beta", "Beta.xcworkspace")
	mkdir(t, root, "Beta", "Beta.xcodeproj")
	touch(t, "// swift-tools-version:5.9\n", root, "Gamma", packageFile)
	touch(t, "name: Delta App\nbuild: make\n", root, "delta", ManifestName)
	mkdir(t, root, "Empty")

	entries := NewScanner([]string{root}, 3, nil).List(context.Background())
	require.Len(t, entries, 4)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	assert.Equal(t, KindProject, byName["Alpha"].Kind)
	assert.Equal(t, filepath.Join(root, "Alpha", "Alpha.xcodeproj"), byName["Alpha"].Target)

	// A workspace wins over a project in the same directory.
	assert.Equal(t, KindWorkspace, byName["Beta"].Kind)
	assert.Equal(t, filepath.Join(root, "Beta", "Beta.xcworkspace"), byName["Beta"].Target)

	assert.Equal(t, KindPackage, byName["Gamma"].Kind)

	delta := byName["Delta App"]
	assert.Equal(t, KindManifest, delta.Kind)
	require.NotNil(t, delta.Manifest)
	assert.Equal(t, "make", delta.Manifest.Build)
}

func TestScanner_OrderedByPath(t *testing.T) {
	root := t.TempDir()
	touch(t, "", root, "c", packageFile)
	touch(t, "", root, "a", packageFile)
	touch(t, "", root, "b", packageFile)

	s := NewScanner([]string{root}, 2, nil)
	first := s.List(context.Background())
	second := s.List(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, names(first))
	assert.Equal(t, first, second)
}

func TestScanner_SkipsIgnoredAndNested(t *testing.T) {
	root := t.TempDir()
	touch(t, "", root, "App", packageFile)
	// Inside a project: not scanned.
	touch(t, "", root, "App", "Sub", packageFile)
	touch(t, "", root, "node_modules", "pkg", packageFile)
	touch(t, "", root, ".hidden", "pkg", packageFile)
	touch(t, "", root, "DerivedData", "x", packageFile)

	entries := NewScanner([]string{root}, 4, nil).List(context.Background())
	assert.Equal(t, []string{"App"}, names(entries))
}

func TestScanner_RespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	touch(t, "", root, "one", packageFile)
	touch(t, "", root, "a", "b", "c", "deep", packageFile)

	shallow := NewScanner([]string{root}, 1, nil).List(context.Background())
	assert.Equal(t, []string{"one"}, names(shallow))

	deep := NewScanner([]string{root}, 4, nil).List(context.Background())
	assert.ElementsMatch(t, []string{"one", "deep"}, names(deep))
}

func TestScanner_MissingRootIsEmpty(t *testing.T) {
	entries := NewScanner([]string{filepath.Join(t.TempDir(), "nope")}, 3, nil).List(context.Background())
	assert.Empty(t, entries)
}

func TestScanner_DeduplicatesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	touch(t, "", root, "App", packageFile)

	entries := NewScanner([]string{root, filepath.Join(root, "App")}, 3, nil).List(context.Background())
	assert.Len(t, entries, 1)
}

func TestScanner_BadManifestStillListed(t *testing.T) {
	root := t.TempDir()
	touch(t, "name: [unterminated\n", root, "broken", ManifestName)

	entries := NewScanner([]string{root}, 2, nil).List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].Name)
	assert.Nil(t, entries[0].Manifest)
}

func TestScanner_CanceledContext(t *testing.T) {
	root := t.TempDir()
	touch(t, "", root, "App", packageFile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, NewScanner([]string{root}, 3, nil).List(ctx))
}

type countingCatalog struct {
	calls   int
	entries []Entry
}

func (c *countingCatalog) List(ctx context.Context) []Entry {
	c.calls++
	return c.entries
}

func TestCache(t *testing.T) {
	inner := &countingCatalog{entries: []Entry{{Name: "A", Path: "/a"}}}
	c := NewCache(inner)

	c.List(context.Background())
	got := c.List(context.Background())
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "A", got[0].Name)

	// Callers cannot mutate the cached slice.
	got[0].Name = "changed"
	assert.Equal(t, "A", c.List(context.Background())[0].Name)

	c.Invalidate()
	c.List(context.Background())
	assert.Equal(t, 2, inner.calls)
}

func TestFind(t *testing.T) {
	entries := []Entry{{Name: "A", Path: "/a"}, {Name: "B", Path: "/b"}}

	e, ok := Find(entries, "/b")
	require.True(t, ok)
	assert.Equal(t, "B", e.Name)

	_, ok = Find(entries, "/c")
	assert.False(t, ok)
}
