package sys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigManager(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XCF_HOME", home)

	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)

	cfg, err := cm.Load()
	require.NoError(t, err)

	// Verify defaults
	assert.Equal(t, 3, cfg.Catalog.MaxDepth)
	assert.Equal(t, 10*time.Minute, cfg.Automation.Timeout)
	assert.Equal(t, filepath.Join(home, "state.json"), cfg.State.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, home, cfg.DataDir)

	// Verify file existence
	_, err = os.Stat(filepath.Join(home, "config.yaml"))
	assert.NoError(t, err, "config file was not created")

	// Test Set/Reload
	require.NoError(t, cm.Set("catalog.max_depth", "5"))
	require.NoError(t, cm.Set("catalog.roots", "/src/a, /src/b"))

	cm2, err := NewConfigManager("xcf")
	require.NoError(t, err)
	cfg2, err := cm2.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg2.Catalog.MaxDepth)
	assert.Equal(t, []string{"/src/a", "/src/b"}, cfg2.Catalog.Roots)
}

func TestConfigManager_SetValidates(t *testing.T) {
	t.Setenv("XCF_HOME", t.TempDir())
	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)

	assert.Error(t, cm.Set("ui.color", "maybe"))
	assert.Error(t, cm.Set("catalog.max_depth", "0"))
	assert.Error(t, cm.Set("automation.timeout", "soon"))
	assert.Error(t, cm.Set("catalog.roots", " , "))
	assert.Error(t, cm.Set("model.name", "llama3"))

	require.NoError(t, cm.Set("automation.timeout", "90s"))
	got, err := cm.Get("automation.timeout")
	require.NoError(t, err)
	assert.Equal(t, "1m30s", got)
}

func TestConfigManager_EnvOverride(t *testing.T) {
	t.Setenv("XCF_HOME", t.TempDir())
	t.Setenv("XCF_LOG_LEVEL", "debug")

	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)
	cfg, err := cm.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	got, err := cm.Get("log.level")
	require.NoError(t, err)
	assert.Equal(t, "debug", got)
}

func TestConfigManager_Keys(t *testing.T) {
	t.Setenv("XCF_HOME", t.TempDir())
	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)

	keys := cm.Keys()
	assert.Contains(t, keys, "catalog.roots")
	assert.IsIncreasing(t, keys)
	for _, k := range keys {
		_, err := cm.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfigManager_RootsFollowWorkingDir(t *testing.T) {
	t.Setenv("XCF_HOME", t.TempDir())

	first := t.TempDir()
	chdir(t, first)
	wantFirst, err := os.Getwd()
	require.NoError(t, err)

	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)
	cfg, err := cm.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{wantFirst}, cfg.Catalog.Roots)

	second := t.TempDir()
	chdir(t, second)
	wantSecond, err := os.Getwd()
	require.NoError(t, err)

	cm, err = NewConfigManager("xcf")
	require.NoError(t, err)
	cfg, err = cm.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{wantSecond}, cfg.Catalog.Roots)

	got, err := cm.Get("catalog.roots")
	require.NoError(t, err)
	assert.Equal(t, wantSecond, got)
}

func TestConfigManager_PersistsOnlyExplicitSettings(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XCF_HOME", home)
	t.Setenv("XCF_LOG_LEVEL", "debug")

	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)
	require.NoError(t, cm.Set("catalog.max_depth", "4"))

	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "max_depth: 4")
	assert.Contains(t, text, "level: info")
	assert.NotContains(t, text, "debug")
	assert.NotContains(t, text, "roots")
	assert.NotContains(t, text, "state.json")
}

func TestConfigManager_RootsFromEnv(t *testing.T) {
	t.Setenv("XCF_HOME", t.TempDir())
	t.Setenv("XCF_CATALOG_ROOTS", "/src/a,/src/b")

	cm, err := NewConfigManager("xcf")
	require.NoError(t, err)
	cfg, err := cm.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/a", "/src/b"}, cfg.Catalog.Roots)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
