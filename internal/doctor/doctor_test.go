package doctor

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCrash(t *testing.T) {
	d := New("xcf", t.TempDir(), "v1.2.3")

	path, err := d.LogCrash(errors.New("panic: boom"), "goroutine 1 [running]")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, "panic: boom", r.Error)
	assert.Equal(t, "v1.2.3", r.Version)
	assert.Contains(t, r.Stack, "goroutine 1")
}

func TestAnalyzeHealth(t *testing.T) {
	d := New("xcf", t.TempDir(), "dev")
	now := time.Now()

	assert.Equal(t, HealthGood, d.AnalyzeHealth(now))

	_, err := d.LogCrash(errors.New("one"), "")
	require.NoError(t, err)
	assert.Equal(t, HealthDegraded, d.AnalyzeHealth(now))

	for i := 0; i < 2; i++ {
		time.Sleep(2 * time.Millisecond)
		_, err := d.LogCrash(errors.New("again"), "")
		require.NoError(t, err)
	}
	assert.Equal(t, HealthCritical, d.AnalyzeHealth(now))

	assert.Equal(t, HealthGood, d.AnalyzeHealth(now.Add(2*time.Hour)))
}

func TestRecover(t *testing.T) {
	var out bytes.Buffer
	code := -1
	d := New("forge", t.TempDir(), "dev")
	d.Out = &out
	d.exit = func(c int) { code = c }

	func() {
		defer d.Recover()
		panic("kaboom")
	}()

	assert.Equal(t, ExitCrash, code)
	assert.Contains(t, out.String(), "forge crashed: panic: kaboom")
	assert.Contains(t, out.String(), "Crash report saved to")

	entries, err := os.ReadDir(d.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecover_NoPanic(t *testing.T) {
	code := -1
	d := New("xcf", t.TempDir(), "dev")
	d.exit = func(c int) { code = c }

	func() {
		defer d.Recover()
	}()

	assert.Equal(t, -1, code)
}
