package main

import (
	"bytes"
	"testing"

	"github.com/CodeFreezeAI/xcf/internal/action"
	"github.com/CodeFreezeAI/xcf/internal/dispatch"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) ([][]string, *flags, string, error) {
	t.Helper()
	var calls [][]string
	f := &flags{}
	root := newRootCmd(action.NewRegistry("xcf"), f, func(_ *cobra.Command, input []string) error {
		calls = append(calls, input)
		return nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return calls, f, out.String(), err
}

func TestRootRoutesToDispatcher(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"list"}, []string{"list"}},
		{[]string{"select", "2"}, []string{"select", "2"}},
		{[]string{"use", "xcf"}, []string{"use", "xcf"}},
		{[]string{"use"}, []string{"use"}},
		{[]string{"help"}, []string{"help"}},
		{[]string{"-h"}, []string{"help"}},
		{[]string{"deploy", "now"}, []string{"deploy", "now"}},
		{[]string{"config", "log.level", "debug"}, []string{"config", "log.level", "debug"}},
	}

	for _, tt := range tests {
		calls, _, _, err := runRoot(t, tt.args...)
		require.NoError(t, err, tt.args)
		require.Len(t, calls, 1, tt.args)
		assert.Equal(t, tt.want, calls[0], tt.args)
	}
}

func TestRootWithoutArgsIsUnrecognized(t *testing.T) {
	calls, _, _, err := runRoot(t)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0])
}

func TestFlags(t *testing.T) {
	calls, f, _, err := runRoot(t, "--no-color", "list", "--verbose")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"list"}}, calls)
	assert.True(t, f.noColor)
	assert.True(t, f.verbose)
}

func TestUnknownActionWithFlagReachesDispatcher(t *testing.T) {
	calls, _, _, err := runRoot(t, "deploy", "--force")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"deploy"}, calls[0])
}

func TestNegativeIndexIsInvalidArgument(t *testing.T) {
	calls, _, out, err := runRoot(t, "select", "-1")
	assert.Empty(t, calls)
	assert.Equal(t, dispatch.ExitInvalidArgument, dispatch.ExitCode(err))
	assert.Contains(t, out, "xcf help")
}

func TestVersionFlag(t *testing.T) {
	calls, _, out, err := runRoot(t, "--version")
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.Contains(t, out, "xcf "+Version)
}
