package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--tenant", "acme", "--data-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Embedded(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "set", "devices/abc/password", `{"current":"p1","updated":1000}`)
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run(t, dir, "get", "devices/abc/password/current")
	require.NoError(t, err)
	assert.Equal(t, "\"p1\"\n", out)

	out, err = run(t, dir, "set", "devices/def/os", "linux")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run(t, dir, "ls")
	require.NoError(t, err)
	assert.Equal(t, "devices\n", out)

	out, err = run(t, dir, "ls", "devices", "--filter", `{"os":"linux"}`)
	require.NoError(t, err)
	assert.Equal(t, "def\n", out)

	_, err = run(t, dir, "ls", "devices", "--filter", "[1]")
	assert.Error(t, err)

	out, err = run(t, dir, "del", "devices/abc")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	_, err = run(t, dir, "get", "devices/abc")
	assert.Error(t, err)
}

func TestCLI_Categories(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "category", "create", "ui")
	require.NoError(t, err)
	_, err = run(t, dir, "category", "create", "ui")
	assert.Error(t, err)

	out, err := run(t, dir, "ls")
	require.NoError(t, err)
	assert.Equal(t, "ui\n", out)

	_, err = run(t, dir, "category", "drop", "ui")
	require.NoError(t, err)
	out, err = run(t, dir, "ls")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCLI_Vault(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "vault", "set", "secrets/api/token", "hunter2")
	assert.Error(t, err, "a vault key is required")

	_, err = run(t, dir, "vault", "--vault-key", "pw", "set", "secrets/api/token", "hunter2")
	require.NoError(t, err)

	out, err := run(t, dir, "get", "secrets/api/token")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")

	out, err = run(t, dir, "vault", "--vault-key", "pw", "get", "secrets/api/token")
	require.NoError(t, err)
	assert.Equal(t, "hunter2\n", out)
}

func TestCLI_TenantRequired(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", t.TempDir(), "ls"})
	assert.Error(t, cmd.Execute())
}

func TestSplitRoute(t *testing.T) {
	category, id, path := splitRoute("/devices//abc/password/current/")
	assert.Equal(t, "devices", category)
	assert.Equal(t, "abc", id)
	assert.Equal(t, []string{"password", "current"}, path)

	category, id, path = splitRoute("devices")
	assert.Equal(t, "devices", category)
	assert.Empty(t, id)
	assert.Empty(t, path)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, "plain text", parseValue("plain text"))
	assert.Equal(t, map[string]any{"a": float64(1)}, parseValue(`{"a":1}`))
	assert.Equal(t, true, parseValue("true"))
}
