package sdk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/celerix-dev/celerix-prefs/internal/auth"
	"github.com/celerix-dev/celerix-prefs/internal/prefs"
	"github.com/celerix-dev/celerix-prefs/internal/server"
	"github.com/celerix-dev/celerix-prefs/internal/store"
	"github.com/celerix-dev/celerix-prefs/internal/vault"
	"github.com/celerix-dev/celerix-prefs/pkg/sdk"
)

type Password struct {
	Current string `json:"current"`
	Updated int    `json:"updated"`
}

// MockStore implements DocumentReader and DocumentWriter for testing the
// generic helpers.
type MockStore struct {
	data map[string]any
}

func (m *MockStore) Get(category, identifier string, path ...string) (any, error) {
	v, ok := m.data[identifier]
	if !ok {
		return nil, &sdk.Error{Status: 404, Message: "not found"}
	}
	return v, nil
}

func (m *MockStore) Set(category, identifier string, val any, path ...string) error {
	m.data[identifier] = val
	return nil
}

func (m *MockStore) Delete(category, identifier string, path ...string) error {
	delete(m.data, identifier)
	return nil
}

func TestGenericGetSet(t *testing.T) {
	ms := &MockStore{data: make(map[string]any)}

	pw := Password{Current: "p1", Updated: 1000}
	require.NoError(t, sdk.Set(ms, "devices", "abc", pw))

	got, err := sdk.Get[Password](ms, "devices", "abc")
	require.NoError(t, err)
	assert.Equal(t, pw, got)

	_, err = sdk.Get[Password](ms, "devices", "missing")
	assert.ErrorIs(t, err, sdk.ErrNotFound)
}

func TestGenericGetWithJsonConversion(t *testing.T) {
	// Simulate data coming from JSON (where it's map[string]any)
	ms := &MockStore{data: map[string]any{
		"abc": map[string]any{
			"current": "p2",
			"updated": float64(2000),
		},
	}}

	got, err := sdk.Get[Password](ms, "devices", "abc")
	require.NoError(t, err)
	assert.Equal(t, Password{Current: "p2", Updated: 2000}, got)
}

// exercise runs the same scenario against any PrefsStore.
func exercise(t *testing.T, s sdk.PrefsStore) {
	t.Helper()

	require.NoError(t, s.Set("devices", "abc", Password{Current: "p1", Updated: 1000}, "password"))

	current, err := s.Get("devices", "abc", "password", "current")
	require.NoError(t, err)
	assert.Equal(t, "p1", current)

	pw, err := sdk.Get[Password](s, "devices", "abc", "password")
	require.NoError(t, err)
	assert.Equal(t, Password{Current: "p1", Updated: 1000}, pw)

	require.NoError(t, s.Delete("devices", "abc", "password", "current"))
	current, err = s.Get("devices", "abc", "password", "current")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, current)

	require.NoError(t, s.Set("devices", "def", map[string]any{"os": "linux"}))
	ids, err := s.List("devices", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abc", "def"}, ids)

	ids, err = s.List("devices", map[string]any{"os": "linux"})
	require.NoError(t, err)
	assert.Equal(t, []string{"def"}, ids)

	cats, err := s.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"devices"}, cats)

	require.NoError(t, s.Set("devices", "x", "flat", "pin"))
	assert.ErrorIs(t, s.Set("devices", "x", 1, "pin", "deeper"), sdk.ErrConflict)
	assert.ErrorIs(t, s.Set("devices", "x", "not an object"), sdk.ErrInvalid)

	require.NoError(t, s.Delete("devices", "abc"))
	require.NoError(t, s.Delete("devices", "abc"), "deleting twice is not an error")
	_, err = s.Get("devices", "abc")
	assert.ErrorIs(t, err, sdk.ErrNotFound)

	require.NoError(t, s.CreateCategory("empty"))
	var serr *sdk.Error
	require.ErrorAs(t, s.CreateCategory("empty"), &serr)
	assert.Equal(t, 409, serr.Status)

	require.NoError(t, s.DropCategory("empty"))
	require.NoError(t, s.DropAll())
	cats, err = s.Categories()
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestEmbedded(t *testing.T) {
	e, err := sdk.Open(t.TempDir(), "acme", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	exercise(t, e)
}

func TestEmbedded_Persists(t *testing.T) {
	dir := t.TempDir()

	e, err := sdk.Open(dir, "acme", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, e.Category("ui").Set("theme", map[string]any{"dark": true}))
	require.NoError(t, e.Close())

	e, err = sdk.Open(dir, "acme", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	dark, err := e.Category("ui").Get("theme", "dark")
	require.NoError(t, err)
	assert.Equal(t, true, dark)
}

func TestOpen_MalformedTenant(t *testing.T) {
	_, err := sdk.Open(t.TempDir(), "../etc", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNew_FallsBackToEmbedded(t *testing.T) {
	// Nothing listens on port 1.
	t.Setenv("CELERIX_PREFS_ADDR", "127.0.0.1:1")

	s, err := sdk.New(t.TempDir(), "acme")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*sdk.Embedded)
	assert.True(t, ok)
}

func TestCategoryScope(t *testing.T) {
	e, err := sdk.Open(t.TempDir(), "acme", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	ui := e.Category("ui")
	assert.Equal(t, "ui", ui.Name())
	require.NoError(t, ui.Set("layout", "grid", "mode"))

	mode, err := ui.Get("layout", "mode")
	require.NoError(t, err)
	assert.Equal(t, "grid", mode)

	ids, err := ui.List(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"layout"}, ids)

	require.NoError(t, ui.Delete("layout"))
	_, err = ui.Get("layout")
	assert.ErrorIs(t, err, sdk.ErrNotFound)
}

func TestVaultScope(t *testing.T) {
	e, err := sdk.Open(t.TempDir(), "acme", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	key := vault.DeriveKey("correct horse")
	secrets := e.Category("secrets")
	require.NoError(t, secrets.Vault(key).Set("api", "hunter2", "token"))

	raw, err := secrets.Get("api", "token")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", raw, "the service must only see ciphertext")

	plain, err := secrets.Vault(key).Get("api", "token")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)

	_, err = secrets.Vault(vault.DeriveKey("battery staple")).Get("api", "token")
	assert.ErrorIs(t, err, vault.ErrOpen)

	require.NoError(t, secrets.Set("api", 42, "pin"))
	_, err = secrets.Vault(key).Get("api", "pin")
	assert.Error(t, err)
}

func TestInvalidSegments(t *testing.T) {
	e, err := sdk.Open(t.TempDir(), "acme", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	assert.ErrorIs(t, e.Set("devices", "a b", 1), sdk.ErrInvalid)
	assert.ErrorIs(t, e.Set("devices", "abc", 1, "x/y"), sdk.ErrInvalid)
	assert.ErrorIs(t, e.Set("devices", "", 1), sdk.ErrInvalid)
	_, err = e.Get("devices", "abc", "", "x")
	assert.ErrorIs(t, err, sdk.ErrInvalid)
	_, err = e.List("", nil)
	assert.ErrorIs(t, err, sdk.ErrInvalid)
}

// startDaemon runs a line protocol router and returns its address.
func startDaemon(t *testing.T, v auth.Verifier, tlsOn bool) string {
	t.Helper()
	svc := prefs.NewService(store.NewMemStore(nil, nil))
	router := server.NewRouter(svc, auth.NewResolver(v), zaptest.NewLogger(t))
	if tlsOn {
		cert, err := vault.GenerateSelfSignedCert()
		require.NoError(t, err)
		router.SetCertificate(cert)
	}

	errc := make(chan error, 1)
	go func() { errc <- router.Listen("127.0.0.1:0") }()
	require.Eventually(t, func() bool { return router.Addr() != nil }, time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		require.NoError(t, router.Stop())
		require.NoError(t, <-errc)
	})
	return router.Addr().String()
}

func TestClient(t *testing.T) {
	addr := startDaemon(t, nil, false)

	c, err := sdk.Connect(addr, "acme", "", sdk.WithTLS(false), sdk.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping())
	exercise(t, c)
}

func TestClient_TLS(t *testing.T) {
	addr := startDaemon(t, nil, true)

	c, err := sdk.Connect(addr, "acme", "", sdk.WithTLS(true))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("devices", "abc", map[string]any{"v": 1}))
	v, err := sdk.Get[int](c, "devices", "abc", "v")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestClient_Rejected(t *testing.T) {
	const secret = "s3cret"
	addr := startDaemon(t, auth.NewJWTVerifier(secret), false)

	_, err := sdk.Connect(addr, "acme", "", sdk.WithTLS(false))
	assert.ErrorIs(t, err, sdk.ErrUnauthorized)

	_, err = sdk.Connect(addr, "acme", "junk", sdk.WithTLS(false))
	assert.ErrorIs(t, err, sdk.ErrUnauthorized)
}
