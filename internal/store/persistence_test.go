package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

func TestPersistence_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersistence(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	data := TenantData{
		"settings": {"u1": jsonv.MustParse(`{"theme":"dark"}`)},
		"empty":    {},
	}
	require.NoError(t, p.SaveTenant("acme", 1, data))

	_, err = os.Stat(filepath.Join(dir, "acme.json"))
	require.NoError(t, err, "tenant file was not created")

	all, err := p.LoadAll()
	require.NoError(t, err)
	require.Contains(t, all, "acme")
	assert.Equal(t, `{"theme":"dark"}`, all["acme"]["settings"]["u1"].String())
	assert.Contains(t, all["acme"], "empty")
}

func TestPersistence_SkipsStaleSnapshots(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersistence(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, p.SaveTenant("acme", 2, TenantData{"c": {"x": jsonv.MustParse(`{"v":2}`)}}))
	require.NoError(t, p.SaveTenant("acme", 1, TenantData{"c": {"x": jsonv.MustParse(`{"v":1}`)}}))

	all, err := p.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, all["acme"]["c"]["x"].String())
}

func TestPersistence_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	p, err := NewPersistence(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, p.SaveTenant("good", 1, TenantData{"c": {}}))

	all, err := p.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "good")
}

func TestMemStore_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ns := tenant.MustResolve("acme")

	p, err := NewPersistence(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	ms := NewMemStore(nil, p)

	require.NoError(t, ms.Save(ctx, ns, "settings", Document{ID: "u1", Body: jsonv.MustParse(`{"a":1}`)}))
	require.NoError(t, ms.Save(ctx, ns, "settings", Document{ID: "u2", Body: jsonv.MustParse(`{"a":2}`)}))
	require.NoError(t, ms.Remove(ctx, ns, "settings", "u1"))
	ms.Wait()

	all, err := p.LoadAll()
	require.NoError(t, err)
	ms2 := NewMemStore(all, p)

	_, err = ms2.FindOne(ctx, ns, "settings", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	doc, err := ms2.FindOne(ctx, ns, "settings", "u2")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, doc.Body.String())
}

func TestMemStore_DropNamespaceRemovesFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ns := tenant.MustResolve("acme")

	p, err := NewPersistence(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	ms := NewMemStore(nil, p)

	require.NoError(t, ms.CreateCategory(ctx, ns, "settings"))
	ms.Wait()
	_, err = os.Stat(filepath.Join(dir, "acme.json"))
	require.NoError(t, err)

	require.NoError(t, ms.DropNamespace(ctx, ns))
	ms.Wait()
	_, err = os.Stat(filepath.Join(dir, "acme.json"))
	assert.True(t, os.IsNotExist(err))
}
