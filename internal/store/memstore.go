package store

import (
	"context"
	"sort"
	"sync"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// TenantData is the in-memory shape of one namespace: [category][id]body.
type TenantData map[string]map[string]jsonv.Value

// MemStore is the in-memory backend. With a Persistence attached it becomes
// the file backend: every mutation snapshots the tenant and writes it to disk
// in the background.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [tenant][category][id]body
	data      map[string]TenantData
	persister *Persistence
	seq       map[string]uint64
	wg        sync.WaitGroup
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and an optional persister.
func NewMemStore(initialData map[string]TenantData, p *Persistence) *MemStore {
	if initialData == nil {
		initialData = make(map[string]TenantData)
	}
	return &MemStore{
		data:      initialData,
		persister: p,
		seq:       make(map[string]uint64),
	}
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Close waits for pending writes.
func (m *MemStore) Close() error {
	m.Wait()
	return nil
}

// --- Interface Implementation ---

func (m *MemStore) FindOne(_ context.Context, ns tenant.Namespace, category, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.data[ns.String()][category][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Body: body.Clone()}, nil
}

func (m *MemStore) Find(_ context.Context, ns tenant.Namespace, category string, filter jsonv.Value) (Cursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.data[ns.String()][category]
	ids := make([]string, 0, len(docs))
	for id, body := range docs {
		if Match(body, filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]Document, len(ids))
	for i, id := range ids {
		out[i] = Document{ID: id, Body: docs[id].Clone()}
	}
	return &sliceCursor{docs: out}, nil
}

func (m *MemStore) Save(_ context.Context, ns tenant.Namespace, category string, doc Document) error {
	m.mu.Lock()
	t := m.tenant(ns.String())
	if t[category] == nil {
		t[category] = make(map[string]jsonv.Value)
	}
	t[category][doc.ID] = doc.Body.Clone()
	m.persistLocked(ns.String())
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Remove(_ context.Context, ns tenant.Namespace, category, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.data[ns.String()][category]
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	m.persistLocked(ns.String())
	return nil
}

func (m *MemStore) CreateCategory(_ context.Context, ns tenant.Namespace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tenant(ns.String())
	if _, ok := t[name]; ok {
		return ErrCategoryExists
	}
	t[name] = make(map[string]jsonv.Value)
	m.persistLocked(ns.String())
	return nil
}

func (m *MemStore) ListCategories(_ context.Context, ns tenant.Namespace) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]string, 0)
	for name := range m.data[ns.String()] {
		list = append(list, name)
	}
	sort.Strings(list)
	return list, nil
}

func (m *MemStore) DropCategory(_ context.Context, ns tenant.Namespace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.data[ns.String()]
	if !ok {
		return nil
	}
	if _, ok := t[name]; !ok {
		return nil
	}
	delete(t, name)
	m.persistLocked(ns.String())
	return nil
}

func (m *MemStore) ListNamespaces(_ context.Context) ([]tenant.Namespace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]tenant.Namespace, 0, len(names))
	for _, name := range names {
		ns, err := tenant.Resolve(name)
		if err != nil {
			continue
		}
		list = append(list, ns)
	}
	return list, nil
}

func (m *MemStore) DropNamespace(_ context.Context, ns tenant.Namespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[ns.String()]; !ok {
		return nil
	}
	delete(m.data, ns.String())
	m.persistLocked(ns.String())
	return nil
}

// tenant returns the namespace's data, creating it on first use.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) tenant(name string) TenantData {
	t, ok := m.data[name]
	if !ok {
		t = make(TenantData)
		m.data[name] = t
	}
	return t
}

// persistLocked snapshots a tenant and hands it to the persister in the
// background. A tenant that no longer exists is removed from disk.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) persistLocked(name string) {
	if m.persister == nil {
		return
	}
	m.seq[name]++
	seq := m.seq[name]

	snapshot, ok := m.copyTenantData(name)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if ok {
			m.persister.SaveTenant(name, seq, snapshot)
		} else {
			m.persister.RemoveTenant(name, seq)
		}
	}()
}

// copyTenantData creates a deep copy of a tenant's data.
// It MUST be called while holding m.mu.Lock or m.mu.RLock.
func (m *MemStore) copyTenantData(name string) (TenantData, bool) {
	original, ok := m.data[name]
	if !ok {
		return nil, false
	}

	tenantCopy := make(TenantData, len(original))
	for category, docs := range original {
		docsCopy := make(map[string]jsonv.Value, len(docs))
		for id, body := range docs {
			docsCopy[id] = body.Clone()
		}
		tenantCopy[category] = docsCopy
	}
	return tenantCopy, true
}
