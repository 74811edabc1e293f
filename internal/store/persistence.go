package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// Persistence handles the disk I/O for the MemStore: one JSON file per tenant
// holding {category: {id: body}}.
type Persistence struct {
	DataDir string
	logger  *zap.Logger
	mu      sync.Mutex        // Protects concurrent writes to the filesystem
	written map[string]uint64 // last sequence written per tenant
}

// NewPersistence initializes a persistence handler.
func NewPersistence(dir string, logger *zap.Logger) (*Persistence, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persistence{DataDir: dir, logger: logger, written: make(map[string]uint64)}, nil
}

func (p *Persistence) path(name string) string {
	return filepath.Join(p.DataDir, name+".json")
}

// stale reports whether a newer snapshot of the tenant was already handled.
// It MUST be called while holding p.mu.
func (p *Persistence) stale(name string, seq uint64) bool {
	if seq != 0 && seq <= p.written[name] {
		return true
	}
	p.written[name] = seq
	return false
}

// SaveTenant writes a single tenant's data to a JSON file atomically.
// Snapshots older than one already written are skipped.
func (p *Persistence) SaveTenant(name string, seq uint64, data TenantData) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stale(name, seq) {
		return nil
	}

	root := jsonv.NewObject()
	for category, docs := range data {
		c := jsonv.NewObject()
		for id, body := range docs {
			c.Set(id, body)
		}
		root.Set(category, c)
	}

	filePath := p.path(name)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, root.Bytes(), 0644); err != nil {
		p.logger.Error("Failed to write tenant file", zap.String("tenant", name), zap.Error(err))
		return err
	}

	// Readers see either the old file or the new one, never a partial write.
	if err := os.Rename(tempPath, filePath); err != nil {
		p.logger.Error("Failed to replace tenant file", zap.String("tenant", name), zap.Error(err))
		return err
	}
	return nil
}

// RemoveTenant deletes a tenant's file. A missing file is not an error.
func (p *Persistence) RemoveTenant(name string, seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stale(name, seq) {
		return nil
	}
	if err := os.Remove(p.path(name)); err != nil && !os.IsNotExist(err) {
		p.logger.Error("Failed to remove tenant file", zap.String("tenant", name), zap.Error(err))
		return err
	}
	return nil
}

// LoadAll returns all tenant data found in the data directory.
func (p *Persistence) LoadAll() (map[string]TenantData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string]TenantData)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(file.Name(), ".json")

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			p.logger.Warn("Could not read tenant file", zap.String("file", file.Name()), zap.Error(err))
			continue // Skip corrupted/unreadable files
		}

		data, err := decodeTenant(content)
		if err != nil {
			p.logger.Warn("Could not decode tenant file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		allData[name] = data
	}
	return allData, nil
}

func decodeTenant(content []byte) (TenantData, error) {
	root, err := jsonv.Parse(content)
	if err != nil {
		return nil, err
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", root.Kind())
	}

	data := make(TenantData, root.Len())
	for _, category := range root.Keys() {
		c, _ := root.Get(category)
		if !c.IsObject() {
			return nil, fmt.Errorf("category %q: expected object, got %s", category, c.Kind())
		}
		docs := make(map[string]jsonv.Value, c.Len())
		for _, id := range c.Keys() {
			body, _ := c.Get(id)
			docs[id] = body
		}
		data[category] = docs
	}
	return data, nil
}
