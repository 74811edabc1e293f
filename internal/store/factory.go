package store

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSqlite = "sqlite"
	BackendBolt   = "bolt"
)

// Backends lists every supported backend name.
var Backends = []string{BackendMemory, BackendFile, BackendSqlite, BackendBolt}

// New creates an Adapter based on the backend name.
//
// Supported backends:
//
//	"file"   - one JSON file per tenant in dataDir (default)
//	"sqlite" - SQLite database at dataDir/prefs.db
//	"bolt"   - bolt database at dataDir/prefs.bolt
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, dataDir string, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch backend {
	case BackendFile, "":
		p, err := NewPersistence(dataDir, logger)
		if err != nil {
			return nil, err
		}
		initialData, err := p.LoadAll()
		if err != nil {
			logger.Warn("Could not load existing data", zap.Error(err))
		}
		logger.Info("Loaded tenants", zap.Int("count", len(initialData)), zap.String("dir", dataDir))
		return NewMemStore(initialData, p), nil
	case BackendSqlite:
		return NewSqliteStore(filepath.Join(dataDir, "prefs.db"))
	case BackendBolt:
		return NewBoltStore(filepath.Join(dataDir, "prefs.bolt"), logger)
	case BackendMemory:
		return NewMemStore(nil, nil), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: %v)", backend, Backends)
	}
}
