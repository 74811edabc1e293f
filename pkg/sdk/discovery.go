package sdk

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/auth"
	perrors "github.com/celerix-dev/celerix-prefs/internal/errors"
	"github.com/celerix-dev/celerix-prefs/internal/prefs"
	"github.com/celerix-dev/celerix-prefs/internal/store"
	"github.com/celerix-dev/celerix-prefs/internal/tenant"
)

// New initializes the store based on the environment.
// It returns the interface, so the app doesn't care if it's local or remote.
func New(dataDir, tenantName string) (PrefsStore, error) {
	// 1. Check if a remote daemon is defined in environment variables
	if addr := os.Getenv("CELERIX_PREFS_ADDR"); addr != "" {
		client, err := Connect(addr, tenantName, os.Getenv("CELERIX_PREFS_TOKEN"))
		if err == nil {
			return client, nil
		}
		// Fall back to local data when the daemon is unreachable
	}

	// 2. Fallback to embedded mode
	return Open(dataDir, tenantName, zap.NewNop())
}

// Embedded runs the preference service inside the calling process, on the
// same file backend the daemon uses. It implements PrefsStore.
type Embedded struct {
	ops

	adapter store.Adapter
	service *prefs.Service
	who     auth.Authorized
}

// Open starts an embedded store over the file backend in dataDir, acting as
// tenantName with every capability.
func Open(dataDir, tenantName string, logger *zap.Logger) (*Embedded, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ns, err := tenant.Resolve(tenantName)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant: %w", err)
	}

	a, err := store.New(store.BackendFile, dataDir, logger)
	if err != nil {
		return nil, err
	}

	e := &Embedded{
		adapter: a,
		service: prefs.NewService(a, prefs.WithLogger(logger)),
		who:     auth.NewAuthorized(ns),
	}
	e.ops = ops{ex: e}
	return e, nil
}

func (e *Embedded) exchange(verb prefs.Verb, route string, body []byte) ([]byte, error) {
	req := e.service.ParseRoute(verb, route, body)
	resp, err := e.service.Do(context.Background(), e.who, req)
	if err != nil {
		return nil, &Error{Status: perrors.HTTPStatus(err), Message: perrors.ErrorMessage(err)}
	}
	if resp.Empty {
		return nil, nil
	}
	return resp.Value.Bytes(), nil
}

// Category returns a scope pinned to one category.
func (e *Embedded) Category(name string) *CategoryScope {
	return newCategoryScope(e, name)
}

// Close waits for pending writes to reach the disk.
func (e *Embedded) Close() error {
	return e.adapter.Close()
}
