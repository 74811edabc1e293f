package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// BoltStore is an Adapter backed by boltdb. Each tenant is a top-level
// bucket; each category is a nested bucket keyed by document identifier.
type BoltStore struct {
	path   string
	db     *bolt.DB
	logger *zap.Logger
}

// NewBoltStore creates the bolt file if it doesn't exist and opens it.
func NewBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure the required directory structure exists.
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("unable to create directory %s: %v", path, err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open boltdb file %v", err)
	}

	logger.Info("Resources opened", zap.String("path", path))
	return &BoltStore{path: path, db: db, logger: logger}, nil
}

// Close the connection to the bolt database
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func categoryBucket(tx *bolt.Tx, ns tenant.Namespace, category string) *bolt.Bucket {
	t := tx.Bucket([]byte(ns.String()))
	if t == nil {
		return nil
	}
	return t.Bucket([]byte(category))
}

func (s *BoltStore) FindOne(_ context.Context, ns tenant.Namespace, category, id string) (Document, error) {
	var doc Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := categoryBucket(tx, ns, category)
		if b == nil {
			return ErrNotFound
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		body, err := jsonv.Parse(raw)
		if err != nil {
			return err
		}
		doc = Document{ID: id, Body: body}
		return nil
	})
	return doc, err
}

func (s *BoltStore) Find(_ context.Context, ns tenant.Namespace, category string, filter jsonv.Value) (Cursor, error) {
	return &boltCursor{db: s.db, ns: ns, category: category, filter: filter}, nil
}

func (s *BoltStore) Save(_ context.Context, ns tenant.Namespace, category string, doc Document) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		t, err := tx.CreateBucketIfNotExists([]byte(ns.String()))
		if err != nil {
			return err
		}
		b, err := t.CreateBucketIfNotExists([]byte(category))
		if err != nil {
			return err
		}
		return b.Put([]byte(doc.ID), doc.Body.Bytes())
	})
}

func (s *BoltStore) Remove(_ context.Context, ns tenant.Namespace, category, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := categoryBucket(tx, ns, category)
		if b == nil || b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) CreateCategory(_ context.Context, ns tenant.Namespace, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		t, err := tx.CreateBucketIfNotExists([]byte(ns.String()))
		if err != nil {
			return err
		}
		if t.Bucket([]byte(name)) != nil {
			return ErrCategoryExists
		}
		_, err = t.CreateBucket([]byte(name))
		return err
	})
}

func (s *BoltStore) ListCategories(_ context.Context, ns tenant.Namespace) ([]string, error) {
	names := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		t := tx.Bucket([]byte(ns.String()))
		if t == nil {
			return nil
		}
		return t.ForEach(func(k, v []byte) error {
			// nested buckets have a nil value
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) DropCategory(_ context.Context, ns tenant.Namespace, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		t := tx.Bucket([]byte(ns.String()))
		if t == nil || t.Bucket([]byte(name)) == nil {
			return nil
		}
		return t.DeleteBucket([]byte(name))
	})
}

func (s *BoltStore) ListNamespaces(_ context.Context) ([]tenant.Namespace, error) {
	var list []tenant.Namespace
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			if ns, err := tenant.Resolve(string(name)); err == nil {
				list = append(list, ns)
			}
			return nil
		})
	})
	return list, err
}

func (s *BoltStore) DropNamespace(_ context.Context, ns tenant.Namespace) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(ns.String())) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(ns.String()))
	})
}

// boltCursor opens a short read transaction per batch and resumes after the
// last key it returned.
type boltCursor struct {
	db       *bolt.DB
	ns       tenant.Namespace
	category string
	filter   jsonv.Value
	after    []byte
	done     bool
}

func (c *boltCursor) Next(_ context.Context, n int) ([]Document, error) {
	if n <= 0 || c.done {
		return nil, nil
	}
	var batch []Document
	err := c.db.View(func(tx *bolt.Tx) error {
		b := categoryBucket(tx, c.ns, c.category)
		if b == nil {
			c.done = true
			return nil
		}
		cur := b.Cursor()

		var k, v []byte
		if c.after == nil {
			k, v = cur.First()
		} else {
			k, v = cur.Seek(c.after)
			if k != nil && bytes.Equal(k, c.after) {
				k, v = cur.Next()
			}
		}
		for ; k != nil; k, v = cur.Next() {
			if len(batch) == n {
				return nil
			}
			// keys are only valid for the life of the transaction
			c.after = append(c.after[:0], k...)
			body, err := jsonv.Parse(v)
			if err != nil {
				return fmt.Errorf("document %q: %w", k, err)
			}
			if Match(body, c.filter) {
				batch = append(batch, Document{ID: string(k), Body: body})
			}
		}
		c.done = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (c *boltCursor) Close() error {
	c.done = true
	return nil
}
