package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// SqliteStore stores every namespace in a single SQLite database.
//
// Tables:
//
//	categories(tenant, name)              PRIMARY KEY (tenant, name)
//	documents(tenant, category, id, body) PRIMARY KEY (tenant, category, id)
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (or creates) the database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers and keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		`CREATE TABLE IF NOT EXISTS categories (
			tenant TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (tenant, name)
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			tenant TEXT NOT NULL,
			category TEXT NOT NULL,
			id TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (tenant, category, id)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) FindOne(ctx context.Context, ns tenant.Namespace, category, id string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE tenant = ? AND category = ? AND id = ?",
		ns.String(), category, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	body, err := jsonv.Parse([]byte(raw))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Body: body}, nil
}

func (s *SqliteStore) Find(_ context.Context, ns tenant.Namespace, category string, filter jsonv.Value) (Cursor, error) {
	return &sqliteCursor{db: s.db, tenant: ns.String(), category: category, filter: filter}, nil
}

func (s *SqliteStore) Save(ctx context.Context, ns tenant.Namespace, category string, doc Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (tenant, name) VALUES (?, ?)",
		ns.String(), category,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (tenant, category, id, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(tenant, category, id) DO UPDATE SET body = excluded.body`,
		ns.String(), category, doc.ID, doc.Body.String(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Remove(ctx context.Context, ns tenant.Namespace, category, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE tenant = ? AND category = ? AND id = ?",
		ns.String(), category, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SqliteStore) CreateCategory(ctx context.Context, ns tenant.Namespace, name string) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (tenant, name) VALUES (?, ?)",
		ns.String(), name,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCategoryExists
	}
	return nil
}

func (s *SqliteStore) ListCategories(ctx context.Context, ns tenant.Namespace) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM categories WHERE tenant = ? ORDER BY name", ns.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SqliteStore) DropCategory(ctx context.Context, ns tenant.Namespace, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE tenant = ? AND category = ?", ns.String(), name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM categories WHERE tenant = ? AND name = ?", ns.String(), name); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) ListNamespaces(ctx context.Context) ([]tenant.Namespace, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT tenant FROM categories ORDER BY tenant")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []tenant.Namespace
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if ns, err := tenant.Resolve(name); err == nil {
			list = append(list, ns)
		}
	}
	return list, rows.Err()
}

func (s *SqliteStore) DropNamespace(ctx context.Context, ns tenant.Namespace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE tenant = ?", ns.String()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE tenant = ?", ns.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// sqliteCursor pages through a category by primary key, so no statement or
// transaction is held open between batches.
type sqliteCursor struct {
	db       *sql.DB
	tenant   string
	category string
	filter   jsonv.Value
	after    string
	done     bool
}

func (c *sqliteCursor) Next(ctx context.Context, n int) ([]Document, error) {
	if n <= 0 {
		return nil, nil
	}
	var batch []Document
	for len(batch) < n && !c.done {
		page, err := c.page(ctx, n)
		if err != nil {
			return nil, err
		}
		if len(page) < n {
			c.done = true
		}
		for _, doc := range page {
			if len(batch) == n {
				// Unconsumed rows are read again on the next call.
				c.done = false
				break
			}
			c.after = doc.ID
			if Match(doc.Body, c.filter) {
				batch = append(batch, doc)
			}
		}
	}
	return batch, nil
}

func (c *sqliteCursor) page(ctx context.Context, n int) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, body FROM documents
		 WHERE tenant = ? AND category = ? AND id > ?
		 ORDER BY id LIMIT ?`,
		c.tenant, c.category, c.after, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		body, err := jsonv.Parse([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Body: body})
	}
	return docs, rows.Err()
}

func (c *sqliteCursor) Close() error {
	c.done = true
	return nil
}
