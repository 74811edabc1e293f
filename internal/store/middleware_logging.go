package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// Logger is a logging middleware for an Adapter.
type Logger struct {
	logger *zap.Logger
	next   Adapter
}

// NewLogger returns a logging middleware for the Adapter.
func NewLogger(log *zap.Logger, next Adapter) *Logger {
	return &Logger{logger: log, next: next}
}

var _ Adapter = (*Logger)(nil)

func (l *Logger) done(op string, ns tenant.Namespace, fields ...zap.Field) func(*error) {
	start := time.Now()
	return func(errp *error) {
		err := *errp
		fields = append(fields, zap.String("tenant", ns.String()), zap.Duration("took", time.Since(start)))
		if err != nil {
			l.logger.Debug("failed to "+op, append(fields, zap.Error(err))...)
			return
		}
		l.logger.Debug(op, fields...)
	}
}

func (l *Logger) FindOne(ctx context.Context, ns tenant.Namespace, category, id string) (doc Document, err error) {
	defer l.done("find document", ns, zap.String("category", category), zap.String("id", id))(&err)
	return l.next.FindOne(ctx, ns, category, id)
}

func (l *Logger) Find(ctx context.Context, ns tenant.Namespace, category string, filter jsonv.Value) (c Cursor, err error) {
	defer l.done("open cursor", ns, zap.String("category", category), zap.Stringer("filter", filter))(&err)
	return l.next.Find(ctx, ns, category, filter)
}

func (l *Logger) Save(ctx context.Context, ns tenant.Namespace, category string, doc Document) (err error) {
	defer l.done("save document", ns, zap.String("category", category), zap.String("id", doc.ID))(&err)
	return l.next.Save(ctx, ns, category, doc)
}

func (l *Logger) Remove(ctx context.Context, ns tenant.Namespace, category, id string) (err error) {
	defer l.done("remove document", ns, zap.String("category", category), zap.String("id", id))(&err)
	return l.next.Remove(ctx, ns, category, id)
}

func (l *Logger) CreateCategory(ctx context.Context, ns tenant.Namespace, name string) (err error) {
	defer l.done("create category", ns, zap.String("category", name))(&err)
	return l.next.CreateCategory(ctx, ns, name)
}

func (l *Logger) ListCategories(ctx context.Context, ns tenant.Namespace) (names []string, err error) {
	defer l.done("list categories", ns)(&err)
	return l.next.ListCategories(ctx, ns)
}

func (l *Logger) DropCategory(ctx context.Context, ns tenant.Namespace, name string) (err error) {
	defer l.done("drop category", ns, zap.String("category", name))(&err)
	return l.next.DropCategory(ctx, ns, name)
}

func (l *Logger) ListNamespaces(ctx context.Context) (list []tenant.Namespace, err error) {
	defer l.done("list namespaces", tenant.Namespace{})(&err)
	return l.next.ListNamespaces(ctx)
}

func (l *Logger) DropNamespace(ctx context.Context, ns tenant.Namespace) (err error) {
	defer l.done("drop namespace", ns)(&err)
	return l.next.DropNamespace(ctx, ns)
}

func (l *Logger) Close() error {
	return l.next.Close()
}
