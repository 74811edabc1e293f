package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

type mwMetrics struct {
	// RED metrics
	reqs *prometheus.CounterVec
	errs *prometheus.CounterVec
	durs *prometheus.HistogramVec

	next Adapter
}

var _ Adapter = (*mwMetrics)(nil)

// NewMetrics wraps an Adapter with call, error and latency metrics registered
// on reg.
func NewMetrics(reg prometheus.Registerer, next Adapter) Adapter {
	const namespace = "prefs"
	const subsystem = "store"

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "call_total",
		Help:      "Number of calls to the document store",
	}, []string{"method"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "error_total",
		Help:      "Number of errors returned by the document store",
	}, []string{"method", "code"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Duration of document store calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	reg.MustRegister(reqs, errs, durs)

	return &mwMetrics{reqs: reqs, errs: errs, durs: durs, next: next}
}

func (mw *mwMetrics) updateMetrics(method string) func(error) error {
	start := time.Now()
	return func(err error) error {
		mw.reqs.With(prometheus.Labels{"method": method}).Inc()

		if err != nil {
			code := "error"
			switch {
			case errors.Is(err, ErrNotFound):
				code = "not_found"
			case errors.Is(err, ErrCategoryExists):
				code = "exists"
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				code = "canceled"
			}
			mw.errs.With(prometheus.Labels{
				"method": method,
				"code":   code,
			}).Inc()
		}

		mw.durs.With(prometheus.Labels{"method": method}).Observe(time.Since(start).Seconds())
		return err
	}
}

func (mw *mwMetrics) FindOne(ctx context.Context, ns tenant.Namespace, category, id string) (Document, error) {
	m := mw.updateMetrics("find_one")
	doc, err := mw.next.FindOne(ctx, ns, category, id)
	return doc, m(err)
}

func (mw *mwMetrics) Find(ctx context.Context, ns tenant.Namespace, category string, filter jsonv.Value) (Cursor, error) {
	m := mw.updateMetrics("find")
	c, err := mw.next.Find(ctx, ns, category, filter)
	return c, m(err)
}

func (mw *mwMetrics) Save(ctx context.Context, ns tenant.Namespace, category string, doc Document) error {
	return mw.updateMetrics("save")(mw.next.Save(ctx, ns, category, doc))
}

func (mw *mwMetrics) Remove(ctx context.Context, ns tenant.Namespace, category, id string) error {
	return mw.updateMetrics("remove")(mw.next.Remove(ctx, ns, category, id))
}

func (mw *mwMetrics) CreateCategory(ctx context.Context, ns tenant.Namespace, name string) error {
	return mw.updateMetrics("create_category")(mw.next.CreateCategory(ctx, ns, name))
}

func (mw *mwMetrics) ListCategories(ctx context.Context, ns tenant.Namespace) ([]string, error) {
	m := mw.updateMetrics("list_categories")
	names, err := mw.next.ListCategories(ctx, ns)
	return names, m(err)
}

func (mw *mwMetrics) DropCategory(ctx context.Context, ns tenant.Namespace, name string) error {
	return mw.updateMetrics("drop_category")(mw.next.DropCategory(ctx, ns, name))
}

func (mw *mwMetrics) ListNamespaces(ctx context.Context) ([]tenant.Namespace, error) {
	m := mw.updateMetrics("list_namespaces")
	list, err := mw.next.ListNamespaces(ctx)
	return list, m(err)
}

func (mw *mwMetrics) DropNamespace(ctx context.Context, ns tenant.Namespace) error {
	return mw.updateMetrics("drop_namespace")(mw.next.DropNamespace(ctx, ns))
}

func (mw *mwMetrics) Close() error {
	return mw.next.Close()
}
