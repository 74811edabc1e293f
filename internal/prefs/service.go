// Package prefs composes tenants, categories, pagination and path navigation
// into the outcome of a single preference request.
package prefs

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/auth"
	perrors "github.com/celerix-dev/celerix-prefs/internal/errors"
	"github.com/celerix-dev/celerix-prefs/internal/navigator"
	"github.com/celerix-dev/celerix-prefs/internal/store"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
	"github.com/celerix-dev/celerix-prefs/pkg/schema"
)

// Verb is the family of a request.
type Verb int

const (
	Read Verb = iota
	Write
	Delete
)

func (v Verb) String() string {
	switch v {
	case Read:
		return "read"
	case Write:
		return "write"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// capability returns what the verb family requires.
func (v Verb) capability() schema.Capability {
	if v == Read {
		return schema.CapabilityRead
	}
	return schema.CapabilityWrite
}

// Request is one operation against a tenant. Empty Category, Identifier and
// Path select the shorter route shapes. Body is the raw JSON payload, nil or
// blank when the request had none.
type Request struct {
	Verb       Verb
	Category   string
	Identifier string
	Path       jsonv.Path
	Body       []byte
}

func (r Request) hasBody() bool {
	return len(bytes.TrimSpace(r.Body)) > 0
}

// Response is the outcome of a successful request. Empty responses carry no
// body at all; otherwise Value is the payload.
type Response struct {
	Value jsonv.Value
	Empty bool
}

var empty = Response{Empty: true}

// Service is the document operation orchestrator.
type Service struct {
	store    store.Adapter
	catalog  *Catalog
	pageSize int
	category string
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize sets the number of documents fetched per listing round-trip.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithCategory pins every request to one category. Requests then address
// identifiers directly, and categories can no longer be created or listed.
func WithCategory(name string) Option {
	return func(s *Service) { s.category = name }
}

// WithLogger sets the logger used to report store failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service over a store adapter.
func NewService(a store.Adapter, opts ...Option) *Service {
	s := &Service{
		store:    a,
		catalog:  NewCatalog(a),
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Category returns the pinned category, or "" when categories are addressed
// by the caller.
func (s *Service) Category() string { return s.category }

// ParseRoute splits a slash separated route into a Request. With a pinned
// category the first segment is the identifier; otherwise it is the
// category and the second one the identifier. Remaining segments form the
// path.
func (s *Service) ParseRoute(verb Verb, route string, body []byte) Request {
	segs := jsonv.ParsePath(route)
	req := Request{Verb: verb, Body: body}
	if s.category == "" && len(segs) > 0 {
		req.Category, segs = segs[0], segs[1:]
	}
	if len(segs) > 0 {
		req.Identifier, segs = segs[0], segs[1:]
	}
	if len(segs) > 0 {
		req.Path = segs
	}
	return req
}

// Do performs one request on behalf of an authorized caller.
func (s *Service) Do(ctx context.Context, who auth.Authorized, req Request) (Response, error) {
	const op = "prefs.Do"

	if !who.Tenant.Valid() {
		return Response{}, perrors.New(perrors.EUnauthorized, op, "missing tenant")
	}
	if !who.Allows(req.Verb.capability()) {
		return Response{}, perrors.New(perrors.EUnauthorized, op, "%s is not permitted", req.Verb)
	}

	if s.category != "" {
		if req.Verb == Write && req.Identifier == "" {
			return Response{}, perrors.New(perrors.EInvalid, op, "an identifier is required")
		}
		req.Category = s.category
	}
	if err := validate(req); err != nil {
		return Response{}, err
	}

	var (
		resp Response
		err  error
	)
	switch req.Verb {
	case Read:
		resp, err = s.read(ctx, who, req)
	case Write:
		resp, err = s.write(ctx, who, req)
	case Delete:
		resp, err = s.delete(ctx, who, req)
	default:
		err = perrors.New(perrors.EInvalid, op, "unsupported verb")
	}
	if err != nil && perrors.ErrorCode(err) == perrors.EInternal {
		s.logger.Error("Request failed",
			zap.String("tenant", who.Tenant.String()),
			zap.Stringer("verb", req.Verb),
			zap.String("category", req.Category),
			zap.String("identifier", req.Identifier),
			zap.Error(err))
	}
	return resp, err
}

func validate(req Request) error {
	const op = "prefs.validate"
	if req.Category == "" && (req.Identifier != "" || !req.Path.IsRoot()) {
		return perrors.New(perrors.EInvalid, op, "a category is required")
	}
	if req.Identifier == "" && !req.Path.IsRoot() {
		return perrors.New(perrors.EInvalid, op, "an identifier is required")
	}
	if req.Category != "" && IsReserved(req.Category) {
		return perrors.New(perrors.EInvalid, op, "category name %q is reserved", req.Category)
	}
	if strings.ContainsRune(req.Category, '/') || strings.ContainsRune(req.Identifier, '/') {
		return perrors.New(perrors.EInvalid, op, "names may not contain '/'")
	}
	return nil
}

func (s *Service) read(ctx context.Context, who auth.Authorized, req Request) (Response, error) {
	const op = "prefs.read"
	ns := who.Tenant

	switch {
	case req.Category == "":
		if req.hasBody() {
			return Response{}, perrors.New(perrors.EInvalid, op, "a body is not allowed when listing categories")
		}
		names, err := s.catalog.ListCategories(ctx, ns)
		if err != nil {
			return Response{}, err
		}
		return Response{Value: stringArray(names)}, nil

	case req.Identifier == "":
		filter := jsonv.NullValue()
		if req.hasBody() {
			f, err := jsonv.Parse(req.Body)
			if err != nil {
				return Response{}, perrors.New(perrors.EInvalid, op, "malformed filter")
			}
			if !f.IsObject() {
				return Response{}, perrors.New(perrors.EInvalid, op, "filter must be an object")
			}
			filter = f
		}
		ids, err := collect(ListIdentifiers(ctx, s.store, ns, req.Category, filter, s.pageSize))
		if err != nil {
			return Response{}, perrors.Wrap(perrors.EInternal, op, err)
		}
		return Response{Value: stringArray(ids)}, nil
	}

	if req.hasBody() {
		return Response{}, perrors.New(perrors.EInvalid, op, "a body is not allowed when reading a document")
	}
	doc, err := s.store.FindOne(ctx, ns, req.Category, req.Identifier)
	if errors.Is(err, store.ErrNotFound) {
		return Response{}, perrors.New(perrors.ENotFound, op, "document %q not found", req.Identifier)
	}
	if err != nil {
		return Response{}, perrors.Wrap(perrors.EInternal, op, err)
	}
	return Response{Value: navigator.Get(doc.Body, req.Path)}, nil
}

func (s *Service) write(ctx context.Context, who auth.Authorized, req Request) (Response, error) {
	const op = "prefs.write"
	ns := who.Tenant

	if req.Category == "" {
		return Response{}, perrors.New(perrors.EInvalid, op, "a category is required")
	}
	if req.Identifier == "" {
		if err := s.catalog.CreateCategory(ctx, ns, req.Category); err != nil {
			return Response{}, err
		}
		return empty, nil
	}

	payload, err := jsonv.Parse(req.Body)
	if err != nil {
		return Response{}, perrors.New(perrors.EInvalid, op, "malformed JSON payload")
	}
	if req.Path.IsRoot() && !payload.IsObject() {
		return Response{}, perrors.New(perrors.EInvalid, op, "document payload must be an object")
	}

	doc, err := s.store.FindOne(ctx, ns, req.Category, req.Identifier)
	exists := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Response{}, perrors.Wrap(perrors.EInternal, op, err)
	}

	var body jsonv.Value
	switch {
	case !exists:
		body = navigator.Build(req.Path, payload)
	case req.Path.IsRoot():
		body = doc.Body
		body.Merge(payload)
	default:
		body, err = navigator.Set(doc.Body, req.Path, payload)
		if errors.Is(err, navigator.ErrConflict) {
			return Response{}, perrors.Wrap(perrors.EConflict, op, err)
		}
		if err != nil {
			return Response{}, perrors.Wrap(perrors.EInternal, op, err)
		}
	}

	if err := s.store.Save(ctx, ns, req.Category, store.Document{ID: req.Identifier, Body: body}); err != nil {
		return Response{}, perrors.Wrap(perrors.EInternal, op, err)
	}
	return empty, nil
}

func (s *Service) delete(ctx context.Context, who auth.Authorized, req Request) (Response, error) {
	const op = "prefs.delete"
	ns := who.Tenant

	switch {
	case req.Category == "":
		return empty, s.catalog.DropNamespace(ctx, ns)
	case req.Identifier == "":
		return empty, s.catalog.DropCategory(ctx, ns, req.Category)
	case req.Path.IsRoot():
		err := s.store.Remove(ctx, ns, req.Category, req.Identifier)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Response{}, perrors.Wrap(perrors.EInternal, op, err)
		}
		return empty, nil
	}

	doc, err := s.store.FindOne(ctx, ns, req.Category, req.Identifier)
	if errors.Is(err, store.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return Response{}, perrors.Wrap(perrors.EInternal, op, err)
	}
	body, changed := navigator.Delete(doc.Body, req.Path)
	if !changed {
		return empty, nil
	}
	if err := s.store.Save(ctx, ns, req.Category, store.Document{ID: req.Identifier, Body: body}); err != nil {
		return Response{}, perrors.Wrap(perrors.EInternal, op, err)
	}
	return empty, nil
}

func stringArray(ss []string) jsonv.Value {
	elems := make([]jsonv.Value, len(ss))
	for i, s := range ss {
		elems[i] = jsonv.StringValue(s)
	}
	return jsonv.ArrayValue(elems...)
}
