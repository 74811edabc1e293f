package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/auth"
	perrors "github.com/celerix-dev/celerix-prefs/internal/errors"
	"github.com/celerix-dev/celerix-prefs/internal/metrics"
	"github.com/celerix-dev/celerix-prefs/internal/prefs"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
	"github.com/celerix-dev/celerix-prefs/pkg/schema"
)

// MaxBodySize bounds request payloads.
const MaxBodySize = 1 << 20

const authorizedKey = "prefs.authorized"

// Handler serves preference documents over HTTP.
type Handler struct {
	Service  *prefs.Service
	Resolver *auth.Resolver
	Logger   *zap.Logger
	// Metrics is optional.
	Metrics *metrics.HTTPMetrics
}

// NewRouter returns the gin engine serving every route family. When the
// service pins a category, the category segment is omitted from routes.
func NewRouter(h *Handler) *gin.Engine {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog())
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware())
	}
	r.Use(h.authorize())

	routes := []string{"/", "/:category", "/:category/:identifier", "/:category/:identifier/*path"}
	if h.Service.Category() != "" {
		routes = []string{"/", "/:identifier", "/:identifier/*path"}
	}
	for _, route := range routes {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
			r.Handle(method, route, h.Serve)
		}
	}
	return r
}

// tenantHeader returns the tenant of the request, preferring X-Project-Id.
func tenantHeader(r *http.Request) string {
	if v := r.Header.Get(schema.HeaderProjectID); v != "" {
		return v
	}
	return r.Header.Get(schema.HeaderTenantID)
}

// tokenHeader returns the access token from X-Auth-Token or a bearer
// Authorization header.
func tokenHeader(r *http.Request) string {
	if v := r.Header.Get(schema.HeaderAuthToken); v != "" {
		return v
	}
	if s := r.Header.Get("Authorization"); s != "" {
		strs := strings.SplitN(s, " ", 2)
		if len(strs) == 2 && strings.EqualFold(strs[0], "Bearer") {
			return strings.TrimSpace(strs[1])
		}
	}
	return ""
}

// authorize resolves the request context once, before any handler runs.
func (h *Handler) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch rc := h.Resolver.Resolve(c.Request.Context(), tenantHeader(c.Request), tokenHeader(c.Request)).(type) {
		case auth.Authorized:
			c.Set(authorizedKey, rc)
			c.Next()
		case auth.Rejected:
			abort(c, perrors.New(perrors.EUnauthorized, "api.authorize", "%s", rc.Reason))
		}
	}
}

func verbOf(method string) (prefs.Verb, bool) {
	switch method {
	case http.MethodGet:
		return prefs.Read, true
	case http.MethodPost, http.MethodPut:
		return prefs.Write, true
	case http.MethodDelete:
		return prefs.Delete, true
	}
	return 0, false
}

// Serve handles every route family.
func (h *Handler) Serve(c *gin.Context) {
	const op = "api.Serve"

	who, ok := c.MustGet(authorizedKey).(auth.Authorized)
	if !ok {
		abort(c, perrors.New(perrors.EUnauthorized, op, "unauthorized"))
		return
	}
	verb, ok := verbOf(c.Request.Method)
	if !ok {
		abort(c, perrors.New(perrors.EInvalid, op, "unsupported method %s", c.Request.Method))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, perrors.New(perrors.EInvalid, op, "request body exceeds %d bytes", MaxBodySize))
			return
		}
		abort(c, perrors.New(perrors.EInvalid, op, "failed to read request body"))
		return
	}

	req := prefs.Request{
		Verb:       verb,
		Category:   c.Param("category"),
		Identifier: c.Param("identifier"),
		Path:       jsonv.ParsePath(c.Param("path")),
		Body:       body,
	}

	resp, err := h.Service.Do(c.Request.Context(), who, req)
	if err != nil {
		abort(c, err)
		return
	}
	if resp.Empty {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "application/json", resp.Value.Bytes())
}

// abort writes the coded error body and stops the handler chain.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(perrors.HTTPStatus(err), schema.ErrorResponse{
		Code:    perrors.ErrorCode(err),
		Message: perrors.ErrorMessage(err),
	})
}
