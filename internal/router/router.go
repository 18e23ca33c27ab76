package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apiHandler "github.com/fastygo/agroflow/api/handler"
	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/internal/middleware"
)

type Handlers struct {
	Health      *apiHandler.HealthHandler
	Sync        *apiHandler.SyncHandler
	Collections map[domain.Collection]apiHandler.CollectionRoutes
	// Metrics is served on /metrics when non-nil.
	Metrics prometheus.Gatherer
}

func New(handlers Handlers, auth middleware.Middleware) *router.Router {
	if auth == nil {
		auth = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(handlers.Metrics, promhttp.HandlerOpts{}),
		))
	}

	api := r.Group("/api/v1")

	api.POST("/sync", auth(handlers.Sync.Sync))
	api.GET("/outbox", auth(handlers.Sync.Outbox))
	api.POST("/connectivity", auth(handlers.Sync.Connectivity))

	for _, name := range domain.Collections {
		h, ok := handlers.Collections[name]
		if !ok {
			continue
		}
		base := "/" + name.String()
		api.GET(base, auth(h.List))
		api.POST(base, auth(h.Create))
		api.DELETE(base, auth(h.DeleteAll))
		api.GET(base+"/{id}", auth(h.Get))
		api.PATCH(base+"/{id}", auth(h.Update))
		api.DELETE(base+"/{id}", auth(h.Delete))
	}

	return r
}
