package router

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/agroflow/api/handler"
	"github.com/fastygo/agroflow/internal/infrastructure/localstore"
	"github.com/fastygo/agroflow/internal/infrastructure/metrics"
	"github.com/fastygo/agroflow/internal/infrastructure/monitor"
	"github.com/fastygo/agroflow/internal/middleware"
	"github.com/fastygo/agroflow/internal/services"
	"github.com/fastygo/agroflow/pkg/httpcontext"
	"github.com/fastygo/agroflow/repository/memory"
	"github.com/fastygo/agroflow/usecase/farm"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Meta   json.RawMessage `json:"meta"`
}

type app struct {
	handler fasthttp.RequestHandler
	remote  *memory.RemoteStore
	monitor *monitor.Monitor
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()

	local, err := localstore.Open(localstore.DriverBolt, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	remote := memory.NewRemoteStore()
	mon := monitor.New(remote, local, time.Second, nil)
	mon.SetOnline(false)
	m := metrics.New()
	engine := services.NewSyncEngine(local, remote, mon, m, nil, services.EngineConfig{})

	store, err := farm.Open(ctx, farm.Deps{Local: local, Syncer: engine, Metrics: m}, farm.Options{
		Clock: func() time.Time { return time.Date(2024, time.June, 7, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	adapter := httpcontext.NewAdapter(ctx, time.Second)
	r := New(Handlers{
		Health:      apiHandler.NewHealthHandler(mon, store, adapter, nil),
		Sync:        apiHandler.NewSyncHandler(engine, local, mon, adapter, nil),
		Collections: apiHandler.CollectionHandlers(store, adapter, nil),
		Metrics:     m.Registry,
	}, middleware.JWTAuth("", nil))

	return &app{handler: r.Handler, remote: remote, monitor: mon}
}

func (a *app) do(t *testing.T, method, uri, body string) (int, envelope) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	a.handler(&ctx)

	var env envelope
	if raw := ctx.Response.Body(); len(raw) > 0 && string(ctx.Response.Header.ContentType()) == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return ctx.Response.StatusCode(), env
}

func TestHealth(t *testing.T) {
	a := newApp(t)

	status, env := a.do(t, fasthttp.MethodGet, "/health", "")

	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, "success", env.Status)
	assert.Contains(t, string(env.Data), `"online":false`)
}

func TestCollectionCRUD(t *testing.T) {
	a := newApp(t)

	status, env := a.do(t, fasthttp.MethodGet, "/api/v1/properties", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"count":2}`, string(env.Meta))

	status, env = a.do(t, fasthttp.MethodPost, "/api/v1/transactions",
		`{"type":"expense","category":"Sementes","amount":"950.25","date":"2024-01-15"}`)
	require.Equal(t, fasthttp.StatusCreated, status)
	var created struct {
		ID   string `json:"id"`
		Date string `json:"date"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "15-01-2024", created.Date)

	status, _ = a.do(t, fasthttp.MethodGet, "/api/v1/transactions/"+created.ID, "")
	assert.Equal(t, fasthttp.StatusOK, status)

	status, env = a.do(t, fasthttp.MethodPatch, "/api/v1/transactions/"+created.ID, `{"date":""}`)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(env.Data), `"date":"07-06-2024"`)

	status, _ = a.do(t, fasthttp.MethodDelete, "/api/v1/transactions/"+created.ID, "")
	assert.Equal(t, fasthttp.StatusNoContent, status)

	status, env = a.do(t, fasthttp.MethodGet, "/api/v1/transactions/"+created.ID, "")
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestCollectionErrors(t *testing.T) {
	a := newApp(t)

	status, env := a.do(t, fasthttp.MethodPost, "/api/v1/crops", `{"name":"Trigo","colour":"gold"}`)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "INVALID", env.Code)

	status, _ = a.do(t, fasthttp.MethodPost, "/api/v1/crops", "")
	assert.Equal(t, fasthttp.StatusBadRequest, status)

	status, env = a.do(t, fasthttp.MethodPatch, "/api/v1/crops/missing", `{"name":"x"}`)
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	status, _ = a.do(t, fasthttp.MethodGet, "/api/v1/livestock", "")
	assert.Equal(t, fasthttp.StatusNotFound, status)
}

func TestSyncFollowsConnectivity(t *testing.T) {
	a := newApp(t)

	status, _ := a.do(t, fasthttp.MethodPost, "/api/v1/crops", `{"name":"Trigo","area":"5"}`)
	require.Equal(t, fasthttp.StatusCreated, status)

	status, env := a.do(t, fasthttp.MethodPost, "/api/v1/sync", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"offline":true,"synced":0,"remaining":0}`, string(env.Data))
	assert.Empty(t, a.remote.Calls())

	status, env = a.do(t, fasthttp.MethodGet, "/api/v1/outbox", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"count":1}`, string(env.Meta))

	status, env = a.do(t, fasthttp.MethodPost, "/api/v1/connectivity", `{"online":true}`)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(env.Data), `"forced":true`)

	status, env = a.do(t, fasthttp.MethodPost, "/api/v1/sync", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"offline":false,"synced":1,"remaining":0}`, string(env.Data))
	assert.Equal(t, 1, a.remote.Len("crops"))

	status, env = a.do(t, fasthttp.MethodGet, "/api/v1/outbox", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"count":0}`, string(env.Meta))
}

func TestDeleteAllDrainsWhenOnline(t *testing.T) {
	a := newApp(t)
	a.monitor.SetOnline(true)

	status, env := a.do(t, fasthttp.MethodDelete, "/api/v1/transactions", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"deleted":4}`, string(env.Data))

	deletes := 0
	for _, c := range a.remote.Calls() {
		if c.Op == "delete" && c.Table == "transactions" {
			deletes++
		}
	}
	assert.Equal(t, 4, deletes)

	_, env = a.do(t, fasthttp.MethodGet, "/api/v1/outbox", "")
	assert.JSONEq(t, `{"count":0}`, string(env.Meta))
}

func TestMetricsEndpoint(t *testing.T) {
	a := newApp(t)
	a.do(t, fasthttp.MethodPost, "/api/v1/sync", "")

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/metrics")
	a.handler(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `agroflow_sync_passes_total{outcome="offline"} 1`)
}
