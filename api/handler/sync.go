package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/agroflow/api/transport"
	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/internal/infrastructure/monitor"
	"github.com/fastygo/agroflow/internal/services"
	"github.com/fastygo/agroflow/pkg/httpcontext"
	"github.com/fastygo/agroflow/usecase"
)

// PassRunner runs one outbox drain pass.
type PassRunner interface {
	Pass(ctx context.Context) (services.PassResult, error)
}

// Connectivity reports and overrides the connection state.
type Connectivity interface {
	GetStatus() monitor.Status
	SetOnline(online bool)
	ClearOverride(ctx context.Context)
}

type SyncHandler struct {
	baseHandler
	engine  PassRunner
	outbox  usecase.Outbox
	monitor Connectivity
}

func NewSyncHandler(engine PassRunner, outbox usecase.Outbox, mon Connectivity, adapter *httpcontext.Adapter, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		baseHandler: newBaseHandler(adapter, logger),
		engine:      engine,
		outbox:      outbox,
		monitor:     mon,
	}
}

// @Summary Run one drain pass now
// @Router /api/v1/sync [post]
func (h *SyncHandler) Sync(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.engine.Pass(stdCtx)
	if err != nil {
		h.requestLogger(stdCtx).Warn("manual sync halted", zap.Error(err))
		status, code := mapError(err)
		h.respondJSON(ctx, status, transport.NewError(code, err.Error(), result))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary List pending outbox entries in drain order
// @Router /api/v1/outbox [get]
func (h *SyncHandler) Outbox(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.outbox.PeekAll(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	out := make([]transport.OutboxEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, outboxView(e))
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(out, transport.ListMeta{Count: len(out)}))
}

// @Summary Force the connectivity state or return it to the probe
// @Router /api/v1/connectivity [post]
func (h *SyncHandler) Connectivity(ctx *fasthttp.RequestCtx) {
	var req transport.ConnectivityRequest
	if err := decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if req.Online == nil {
		h.monitor.ClearOverride(stdCtx)
	} else {
		h.monitor.SetOnline(*req.Online)
	}
	h.requestLogger(stdCtx).Info("connectivity override changed", zap.Boolp("online", req.Online))
	h.respondSuccess(ctx, http.StatusOK, h.monitor.GetStatus())
}

func outboxView(e domain.OutboxEntry) transport.OutboxEntry {
	return transport.OutboxEntry{
		ID:        e.ID,
		Entity:    e.Entity.String(),
		Action:    string(e.Action),
		RecordID:  e.RecordID(),
		Payload:   e.Payload,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}
}
