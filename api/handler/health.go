package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/agroflow/api/transport"
	"github.com/fastygo/agroflow/internal/infrastructure/monitor"
	"github.com/fastygo/agroflow/pkg/httpcontext"
	"github.com/fastygo/agroflow/usecase/farm"
)

// StatusReporter exposes the last connectivity observation.
type StatusReporter interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusReporter
	store   *farm.Store
}

func NewHealthHandler(mon StatusReporter, store *farm.Store, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		store:       store,
	}
}

// Check reports 200 while the local store is readable. Being offline is a
// normal operating state and does not degrade health.
//
// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"remote": map[string]interface{}{
			"online":     status.Online,
			"forced":     status.Forced,
			"last_check": status.LastCheck,
			"last_error": status.LastError,
		},
		"outbox": map[string]interface{}{
			"ok":   status.OutboxOK,
			"size": status.OutboxSize,
		},
	}
	if h.store != nil {
		payload["collections"] = h.store.Counts()
	}

	if status.OutboxOK {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "local store unhealthy", payload))
}
