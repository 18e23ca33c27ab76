package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/agroflow/api/transport"
	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/pkg/httpcontext"
	"github.com/fastygo/agroflow/usecase/farm"
)

// CollectionRoutes is the set of endpoints every farm collection exposes.
type CollectionRoutes interface {
	List(ctx *fasthttp.RequestCtx)
	Get(ctx *fasthttp.RequestCtx)
	Create(ctx *fasthttp.RequestCtx)
	Update(ctx *fasthttp.RequestCtx)
	Delete(ctx *fasthttp.RequestCtx)
	DeleteAll(ctx *fasthttp.RequestCtx)
}

// CollectionHandler serves one collection of the domain store.
type CollectionHandler[T domain.Record[T]] struct {
	baseHandler
	coll *farm.Collection[T]
}

func NewCollectionHandler[T domain.Record[T]](coll *farm.Collection[T], adapter *httpcontext.Adapter, logger *zap.Logger) *CollectionHandler[T] {
	return &CollectionHandler[T]{
		baseHandler: newBaseHandler(adapter, logger),
		coll:        coll,
	}
}

// CollectionHandlers builds the handlers for every collection, keyed by name.
func CollectionHandlers(store *farm.Store, adapter *httpcontext.Adapter, logger *zap.Logger) map[domain.Collection]CollectionRoutes {
	return map[domain.Collection]CollectionRoutes{
		domain.CollectionTransactions: NewCollectionHandler(store.Transactions, adapter, logger),
		domain.CollectionCrops:        NewCollectionHandler(store.Crops, adapter, logger),
		domain.CollectionProperties:   NewCollectionHandler(store.Properties, adapter, logger),
	}
}

// @Router /api/v1/{collection} [get]
func (h *CollectionHandler[T]) List(ctx *fasthttp.RequestCtx) {
	items := h.coll.All()
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(items, transport.ListMeta{Count: len(items)}))
}

// @Router /api/v1/{collection}/{id} [get]
func (h *CollectionHandler[T]) Get(ctx *fasthttp.RequestCtx) {
	item, ok := h.coll.Get(pathParam(ctx, "id"))
	if !ok {
		h.respondError(ctx, domain.ErrRecordNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Router /api/v1/{collection} [post]
func (h *CollectionHandler[T]) Create(ctx *fasthttp.RequestCtx) {
	var record T
	if err := decodeBody(ctx, &record); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.coll.Add(stdCtx, record)
	if err != nil {
		h.requestLogger(stdCtx).Error("add failed", zap.String("collection", h.coll.Name().String()), zap.Error(err))
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Router /api/v1/{collection}/{id} [patch]
func (h *CollectionHandler[T]) Update(ctx *fasthttp.RequestCtx) {
	var patch domain.Patch
	if err := decodeBody(ctx, &patch); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, ok, err := h.coll.Update(stdCtx, pathParam(ctx, "id"), patch)
	if !ok {
		h.respondError(ctx, domain.ErrRecordNotFound)
		return
	}
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Router /api/v1/{collection}/{id} [delete]
func (h *CollectionHandler[T]) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ok, err := h.coll.Delete(stdCtx, pathParam(ctx, "id"))
	if !ok {
		h.respondError(ctx, domain.ErrRecordNotFound)
		return
	}
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Router /api/v1/{collection} [delete]
func (h *CollectionHandler[T]) DeleteAll(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	n, err := h.coll.DeleteAll(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.requestLogger(stdCtx).Info("collection cleared",
		zap.String("collection", h.coll.Name().String()),
		zap.Int("deleted", n))
	h.respondSuccess(ctx, http.StatusOK, transport.DeleteAllResult{Deleted: n})
}
