package httpcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestAttach_KeepsIncomingRequestID(t *testing.T) {
	var req fasthttp.RequestCtx
	req.Request.Header.Set(HeaderRequestID, "req-42")
	req.Request.Header.Set(HeaderUserID, "device-1")

	ctx, cancel := NewAdapter(context.Background(), time.Second).Attach(&req)
	defer cancel()

	assert.Equal(t, "req-42", string(req.Response.Header.Peek(HeaderRequestID)))
	assert.Equal(t, "device-1", UserID(ctx))
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}

func TestAttach_GeneratesRequestID(t *testing.T) {
	var req fasthttp.RequestCtx

	_, cancel := NewAdapter(nil, 0).Attach(&req)
	defer cancel()

	assert.NotEmpty(t, string(req.Response.Header.Peek(HeaderRequestID)))
}

func TestAttach_BaseCancellationPropagates(t *testing.T) {
	base, stop := context.WithCancel(context.Background())
	var req fasthttp.RequestCtx

	ctx, cancel := NewAdapter(base, time.Minute).Attach(&req)
	defer cancel()
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		require.Fail(t, "request context outlived the base context")
	}
}
