package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/agroflow/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserID     Key = "user_id"

	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
)

// Adapter turns a fasthttp request into a context.Context bounded by the
// request timeout and by the application's base context, so shutdown cancels
// in-flight work.
type Adapter struct {
	base    context.Context
	timeout time.Duration
}

func NewAdapter(base context.Context, timeout time.Duration) *Adapter {
	if base == nil {
		base = context.Background()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{base: base, timeout: timeout}
}

// Attach derives the request context and echoes the request id header.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(a.base, a.timeout)

	reqID := requestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set(HeaderRequestID, reqID)

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if user := string(ctx.Request.Header.Peek(HeaderUserID)); user != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserID, user)
	}
	return stdCtx, cancel
}

// UserID returns the authenticated subject, if any.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(KeyUserID).(string)
	return v
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRequestID))); header != "" {
		return header
	}
	return uuid.NewString()
}
