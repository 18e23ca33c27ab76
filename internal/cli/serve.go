package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/agroflow/api/handler"
	"github.com/fastygo/agroflow/internal/middleware"
	"github.com/fastygo/agroflow/internal/router"
	"github.com/fastygo/agroflow/pkg/httpcontext"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(parent context.Context, opts *RootOptions) error {
	cfg, zapLogger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}

	a, err := bootstrap(parent, cfg, zapLogger, stageStore)
	if err != nil {
		return err
	}
	defer a.close()

	appCtx, cancel := a.life.SignalContext(parent)
	defer cancel()

	a.monitor.Start(appCtx)
	a.life.Register("monitor", func(ctx context.Context) error {
		a.monitor.Stop(ctx)
		return nil
	})

	a.engine.Start(appCtx)
	a.life.Register("sync_engine", func(ctx context.Context) error {
		a.engine.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(appCtx, cfg.Context.RequestTimeout)
	handlers := router.Handlers{
		Health:      apiHandler.NewHealthHandler(a.monitor, a.store, ctxAdapter, zapLogger),
		Sync:        apiHandler.NewSyncHandler(a.engine, a.local, a.monitor, ctxAdapter, zapLogger),
		Collections: apiHandler.CollectionHandlers(a.store, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = a.metrics.Registry
	}
	r := router.New(handlers, middleware.JWTAuth(cfg.JWT.Secret, zapLogger))

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		serveErr <- server.ListenAndServe(cfg.Address())
	}()
	a.life.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	select {
	case <-appCtx.Done():
		return nil
	case err := <-serveErr:
		zapLogger.Error("server stopped", zap.Error(err))
		return err
	}
}
