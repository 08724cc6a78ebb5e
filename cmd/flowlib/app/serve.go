package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/export"
	"github.com/rpattn/flowlib/internal/ingestion"
	"github.com/rpattn/flowlib/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

func (a *App) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP import server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *App) serve(ctx context.Context) error {
	be, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer be.close()

	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.routes(be),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting import server",
			zap.String("addr", server.Addr),
			zap.String("driver", a.cfg.Database.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("server exited")
	return nil
}

func (a *App) routes(be *backend) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.Server.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
	})

	importHandler := ingestion.NewHTTPHandler(be.service,
		ingestion.WithMaxUploadBytes(a.cfg.Server.MaxUploadBytes),
		ingestion.WithAdminToken(a.cfg.Server.AdminToken),
		ingestion.WithHandlerLogger(a.logger),
	)

	var apiHandler http.Handler = importHandler
	exportHandler := export.NewHTTPHandler(be.exporter)
	if a.cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(a.cfg.Server.RateLimit, a.cfg.Server.RateBurst, 10*time.Minute)
		apiHandler = limiter.Middleware(apiHandler)
		exportHandler = limiter.Middleware(exportHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /api/catalog/{kind}/export", exportHandler)
	mux.HandleFunc("GET /healthz", healthHandler(be.ping))

	return corsHandler.Handler(middleware.LoggingMiddleware(a.logger)(mux))
}

func healthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
