package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ashureev/psicoflow/internal/api"
	"github.com/ashureev/psicoflow/internal/identity"
	"github.com/ashureev/psicoflow/internal/middleware"
	"github.com/ashureev/psicoflow/internal/realtime"
	"github.com/ashureev/psicoflow/web"
)

// NewServeCommand creates the serve subcommand.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API, WebSocket endpoint and web client",
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "version", Version)

	conns := realtime.NewConnManager()
	a.startSweeper(ctx, func(userID string) {
		conns.CloseUser(userID)
		slog.Info("session_evicted", "event", "session_evicted", "user_id", userID)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a, conns),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Finalization waits on the model and the backend.
		WriteTimeout: 2*cfg.LLM.Timeout + cfg.Backend.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	stop()

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}

func newRouter(a *app, conns *realtime.ConnManager) http.Handler {
	cfg := a.cfg
	origins := []string{"*"}
	if cfg.FrontendURL != "" && !cfg.IsDevelopment() {
		origins = []string{cfg.FrontendURL}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins))

	api.NewHealthHandler(a.sessions, a.journal, a.gateway).RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		api.NewChatHandler(a.engine, a.logger).RegisterRoutes(r)
		r.Get("/ws/chat", realtime.NewWebSocketHandler(a.engine, conns, cfg.FrontendURL, cfg.IsDevelopment()).ServeHTTP)
	})

	r.Handle("/*", web.ClientHandler())
	return r
}
