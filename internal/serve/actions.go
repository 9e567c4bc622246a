package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/content-qa/internal/app"
	"github.com/dtnitsch/content-qa/internal/common"
	"github.com/dtnitsch/content-qa/pkg/engine"
	"github.com/dtnitsch/content-qa/pkg/webhook"
)

const (
	DefaultPort     = "5000"
	shutdownTimeout = 10 * time.Second
)

// Flags are the flags of the serve command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "listen address (default :$PORT or :" + DefaultPort + ")"},
		&cli.BoolFlag{Name: "check-links", Usage: "probe outbound links on every webhook check"},
		&cli.BoolFlag{Name: "check-language", Usage: "compare document and page language"},
	}
}

// ListenAddr picks --addr, then $PORT, then the default port.
func ListenAddr(addr, port string) string {
	if addr = strings.TrimSpace(addr); addr != "" {
		return addr
	}
	if port = strings.TrimSpace(port); port != "" {
		return ":" + port
	}
	return ":" + DefaultPort
}

// NewRouter mounts the webhook routes behind request ids and panic recovery.
func NewRouter(h *webhook.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.RegisterHTTP(r)
	return r
}

// ServeAction runs the BugHerd webhook listener until interrupted.
func ServeAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	a, err := app.New(c.String("config"), logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", 2)
	}
	defer a.Close()

	opts := engine.Options{
		CheckLinks:    c.Bool("check-links"),
		CheckLanguage: c.Bool("check-language"),
	}
	h := webhook.NewHandler(a.Engine, a.Tickets, opts, logger)

	srv := &http.Server{
		Addr:              ListenAddr(c.String("addr"), os.Getenv("PORT")),
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Webhook listener starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			return cli.Exit("", 2)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}

	// Checks already accepted still comment on their tasks.
	h.Wait()
	logger.Info("server stopped")
	return nil
}
