package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/imsauth/internal/config"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
)

// Run arma la app y sirve HTTP hasta SIGINT/SIGTERM o hasta que ctx se cancele.
// El shutdown espera a los requests en curso hasta server.shutdown_timeout.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg, Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.L().Warn("cleanup error", logger.Err(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, app.Handler, cfg.ShutdownTimeout())
}

// Serve atiende en ln hasta que ctx se cancele y luego apaga ordenadamente.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, shutdownTimeout time.Duration) error {
	log := logger.L().With(logger.Layer("server"), logger.String("addr", ln.Addr().String()))

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return logger.ToContext(context.Background(), logger.L()) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
