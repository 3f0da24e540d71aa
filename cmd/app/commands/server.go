package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/missionhub/internal/app"
)

// RunServer starts the hub: the mesh listener, the outbound queue, the admin API and the
// metrics server. It blocks until SIGINT/SIGTERM or until one component fails, then
// stops accepting commands, flushes the outbound queue and shuts the servers down.
func RunServer(ctx context.Context, container *app.Container, version string) error {
	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.String("identity", container.Config().HubIdentity),
		slog.String("db_driver", container.Config().DBDriver),
	)

	h, err := container.Hub()
	if err != nil {
		return fmt.Errorf("failed to initialize hub: %w", err)
	}

	transport, err := container.Transport()
	if err != nil {
		return err
	}

	// The queue must exist before the HTTP server so /v1/outbound/stats is registered.
	queue, err := container.OutboundQueue()
	if err != nil {
		return fmt.Errorf("failed to initialize outbound queue: %w", err)
	}

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start outbound queue: %w", err)
	}

	if err := h.Announce(ctx, transport); err != nil {
		logger.Warn("failed to announce hub", slog.Any("error", err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := transport.Listen(gctx, container.ServeInbound(h)); err != nil {
			return fmt.Errorf("mesh listener error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), container.ShutdownTimeout())
		defer shutdownCancel()

		var shutdownErrors []error

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}

		if !queue.WaitForFlush(container.Config().OutboundStopTimeout) {
			logger.Warn("outbound queue not drained before stop", slog.Any("stats", queue.Stats()))
		}
		if err := queue.Stop(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("outbound queue stop: %w", err))
		}

		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}
