package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/job"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(c echo.Context) error {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", c.RealIP(), "path", c.Path())
	return c.String(http.StatusOK, "OK")
}

// statusHandler reports the current job.
func (a *App) statusHandler(c echo.Context) error {
	j := a.current.Load()
	if j == nil {
		return c.JSON(http.StatusOK, job.Status{Mode: a.config.Mode, State: job.StatePending})
	}
	return c.JSON(http.StatusOK, j.Status())
}

func (a *App) newHealthcheckServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/health", a.healthHandler)
	e.GET("/status", a.statusHandler)
	return e
}

// startHealthcheckServer runs the health check server in the background.
func (a *App) startHealthcheckServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")

	a.httpServer = a.newHealthcheckServer()
	addr := fmt.Sprintf(":%d", port)

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthcheckServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Health check server shut down gracefully.")
	return nil
}
