// Package httpserver serves the Telegram webhook, Prometheus metrics and a
// health check on one listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"OplatymBot/internal/config"
	"OplatymBot/internal/utils/logger/sl"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	echo *echo.Echo
	addr string
	log  *slog.Logger
}

// New builds the router. webhook may be nil when the bot polls.
func New(logger *slog.Logger, cfg config.HttpServerConfig, webhook http.Handler, registry *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = cfg.Timeout

	s := &Server{
		echo: e,
		addr: net.JoinHostPort(cfg.Address, cfg.Port),
		log:  logger.With(slog.String("component", "httpserver")),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			}
			if v.Error != nil {
				s.log.Error("http request failed", append(attrs, sl.Err(v.Error))...)
				return nil
			}
			s.log.Debug("http request", attrs...)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	if webhook != nil {
		e.POST("/webhook", echo.WrapHandler(webhook))
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until Shutdown.
func (s *Server) Start() error {
	op := "httpserver.Start()"
	s.log.Info("http server listening", slog.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
