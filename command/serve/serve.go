package serve

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/aggregate"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/catalog"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/config"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/steampipe"
)

// Run starts the inventory API.
//
// Usage:
//
//	console serve [-addr :8080] [-engine steampipe] [-timeout 60s]
//
// Endpoints:
//
//	GET /                      -> {"status":"ok"}
//	GET /healthz/engine        -> engine version or 503
//	GET /metrics               -> Prometheus exposition
//	GET /:domain/:provider     -> unified rows for storage|compute|billing across aws|azure|gcp|all
//
// Flags override the matching keys of the YAML file named by CONFIG_PATH.
func Run(args []string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.Addr, "http listen address (host:port)")
	binary := fs.String("engine", cfg.Engine.Binary, "steampipe executable")
	timeout := fs.Duration("timeout", cfg.Engine.Timeout, "per-query engine timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := catalog.New(cfg.Queries)
	if err != nil {
		return err
	}
	exec := steampipe.NewExecutor(steampipe.Options{
		Binary:           *binary,
		Timeout:          *timeout,
		SearchPathPrefix: cfg.Engine.SearchPathPrefix,
		InstallDir:       cfg.Engine.InstallDir,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	agg := aggregate.New(cat, exec, aggregate.NewMetrics(reg))

	e := NewServer(agg, exec, reg, cfg.Server.CORSOrigins)
	slog.Info("serve.start", "addr", *addr, "engine", *binary, "timeout", *timeout)
	return e.Start(*addr)
}

// Versioner reports the engine version; used by the health probe.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// NewServer wires routes and middleware onto a fresh echo instance.
func NewServer(agg *aggregate.Aggregator, engine Versioner, gatherer prometheus.Gatherer, origins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		ExposeHeaders: []string{FailuresHeader, echo.HeaderXRequestID},
	}))
	e.Use(requestLogger)

	h := &handler{agg: agg, engine: engine}
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
	})
	e.GET("/healthz/engine", h.engineHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/:domain/:provider", h.inventory)
	return e
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		slog.Info("http.request",
			"id", c.Response().Header().Get(echo.HeaderXRequestID),
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start))
		return nil
	}
}
