package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/totegamma/taxonomy-sync/internal/config"
	"github.com/totegamma/taxonomy-sync/internal/domain"
	"github.com/totegamma/taxonomy-sync/internal/infra/cache"
	"github.com/totegamma/taxonomy-sync/internal/infra/providers"
	"github.com/totegamma/taxonomy-sync/internal/present/rest"
	versionmw "github.com/totegamma/taxonomy-sync/internal/present/rest/middleware"
	"github.com/totegamma/taxonomy-sync/internal/service"
	"github.com/totegamma/taxonomy-sync/internal/usecase"
)

const serviceName = "taxonomy-sync"

func setupTraceProvider(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return provider.Shutdown, nil
}

func main() {
	configPath := flag.String("config", "/etc/taxonomy-sync/config.yaml", "path to the config file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("failed to flush traces", slog.String("error", err.Error()))
			}
		}()
	}

	signalService, closeSignal, err := providers.NewSignal(ctx, conf.Server)
	if err != nil {
		slog.Error("failed to connect redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeSignal()

	hub := service.NewHub()
	cacheOpts := cache.Options{
		TTL:             conf.Cache.TTL,
		CleanupInterval: conf.Cache.CleanupInterval,
		Shared:          providers.NewSharedTier(conf.Cache),
		Notifier:        hub,
	}
	if signalService != nil {
		cacheOpts.Notifier = signalService
	}
	queryCache := cache.New(cacheOpts)

	if signalService != nil {
		go func() {
			err := signalService.Subscribe(ctx, func(invalidation domain.Invalidation) {
				queryCache.Drop(invalidation)
				hub.Broadcast(invalidation)
			})
			if err != nil {
				slog.Error("invalidation subscription ended", slog.String("error", err.Error()))
			}
		}()
	}

	audit, err := providers.NewAuditRecorder(conf.Server)
	if err != nil {
		slog.Error("failed to set up audit log", slog.String("error", err.Error()))
		os.Exit(1)
	}

	taxonomyGateway := providers.NewTaxonomyGateway(conf.Taxonomy, serviceName)

	domainConfig := conf.Domain()
	syncUsecase := usecase.NewSyncUsecase(taxonomyGateway, domainConfig)
	handler := rest.NewHandler(
		usecase.NewNodeUsecase(taxonomyGateway, queryCache, audit),
		usecase.NewAssociationUsecase(syncUsecase, taxonomyGateway, queryCache, audit),
		usecase.NewReorderUsecase(taxonomyGateway, queryCache, audit),
		usecase.NewConnectionUsecase(taxonomyGateway, queryCache, audit),
		hub,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(versionmw.NewVersionMiddleware(domainConfig).ScopeRequest)
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	handler.RegisterRoutes(e)

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", slog.String("error", err.Error()))
	}
}
