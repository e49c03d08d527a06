package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"clinicore/internal/clinical"
	"clinicore/internal/config"
	"clinicore/internal/dataset"
	apierrors "clinicore/internal/errors"
	"clinicore/internal/export"
	"clinicore/internal/infrastructure"
	"clinicore/internal/render"
	"clinicore/internal/report"
	"clinicore/internal/shared/clock"
	"clinicore/internal/storage"
	handlers "clinicore/internal/transport/http"
	ws "clinicore/internal/websocket"
)

const (
	AppName = "CliniCore Report Engine"
	Version = "1.0.0"
)

// Application wires the report engine together: configuration, observability,
// the SQLite report store, the artifact blob store, the generation queue and
// the HTTP surface.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router chi.Router
	Server *http.Server

	OTelProviders *infrastructure.OTelProviders
	Store         *report.SQLiteStore
	Blobs         *storage.LocalStore
	Hub           *ws.Hub
	Manager       *report.Manager
	Queue         *report.Queue
}

// New builds the application from a loaded configuration. Callers own
// config.Load; tests pass a config pointing at temp directories.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	store, err := report.OpenSQLite(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	blobs, err := storage.NewLocalStore(cfg.Storage.ArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	clk := clock.System()

	// Clinical data sources. The sample in-memory source stands in for the
	// record system until its readers are wired to the production database.
	records := clinical.SampleData()
	ledger := clinical.SampleLedger()

	fetchers := dataset.DefaultRegistry(records, records, records, records, ledger, clk, logger)
	renderers := render.DefaultRegistry(clk)
	templates := report.NewStaticTemplates(report.SeedTemplates()...)

	metrics, err := report.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create report metrics: %w", err)
	}

	hub := ws.NewHub(logger)

	manager := report.NewManager(report.ManagerOptions{
		Store:           store,
		Blobs:           blobs,
		Fetchers:        fetchers,
		Renderers:       renderers,
		Templates:       templates,
		Clock:           clk,
		Events:          hub,
		Metrics:         metrics,
		Logger:          logger,
		GenerateTimeout: cfg.Reports.GenerateTimeout,
	})

	queue := report.NewQueue(cfg.Reports.Workers, manager, logger)

	exportService := export.NewService(fetchers, renderers, templates, clk, logger)

	errHandler := apierrors.NewErrorHandler(logger, cfg.Logging.Development)

	healthChecks := map[string]handlers.CheckFunc{
		"database": func(ctx context.Context) error {
			_, err := store.List(ctx, report.ListFilter{Limit: 1})
			return err
		},
		"artifacts": func(ctx context.Context) error {
			_, err := blobs.Exists(ctx, "healthz")
			return err
		},
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Reports:   handlers.NewReportsHandler(queue, manager, errHandler, logger),
		Templates: handlers.NewTemplatesHandler(templates, errHandler, logger),
		Export:    handlers.NewExportHandler(exportService, errHandler, logger),
		Health:    handlers.NewHealthHandler(Version, healthChecks, logger),

		ErrHandler: errHandler,

		Hub:      hub,
		Upgrader: newUpgrader(cfg, logger),

		Providers: otelProviders,
		Logger:    logger,

		AllowedOrigins:   cfg.Security.AllowedOrigins,
		EnableCORS:       cfg.Security.EnableCORS,
		RateLimitEnabled: cfg.Security.RateLimit.Enabled,
		RateLimitRPS:     cfg.Security.RateLimit.RPS,
		RateLimitBurst:   cfg.Security.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return &Application{
		Config:        cfg,
		Logger:        logger,
		Router:        router,
		Server:        server,
		OTelProviders: otelProviders,
		Store:         store,
		Blobs:         blobs,
		Hub:           hub,
		Manager:       manager,
		Queue:         queue,
	}, nil
}

// newUpgrader builds the WebSocket upgrader from configuration. Origins are
// checked against the CORS allowlist; requests without an Origin header are
// treated as same-origin clients.
func newUpgrader(cfg *config.Config, logger *slog.Logger) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range cfg.Security.AllowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.Error("websocket upgrade failed",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}
}

// Run starts the server, the event hub, the generation workers and the expiry
// sweeper, then blocks until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	a.Hub.Start()
	a.Queue.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "http server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.sweepLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// sweepLoop expires old completed reports on a fixed interval. A sweep runs
// once at startup so restarts do not delay expiry by a full interval.
func (a *Application) sweepLoop(ctx context.Context) {
	interval := a.Config.Reports.SweepInterval
	if interval <= 0 {
		return
	}

	a.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *Application) sweep(ctx context.Context) {
	n, err := a.Manager.SweepExpired(ctx)
	if err != nil {
		a.Logger.ErrorContext(ctx, "expiry sweep failed",
			slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		a.Logger.InfoContext(ctx, "expiry sweep completed",
			slog.Int("expired", n))
	}
}

// shutdown drains the server and the workers within the configured timeout.
func (a *Application) shutdown() error {
	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.Queue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.Error("queue did not drain in time", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	a.Hub.Stop()

	if err := a.Store.Close(); err != nil {
		a.Logger.Error("closing report store", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("shutting down OpenTelemetry", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.Logger.Info("shutdown complete")
	return firstErr
}
