package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	apierrors "clinicore/internal/errors"
	"clinicore/internal/infrastructure"
	customMiddleware "clinicore/internal/middleware"
	ws "clinicore/internal/websocket"
)

// maxBodyBytes caps JSON request bodies. Report requests are small; anything
// larger is noise.
const maxBodyBytes = 1 << 20

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Reports   *ReportsHandler
	Templates *TemplatesHandler
	Export    *ExportHandler
	Health    *HealthHandler

	ErrHandler *apierrors.ErrorHandler

	Hub      *ws.Hub
	Upgrader websocket.Upgrader

	Providers *infrastructure.OTelProviders
	Logger    *slog.Logger

	AllowedOrigins   []string
	EnableCORS       bool
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
}

// NewRouter builds the chi router with the full middleware chain.
// Ordering: RequestID -> RealIP -> OTel -> Logger -> Recoverer ->
// SecurityHeaders -> CORS -> rate limit, then per-group concerns.
func NewRouter(d RouterDeps) chi.Router {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Minimal middleware only; anything that wraps the ResponseWriter
	// breaks the WebSocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	if d.Hub != nil {
		r.With(customMiddleware.WebSocketTraceMiddleware(logger)).
			Get("/ws", ws.ServeWS(d.Hub, d.Upgrader, logger))
	}

	r.Group(func(r chi.Router) {
		if d.Providers != nil {
			otelMiddleware, err := customMiddleware.NewOTelMiddleware(d.Providers)
			if err != nil {
				logger.Error("failed to create OpenTelemetry middleware",
					slog.String("error", err.Error()))
			} else {
				r.Use(otelMiddleware.Handler)
			}
		}

		r.Use(customMiddleware.StructuredLogger(logger))
		if d.ErrHandler != nil {
			r.Use(apierrors.RecoveryMiddleware(d.ErrHandler))
			r.NotFound(d.ErrHandler.NotFound)
			r.MethodNotAllowed(d.ErrHandler.MethodNotAllowed)
		} else {
			r.Use(customMiddleware.Recoverer(logger))
		}
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))

		if d.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins:   d.AllowedOrigins,
				ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
				AllowCredentials: true,
				Logger:           logger,
			}))
		}

		if d.RateLimitEnabled {
			r.Use(customMiddleware.NewRateLimiter(
				d.RateLimitRPS,
				d.RateLimitBurst,
				logger,
			).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			if d.Health != nil {
				r.Mount("/health", d.Health.Routes())
			}

			// Everything below needs a caller identity and a JSON body
			// discipline.
			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.OwnerAuth(logger))
				r.Use(customMiddleware.RequireJSON)
				r.Use(customMiddleware.MaxBodySize(maxBodyBytes))

				r.Mount("/reports", d.Reports.Routes())
				r.Mount("/templates", d.Templates.Routes())
				if d.Export != nil {
					r.Mount("/export", d.Export.Routes())
				}
			})
		})
	})

	// Prometheus scrape endpoint stays outside the middleware group.
	if d.Providers != nil && d.Providers.PrometheusHTTP != nil {
		r.Handle("/metrics", d.Providers.PrometheusHTTP)
	}

	return r
}
