package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "clinicore/internal/errors"
	"clinicore/internal/report"
)

// TemplatesHandler serves the read-only template catalog.
type TemplatesHandler struct {
	registry   report.TemplateRegistry
	errHandler *apierrors.ErrorHandler
	logger     *slog.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(registry report.TemplateRegistry, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *TemplatesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplatesHandler{
		registry:   registry,
		errHandler: errHandler,
		logger:     logger.With(slog.String("handler", "templates")),
	}
}

// Routes returns a chi router for template endpoints.
func (h *TemplatesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListTemplates)
	r.Get("/{id}", h.GetTemplate)
	return r
}

// ListTemplates handles GET /api/templates.
func (h *TemplatesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.registry.ListActive(r.Context())
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// GetTemplate handles GET /api/templates/{id}.
func (h *TemplatesHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.registry.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, tpl)
}
