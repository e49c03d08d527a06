package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "clinicore/internal/errors"
	"clinicore/internal/export"
	"clinicore/internal/middleware"
	"clinicore/internal/report"
)

// ExportHandler serves the synchronous export path: the rendered bytes come
// back in the response, nothing is persisted.
type ExportHandler struct {
	service    *export.Service
	errHandler *apierrors.ErrorHandler
	logger     *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(service *export.Service, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		service:    service,
		errHandler: errHandler,
		logger:     logger.With(slog.String("handler", "export")),
	}
}

// Routes returns a chi router for export endpoints.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Export)
	return r
}

// Export handles POST /api/export.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req export.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.logger.WarnContext(ctx, "malformed export request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		apierrors.MapReportError(
			report.NewValidationError("", "request body must be valid JSON"), r.URL.Path, reqID).Render(w, r)
		return
	}

	result, err := h.service.Export(ctx, req)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "export served",
		slog.String("category", req.Category),
		slog.String("format", req.Format),
		slog.Int("bytes", len(result.Data)))

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}
