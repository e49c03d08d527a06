package http

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "clinicore/internal/errors"
	"clinicore/internal/middleware"
	"clinicore/internal/report"
)

// ReportsHandler handles the report lifecycle endpoints.
type ReportsHandler struct {
	queue      *report.Queue
	manager    *report.Manager
	errHandler *apierrors.ErrorHandler
	logger     *slog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(queue *report.Queue, manager *report.Manager, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportsHandler {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if manager == nil {
		panic("manager cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ReportsHandler{
		queue:      queue,
		manager:    manager,
		errHandler: errHandler,
		logger:     logger.With(slog.String("handler", "reports")),
	}
}

// Routes returns a chi router for report endpoints.
func (h *ReportsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateReport)
	r.Get("/", h.ListReports)
	r.Get("/stats", h.Stats)
	r.Get("/{id}", h.GetReport)
	r.Get("/{id}/download", h.DownloadReport)
	r.Delete("/{id}", h.DeleteReport)

	return r
}

// CreateReport handles POST /api/reports. The report row is written
// synchronously; generation happens on the worker pool.
func (h *ReportsHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("reports-handler")

	ctx, span := tracer.Start(ctx, "reports_handler.create",
		trace.WithAttributes(
			attribute.String("http.route", "/api/reports"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	var req report.CreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "malformed create request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		apierrors.MapReportError(
			report.NewValidationError("", "request body must be valid JSON"), r.URL.Path, reqID).Render(w, r)
		return
	}

	ownerID := middleware.OwnerID(ctx)
	created, err := h.queue.Submit(ctx, ownerID, req)
	if err != nil {
		span.RecordError(err)
		h.errHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}

	span.SetAttributes(
		attribute.String("report.id", created.ID),
		attribute.String("report.category", created.Category),
		attribute.String("report.format", created.Format),
	)

	h.logger.InfoContext(ctx, "report submitted",
		slog.String("report_id", created.ID),
		slog.String("category", created.Category),
		slog.String("format", created.Format))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, created)
}

// ListReports handles GET /api/reports with optional status, limit and
// offset query parameters.
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	status := report.Status(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	reports, err := h.manager.List(ctx, ownerID, status, limit, offset)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
		"limit":   limit,
		"offset":  offset,
	})
}

// GetReport handles GET /api/reports/{id}.
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	ownerID := middleware.OwnerID(ctx)

	rep, err := h.manager.Get(ctx, ownerID, id)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, rep)
}

// DownloadReport handles GET /api/reports/{id}/download, streaming the
// rendered artifact.
func (h *ReportsHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	ownerID := middleware.OwnerID(ctx)

	dl, err := h.manager.OpenDownload(ctx, ownerID, id)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}

	if _, err := io.Copy(w, dl.Body); err != nil {
		h.logger.ErrorContext(ctx, "download stream interrupted",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
	}
}

// DeleteReport handles DELETE /api/reports/{id}.
func (h *ReportsHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	ownerID := middleware.OwnerID(ctx)

	if err := h.manager.Delete(ctx, ownerID, id); err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

// Stats handles GET /api/reports/stats.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.OwnerID(ctx)

	stats, err := h.manager.Stats(ctx, ownerID)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, stats)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
