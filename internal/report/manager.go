package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clinicore/internal/dataset"
	"clinicore/internal/render"
	"clinicore/internal/shared/clock"
	"clinicore/internal/storage"
)

// ManagerOptions bundles the manager's collaborators.
type ManagerOptions struct {
	Store     Store
	Blobs     storage.BlobStore
	Fetchers  *dataset.Registry
	Renderers *render.Registry
	Templates TemplateRegistry
	Clock     clock.Clock
	Events    EventSink
	Metrics   *Metrics
	Logger    *slog.Logger

	// GenerateTimeout bounds one generation attempt. Zero means the
	// default of 2 minutes.
	GenerateTimeout time.Duration
}

// Manager drives the report lifecycle: validation, queued generation,
// download gating, deletion and the expiry sweep.
type Manager struct {
	store     Store
	blobs     storage.BlobStore
	fetchers  *dataset.Registry
	renderers *render.Registry
	templates TemplateRegistry
	clock     clock.Clock
	events    EventSink
	metrics   *Metrics
	validator *Validator
	logger    *slog.Logger
	tracer    trace.Tracer
	timeout   time.Duration
}

// NewManager creates a lifecycle manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Events == nil {
		opts.Events = NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 2 * time.Minute
	}
	return &Manager{
		store:     opts.Store,
		blobs:     opts.Blobs,
		fetchers:  opts.Fetchers,
		renderers: opts.Renderers,
		templates: opts.Templates,
		clock:     opts.Clock,
		events:    opts.Events,
		metrics:   opts.Metrics,
		validator: NewValidator(opts.Renderers.Supported),
		logger:    opts.Logger.With(slog.String("component", "report.manager")),
		tracer:    otel.Tracer("clinicore/report"),
		timeout:   opts.GenerateTimeout,
	}
}

// Create validates the request, persists a pending record and returns it.
// Generation is the queue's job; the caller polls or listens for the
// terminal state.
func (m *Manager) Create(ctx context.Context, ownerID string, req CreateRequest) (*Report, error) {
	var templateID *string
	if req.TemplateID != "" {
		tpl, err := m.templates.Resolve(ctx, req.TemplateID)
		if err != nil {
			if errors.Is(err, ErrTemplateNotFound) {
				return nil, NewValidationError("template_id", fmt.Sprintf("unknown template %q", req.TemplateID))
			}
			return nil, err
		}
		if req.Category == "" {
			req.Category = tpl.Category
		}
		if req.Type == "" {
			req.Type = tpl.Type
		}
		if req.Title == "" {
			req.Title = tpl.Name
		}
		req.Filters = req.Filters.Merge(tpl.DefaultFilters)
		templateID = &tpl.ID
	}
	if req.Title == "" {
		req.Title = dataset.DefaultTitle(req.Category)
	}

	if err := m.validator.ValidateCreate(&req); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	r := &Report{
		ID:         uuid.New().String(),
		Title:      req.Title,
		Type:       req.Type,
		Category:   req.Category,
		Format:     req.Format,
		Filters:    req.Filters,
		Status:     StatusPending,
		OwnerID:    ownerID,
		TemplateID: templateID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	m.logger.InfoContext(ctx, "report created",
		slog.String("report_id", r.ID),
		slog.String("category", r.Category),
		slog.String("format", r.Format),
		slog.String("owner_id", ownerID))
	m.events.Publish(Event{
		Type: EventQueued, ReportID: r.ID, OwnerID: ownerID,
		Status: StatusPending, At: now,
	})
	return r, nil
}

// Generate runs one generation attempt for the report id. It is the worker
// entry point and is safe to call more than once per report: the
// compare-and-set finalize lets at most one attempt reach a terminal state.
func (m *Manager) Generate(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	ctx, span := m.tracer.Start(ctx, "report.generate",
		trace.WithAttributes(attribute.String("report.id", id)))
	defer span.End()

	r, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Terminal() || r.Deleted() {
		m.logger.InfoContext(ctx, "skipping generation, report already settled",
			slog.String("report_id", id),
			slog.String("status", string(r.Status)))
		return nil
	}

	if r.Status == StatusPending {
		won, err := m.store.MarkGenerating(ctx, id, m.clock.Now())
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
	}

	span.SetAttributes(
		attribute.String("report.category", r.Category),
		attribute.String("report.format", r.Format),
	)

	if genErr := m.generate(ctx, r); genErr != nil {
		span.RecordError(genErr)
		span.SetStatus(codes.Error, genErr.Error())
		m.finalizeFailed(ctx, r, genErr)
		return nil
	}
	return nil
}

// generate runs fetch -> render -> store -> finalize. Every failure is
// wrapped with the stage that produced it.
func (m *Manager) generate(ctx context.Context, r *Report) error {
	ds, err := m.fetchers.Fetch(ctx, r.Category, r.Filters)
	if err != nil {
		return newGenerationError("fetch", err)
	}
	if err := ctx.Err(); err != nil {
		return newGenerationError("timeout", err)
	}

	renderer, err := m.renderers.Lookup(r.Format)
	if err != nil {
		// Create validates formats, so this means the registry changed
		// underneath a queued report.
		return newGenerationError("render", err)
	}
	artifact, err := renderer.Render(ds, r.Title, m.templateFields(ctx, r))
	if err != nil {
		return newGenerationError("render", err)
	}
	if err := ctx.Err(); err != nil {
		return newGenerationError("timeout", err)
	}

	path := ArtifactPath(r.ID, r.CreatedAt, artifact.Extension)
	if err := m.blobs.Put(ctx, path, artifact.Bytes); err != nil {
		return newGenerationError("store", err)
	}

	generated := m.clock.Now()
	expires := generated.Add(ExpiryPeriod)
	won, err := m.store.FinalizeCompleted(ctx, r.ID, path, artifact.Size(), generated, expires)
	if err != nil {
		return newGenerationError("store", err)
	}
	if !won {
		// A concurrent finalize or delete beat us. Artifact paths are
		// deterministic, so a winning completed attempt stored this exact
		// path; deleting it would destroy the winner's artifact. Only
		// remove the blob when the settled row does not reference it.
		rctx := context.WithoutCancel(ctx)
		cur, curErr := m.store.Get(rctx, r.ID)
		if curErr == nil && (cur.ArtifactRef == nil || *cur.ArtifactRef != path) {
			if delErr := m.blobs.Delete(rctx, path); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
				m.logger.WarnContext(ctx, "could not remove superseded artifact",
					slog.String("report_id", r.ID),
					slog.String("path", path),
					slog.String("error", delErr.Error()))
			}
		}
		m.logger.InfoContext(ctx, "finalize lost, report already settled",
			slog.String("report_id", r.ID))
		return nil
	}

	m.metrics.recordCompleted(ctx, r.Category, r.Format, artifact.Size())
	m.logger.InfoContext(ctx, "report completed",
		slog.String("report_id", r.ID),
		slog.String("artifact_ref", path),
		slog.Int64("artifact_size", artifact.Size()))
	m.events.Publish(Event{
		Type: EventCompleted, ReportID: r.ID, OwnerID: r.OwnerID,
		Status: StatusCompleted, At: generated,
	})
	return nil
}

// finalizeFailed converts a generation error into the failed terminal state.
// The cause is logged and kept on the row for operators; the caller of
// Create never sees it.
func (m *Manager) finalizeFailed(ctx context.Context, r *Report, genErr error) {
	m.logger.ErrorContext(ctx, "report generation failed",
		slog.String("report_id", r.ID),
		slog.String("category", r.Category),
		slog.String("format", r.Format),
		slog.String("error", genErr.Error()))

	generated := m.clock.Now()
	won, err := m.store.FinalizeFailed(context.WithoutCancel(ctx), r.ID, genErr.Error(), generated)
	if err != nil {
		m.logger.ErrorContext(ctx, "could not record failure",
			slog.String("report_id", r.ID),
			slog.String("error", err.Error()))
		return
	}
	if !won {
		return
	}
	m.metrics.recordFailed(ctx, r.Category, r.Format)
	m.events.Publish(Event{
		Type: EventFailed, ReportID: r.ID, OwnerID: r.OwnerID,
		Status: StatusFailed, At: generated,
	})
}

// templateFields resolves the column selection suggested by the report's
// template, if any.
func (m *Manager) templateFields(ctx context.Context, r *Report) []string {
	if r.TemplateID == nil {
		return nil
	}
	tpl, err := m.templates.Resolve(ctx, *r.TemplateID)
	if err != nil {
		return nil
	}
	return tpl.Fields
}

// Get returns the report when the caller owns it.
func (m *Manager) Get(ctx context.Context, ownerID, id string) (*Report, error) {
	r, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, ErrAccessDenied
	}
	if r.Deleted() {
		return nil, ErrNotFound
	}
	return r, nil
}

// List returns the caller's reports, newest first.
func (m *Manager) List(ctx context.Context, ownerID string, status Status, limit, offset int) ([]*Report, error) {
	return m.store.List(ctx, ListFilter{OwnerID: ownerID, Status: status, Limit: limit, Offset: offset})
}

// Stats aggregates the caller's reports.
func (m *Manager) Stats(ctx context.Context, ownerID string) (*OwnerStats, error) {
	return m.store.Stats(ctx, ownerID, m.clock.Now())
}

// Download is the artifact ready for streaming.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}

// contentTypes maps stored artifact extensions back to media types.
var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"csv":  "text/csv; charset=utf-8",
	"html": "text/html; charset=utf-8",
}

// OpenDownload checks ownership and downloadability, then opens the stored
// artifact. Non-owners get ErrAccessDenied regardless of state; every other
// refusal is the undifferentiated ErrNotDownloadable.
func (m *Manager) OpenDownload(ctx context.Context, ownerID, id string) (*Download, error) {
	r, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, ErrAccessDenied
	}
	now := m.clock.Now()
	if !r.Downloadable(now) {
		return nil, ErrNotDownloadable
	}

	exists, err := m.blobs.Exists(ctx, *r.ArtifactRef)
	if err != nil || !exists {
		return nil, ErrNotDownloadable
	}
	body, err := m.blobs.Open(ctx, *r.ArtifactRef)
	if err != nil {
		return nil, ErrNotDownloadable
	}

	ext := extensionOf(*r.ArtifactRef)
	var size int64
	if r.ArtifactSize != nil {
		size = *r.ArtifactSize
	}
	return &Download{
		Body:        body,
		ContentType: contentTypes[ext],
		Filename:    DownloadFilename(r.Title, now, ext),
		Size:        size,
	}, nil
}

// Delete soft-deletes the caller's report and removes the stored artifact
// if one exists. A missing blob is not an error.
func (m *Manager) Delete(ctx context.Context, ownerID, id string) error {
	r, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.OwnerID != ownerID {
		return ErrAccessDenied
	}
	if r.Deleted() {
		return nil
	}

	now := m.clock.Now()
	if err := m.store.MarkDeleted(ctx, id, now); err != nil {
		return err
	}
	// A finalize can land between the read above and the soft delete; the
	// row's current artifact reference is the one to reclaim.
	if cur, curErr := m.store.Get(ctx, id); curErr == nil {
		r = cur
	}
	if r.ArtifactRef != nil {
		if err := m.blobs.Delete(ctx, *r.ArtifactRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	m.logger.InfoContext(ctx, "report deleted",
		slog.String("report_id", id),
		slog.String("owner_id", ownerID))
	return nil
}

// SweepExpired removes artifacts of completed reports whose expiry has
// passed. The rows stay; only the blobs and artifact references go.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := m.clock.Now()
	expired, err := m.store.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, r := range expired {
		if r.ArtifactRef != nil {
			if err := m.blobs.Delete(ctx, *r.ArtifactRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
				m.logger.WarnContext(ctx, "could not remove expired artifact",
					slog.String("report_id", r.ID),
					slog.String("error", err.Error()))
				continue
			}
		}
		if err := m.store.ClearArtifact(ctx, r.ID, now); err != nil {
			m.logger.WarnContext(ctx, "could not clear expired artifact reference",
				slog.String("report_id", r.ID),
				slog.String("error", err.Error()))
			continue
		}
		swept++
	}
	if swept > 0 {
		m.logger.InfoContext(ctx, "expiry sweep finished", slog.Int("swept", swept))
	}
	return swept, nil
}

func extensionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
