package export

import (
	"context"
	"log/slog"

	"clinicore/internal/dataset"
	"clinicore/internal/render"
	"clinicore/internal/report"
	"clinicore/internal/shared/clock"
)

// Request is a one-shot export: same category/format/filter surface as a
// durable report, but nothing is persisted.
type Request struct {
	Category   string          `json:"category" validate:"required"`
	Format     string          `json:"format" validate:"required"`
	Filters    dataset.Filters `json:"filters"`
	TemplateID string          `json:"template_id,omitempty"`
}

// Result carries the rendered bytes straight back to the caller.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service renders exports synchronously through the same fetcher and
// renderer registries the durable report path uses.
type Service struct {
	fetchers  *dataset.Registry
	renderers *render.Registry
	templates report.TemplateRegistry
	validator *report.Validator
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates the export service.
func NewService(fetchers *dataset.Registry, renderers *render.Registry, templates report.TemplateRegistry, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetchers:  fetchers,
		renderers: renderers,
		templates: templates,
		validator: report.NewValidator(renderers.Supported),
		clock:     clk,
		logger:    logger.With(slog.String("component", "export")),
	}
}

// Export validates the request, fetches the dataset and renders it in the
// requested format. The filename follows {name}_{timestamp}.{ext} where name
// is the template name when one is referenced, otherwise the category's
// default title.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	name := dataset.DefaultTitle(req.Category)
	fields := []string(nil)
	if req.TemplateID != "" {
		tpl, err := s.templates.Resolve(ctx, req.TemplateID)
		if err != nil {
			return nil, report.NewValidationError("template_id", "unknown template")
		}
		if req.Category == "" {
			req.Category = tpl.Category
		}
		req.Filters = req.Filters.Merge(tpl.DefaultFilters)
		name = tpl.Name
		fields = tpl.Fields
	}

	if !s.renderers.Supported(req.Format) {
		return nil, report.NewValidationError("format", "unsupported format")
	}
	if err := s.validator.ValidateFilters(&req.Filters); err != nil {
		return nil, err
	}

	ds, err := s.fetchers.Fetch(ctx, req.Category, req.Filters)
	if err != nil {
		return nil, err
	}

	renderer, err := s.renderers.Lookup(req.Format)
	if err != nil {
		return nil, report.NewValidationError("format", "unsupported format")
	}
	artifact, err := renderer.Render(ds, name, fields)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	s.logger.InfoContext(ctx, "export rendered",
		slog.String("category", req.Category),
		slog.String("format", req.Format),
		slog.Int64("bytes", artifact.Size()))

	return &Result{
		Filename:    report.DownloadFilename(name, now, artifact.Extension),
		ContentType: artifact.ContentType,
		Data:        artifact.Bytes,
	}, nil
}
