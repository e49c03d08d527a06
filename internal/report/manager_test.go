package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/clinical"
	"clinicore/internal/dataset"
	"clinicore/internal/render"
	"clinicore/internal/shared/clock"
	"clinicore/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureSink records published lifecycle events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureSink) typesFor(reportID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		if e.ReportID == reportID {
			out = append(out, e.Type)
		}
	}
	return out
}

type harness struct {
	manager *Manager
	store   *MemoryStore
	blobs   *storage.MemoryStore
	clock   *clock.FixedClock
	events  *captureSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.Fixed(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))
	return newHarnessWith(t, clk, render.DefaultRegistry(clk))
}

func newHarnessWith(t *testing.T, clk *clock.FixedClock, renderers *render.Registry) *harness {
	t.Helper()
	mem := clinical.SampleData()
	h := &harness{
		store:  NewMemoryStore(),
		blobs:  storage.NewMemoryStore(),
		clock:  clk,
		events: &captureSink{},
	}
	h.manager = NewManager(ManagerOptions{
		Store:     h.store,
		Blobs:     h.blobs,
		Fetchers:  dataset.DefaultRegistry(mem, mem, mem, mem, clinical.SampleLedger(), clk, testLogger()),
		Renderers: renderers,
		Templates: NewStaticTemplates(SeedTemplates()...),
		Clock:     clk,
		Events:    h.events,
		Logger:    testLogger(),
	})
	return h
}

func (h *harness) create(t *testing.T, ownerID string, req CreateRequest) *Report {
	t.Helper()
	r, err := h.manager.Create(context.Background(), ownerID, req)
	require.NoError(t, err)
	return r
}

func (h *harness) generate(t *testing.T, id string) *Report {
	t.Helper()
	require.NoError(t, h.manager.Generate(context.Background(), id))
	r, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestManagerCreatePendingReport(t *testing.T) {
	h := newHarness(t)

	r := h.create(t, "dr-souza", CreateRequest{
		Title:    "Diagnósticos do Semestre",
		Type:     TypeMedical,
		Category: dataset.CategoryDiagnoses,
		Format:   render.FormatCSV,
		Filters:  dataset.Filters{DateFrom: "2026-01-01", DateTo: "2026-06-30"},
	})

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "dr-souza", r.OwnerID)
	assert.True(t, r.CreatedAt.Equal(h.clock.Now()))
	assert.Nil(t, r.ArtifactRef)

	assert.Equal(t, []string{EventQueued}, h.events.typesFor(r.ID))
}

func TestManagerCreateDefaultsTitle(t *testing.T) {
	h := newHarness(t)

	r := h.create(t, "dr-souza", CreateRequest{
		Type:     TypeStatistical,
		Category: dataset.CategoryPatients,
		Format:   render.FormatPDF,
	})
	assert.Equal(t, "Relatório de Pacientes", r.Title)
}

func TestManagerCreateFromTemplate(t *testing.T) {
	h := newHarness(t)

	r := h.create(t, "dr-souza", CreateRequest{
		Format:     render.FormatExcel,
		TemplateID: "tpl-revenue-monthly",
	})

	assert.Equal(t, dataset.CategoryRevenue, r.Category)
	assert.Equal(t, TypeFinancial, r.Type)
	assert.Equal(t, "Relatório Financeiro", r.Title)
	require.NotNil(t, r.TemplateID)
	assert.Equal(t, "tpl-revenue-monthly", *r.TemplateID)
}

func TestManagerCreateUnknownTemplate(t *testing.T) {
	h := newHarness(t)

	_, err := h.manager.Create(context.Background(), "dr-souza", CreateRequest{
		Format:     render.FormatCSV,
		TemplateID: "tpl-nope",
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "template_id", ve.Field)

	// Nothing was persisted.
	out, listErr := h.store.List(context.Background(), ListFilter{OwnerID: "dr-souza"})
	require.NoError(t, listErr)
	assert.Empty(t, out)
}

func TestManagerCreateRejectsBeforePersist(t *testing.T) {
	h := newHarness(t)

	_, err := h.manager.Create(context.Background(), "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryPatients, Format: "docx",
	})
	assert.True(t, IsValidation(err))

	out, listErr := h.store.List(context.Background(), ListFilter{OwnerID: "dr-souza"})
	require.NoError(t, listErr)
	assert.Empty(t, out)
}

func TestManagerGenerateEveryCategoryAndFormat(t *testing.T) {
	extensions := map[string]string{
		render.FormatPDF:   "pdf",
		render.FormatExcel: "xlsx",
		render.FormatCSV:   "csv",
		render.FormatHTML:  "html",
	}

	for _, category := range dataset.Categories() {
		for _, format := range render.Formats() {
			t.Run(category+"/"+format, func(t *testing.T) {
				h := newHarness(t)
				ctx := context.Background()

				r := h.create(t, "dr-souza", CreateRequest{
					Type:     TypeCustom,
					Category: category,
					Format:   format,
					Filters:  dataset.Filters{DateFrom: "2025-01-01", DateTo: "2026-06-30"},
				})
				got := h.generate(t, r.ID)

				assert.Equal(t, StatusCompleted, got.Status)
				require.NotNil(t, got.ArtifactRef)
				assert.Equal(t, ArtifactPath(r.ID, r.CreatedAt, extensions[format]), *got.ArtifactRef)
				require.NotNil(t, got.ArtifactSize)
				assert.Positive(t, *got.ArtifactSize)
				require.NotNil(t, got.GeneratedAt)
				require.NotNil(t, got.ExpiresAt)
				assert.True(t, got.ExpiresAt.Equal(got.GeneratedAt.Add(ExpiryPeriod)))

				exists, err := h.blobs.Exists(ctx, *got.ArtifactRef)
				require.NoError(t, err)
				assert.True(t, exists)

				assert.Equal(t, []string{EventQueued, EventCompleted}, h.events.typesFor(r.ID))
			})
		}
	}
}

func TestManagerGenerateUnknownCategoryCompletesEmpty(t *testing.T) {
	h := newHarness(t)

	r := h.create(t, "dr-souza", CreateRequest{
		Type:     TypeCustom,
		Category: "imaging",
		Format:   render.FormatPDF,
	})
	got := h.generate(t, r.ID)

	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.ArtifactRef)

	body, err := h.blobs.Open(context.Background(), *got.ArtifactRef)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Contains(t, string(data), "Nenhum registro encontrado para este relat\xf3rio.")
}

func TestManagerGenerateSkipsSettledReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := h.create(t, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatCSV,
	})
	_, err := h.store.MarkGenerating(ctx, r.ID, h.clock.Now())
	require.NoError(t, err)
	_, err = h.store.FinalizeFailed(ctx, r.ID, "earlier attempt failed", h.clock.Now())
	require.NoError(t, err)

	got := h.generate(t, r.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "earlier attempt failed", got.FailureCause)
	assert.Zero(t, h.blobs.Len(), "settled report must not write an artifact")
}

// usurpingRenderer finalizes the report through the store while rendering,
// simulating a concurrent attempt winning between render and finalize.
type usurpingRenderer struct {
	store Store
	clk   clock.Clock
	id    func() string
}

func (u *usurpingRenderer) Format() string { return render.FormatCSV }

func (u *usurpingRenderer) Render(ds *dataset.Dataset, title string, fields []string) (*render.Artifact, error) {
	if _, err := u.store.FinalizeFailed(context.Background(), u.id(), "superseded", u.clk.Now()); err != nil {
		return nil, err
	}
	return &render.Artifact{Bytes: []byte("data"), ContentType: "text/csv; charset=utf-8", Extension: "csv"}, nil
}

func TestManagerLosingFinalizeRemovesBlob(t *testing.T) {
	clk := clock.Fixed(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))

	var reportID string
	renderers := render.NewRegistry()
	h := newHarnessWith(t, clk, renderers)
	renderers.Register(&usurpingRenderer{store: h.store, clk: clk, id: func() string { return reportID }})

	r := h.create(t, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatCSV,
	})
	reportID = r.ID

	got := h.generate(t, r.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "superseded", got.FailureCause)
	assert.Zero(t, h.blobs.Len(), "losing attempt must clean up its blob")
	assert.NotContains(t, h.events.typesFor(r.ID), EventCompleted)
}

// completingUsurper finalizes the report as completed through the store while
// rendering, storing its artifact at the deterministic path first. The outer
// attempt then loses its finalize against an identical path.
type completingUsurper struct {
	store Store
	blobs storage.BlobStore
	clk   clock.Clock
	get   func() *Report
}

func (u *completingUsurper) Format() string { return render.FormatCSV }

func (u *completingUsurper) Render(ds *dataset.Dataset, title string, fields []string) (*render.Artifact, error) {
	ctx := context.Background()
	r := u.get()
	path := ArtifactPath(r.ID, r.CreatedAt, "csv")
	if err := u.blobs.Put(ctx, path, []byte("data")); err != nil {
		return nil, err
	}
	now := u.clk.Now()
	if _, err := u.store.FinalizeCompleted(ctx, r.ID, path, 4, now, now.Add(ExpiryPeriod)); err != nil {
		return nil, err
	}
	return &render.Artifact{Bytes: []byte("data"), ContentType: "text/csv; charset=utf-8", Extension: "csv"}, nil
}

func TestManagerLosingFinalizeKeepsWinnersArtifact(t *testing.T) {
	clk := clock.Fixed(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))

	var created *Report
	renderers := render.NewRegistry()
	h := newHarnessWith(t, clk, renderers)
	renderers.Register(&completingUsurper{
		store: h.store, blobs: h.blobs, clk: clk,
		get: func() *Report { return created },
	})

	r := h.create(t, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatCSV,
	})
	created = r

	got := h.generate(t, r.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.ArtifactRef)

	exists, err := h.blobs.Exists(context.Background(), *got.ArtifactRef)
	require.NoError(t, err)
	assert.True(t, exists, "winning attempt's artifact must survive the losing finalize")
	assert.Equal(t, 1, h.blobs.Len())

	dl, err := h.manager.OpenDownload(context.Background(), "dr-souza", r.ID)
	require.NoError(t, err)
	require.NoError(t, dl.Body.Close())
}

type failingRenderer struct{}

func (failingRenderer) Format() string { return render.FormatCSV }

func (failingRenderer) Render(*dataset.Dataset, string, []string) (*render.Artifact, error) {
	return nil, errors.New("encoder exploded")
}

func TestManagerGenerateFailureMarksFailed(t *testing.T) {
	clk := clock.Fixed(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))
	renderers := render.NewRegistry()
	renderers.Register(failingRenderer{})
	h := newHarnessWith(t, clk, renderers)

	r := h.create(t, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatCSV,
	})
	got := h.generate(t, r.ID)

	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.FailureCause, "render")
	assert.Contains(t, got.FailureCause, "encoder exploded")
	assert.Zero(t, h.blobs.Len())
	assert.Equal(t, []string{EventQueued, EventFailed}, h.events.typesFor(r.ID))
}

func completedReport(t *testing.T, h *harness, ownerID string) *Report {
	t.Helper()
	r := h.create(t, ownerID, CreateRequest{
		Title:    "Relatório Financeiro",
		Type:     TypeFinancial,
		Category: dataset.CategoryRevenue,
		Format:   render.FormatCSV,
		Filters:  dataset.Filters{DateFrom: "2025-01-01", DateTo: "2025-06-30"},
	})
	return h.generate(t, r.ID)
}

func TestManagerOpenDownload(t *testing.T) {
	h := newHarness(t)
	r := completedReport(t, h, "dr-souza")

	dl, err := h.manager.OpenDownload(context.Background(), "dr-souza", r.ID)
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "text/csv; charset=utf-8", dl.ContentType)
	assert.Equal(t, "relatorio_financeiro_20260630_120000.csv", dl.Filename)
	assert.Equal(t, *r.ArtifactSize, dl.Size)

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Len(t, data, int(dl.Size))
}

func TestManagerOpenDownloadGates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	completed := completedReport(t, h, "dr-souza")
	pending := h.create(t, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatCSV,
	})

	_, err := h.manager.OpenDownload(ctx, "dr-souza", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Non-owners are refused before any state is considered.
	_, err = h.manager.OpenDownload(ctx, "dr-lima", completed.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = h.manager.OpenDownload(ctx, "dr-souza", pending.ID)
	assert.ErrorIs(t, err, ErrNotDownloadable)
}

func TestManagerDownloadExpiresExactly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := completedReport(t, h, "dr-souza")

	h.clock.Advance(ExpiryPeriod - time.Second)
	dl, err := h.manager.OpenDownload(ctx, "dr-souza", r.ID)
	require.NoError(t, err)
	dl.Body.Close()

	h.clock.Advance(time.Second)
	_, err = h.manager.OpenDownload(ctx, "dr-souza", r.ID)
	assert.ErrorIs(t, err, ErrNotDownloadable)
}

func TestManagerDownloadMissingBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := completedReport(t, h, "dr-souza")

	require.NoError(t, h.blobs.Delete(ctx, *r.ArtifactRef))

	_, err := h.manager.OpenDownload(ctx, "dr-souza", r.ID)
	assert.ErrorIs(t, err, ErrNotDownloadable)
}

func TestManagerGetEnforcesOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := completedReport(t, h, "dr-souza")

	got, err := h.manager.Get(ctx, "dr-souza", r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = h.manager.Get(ctx, "dr-lima", r.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, h.manager.Delete(ctx, "dr-souza", r.ID))
	_, err = h.manager.Get(ctx, "dr-souza", r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := completedReport(t, h, "dr-souza")

	assert.ErrorIs(t, h.manager.Delete(ctx, "dr-souza", "missing"), ErrNotFound)
	assert.ErrorIs(t, h.manager.Delete(ctx, "dr-lima", r.ID), ErrAccessDenied)

	require.NoError(t, h.manager.Delete(ctx, "dr-souza", r.ID))
	// Idempotent.
	require.NoError(t, h.manager.Delete(ctx, "dr-souza", r.ID))

	exists, err := h.blobs.Exists(ctx, *r.ArtifactRef)
	require.NoError(t, err)
	assert.False(t, exists, "deletion removes the stored artifact")

	out, err := h.manager.List(ctx, "dr-souza", "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// finalizeDuringDelete lands a completed finalize between the manager's read
// and the soft delete, simulating a worker finishing mid-Delete.
type finalizeDuringDelete struct {
	*MemoryStore
	blobs storage.BlobStore
}

func (s *finalizeDuringDelete) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	r, err := s.MemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.MemoryStore.MarkGenerating(ctx, id, at); err != nil {
		return err
	}
	path := ArtifactPath(id, r.CreatedAt, "csv")
	if err := s.blobs.Put(ctx, path, []byte("data")); err != nil {
		return err
	}
	if _, err := s.MemoryStore.FinalizeCompleted(ctx, id, path, 4, at, at.Add(ExpiryPeriod)); err != nil {
		return err
	}
	return s.MemoryStore.MarkDeleted(ctx, id, at)
}

func TestManagerDeleteReclaimsLateArtifact(t *testing.T) {
	clk := clock.Fixed(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))
	mem := clinical.SampleData()
	blobs := storage.NewMemoryStore()
	store := &finalizeDuringDelete{MemoryStore: NewMemoryStore(), blobs: blobs}
	manager := NewManager(ManagerOptions{
		Store:     store,
		Blobs:     blobs,
		Fetchers:  dataset.DefaultRegistry(mem, mem, mem, mem, clinical.SampleLedger(), clk, testLogger()),
		Renderers: render.DefaultRegistry(clk),
		Templates: NewStaticTemplates(SeedTemplates()...),
		Clock:     clk,
		Logger:    testLogger(),
	})
	ctx := context.Background()

	r, err := manager.Create(ctx, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatCSV,
	})
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, "dr-souza", r.ID))

	assert.Zero(t, blobs.Len(), "artifact finalized during delete must be reclaimed")
	got, err := store.MemoryStore.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted())
}

func TestManagerSweepExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	early := completedReport(t, h, "dr-souza")
	h.clock.Advance(time.Hour)
	late := completedReport(t, h, "dr-souza")

	h.clock.Advance(ExpiryPeriod - time.Hour)
	swept, err := h.manager.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	got, err := h.store.Get(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status, "expired rows keep their record")
	assert.Nil(t, got.ArtifactRef)
	exists, err := h.blobs.Exists(ctx, *early.ArtifactRef)
	require.NoError(t, err)
	assert.False(t, exists)

	stillThere, err := h.store.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.NotNil(t, stillThere.ArtifactRef)

	// A second pass finds nothing new.
	swept, err = h.manager.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestManagerStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	completedReport(t, h, "dr-souza")
	h.create(t, "dr-souza", CreateRequest{
		Type: TypeMedical, Category: dataset.CategoryDiagnoses, Format: render.FormatPDF,
	})
	completedReport(t, h, "dr-lima")

	stats, err := h.manager.Stats(ctx, "dr-souza")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[StatusPending])
	assert.Positive(t, stats.StorageBytes)
	assert.NotEmpty(t, stats.StorageHuman)

	completed, err := h.manager.List(ctx, "dr-souza", StatusCompleted, 0, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}
