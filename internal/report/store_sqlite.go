package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"clinicore/internal/dataset"
)

// schemaSQL defines the reports table. Timestamps are stored as RFC 3339
// text; filters as a JSON column.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS reports (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    type          TEXT NOT NULL,
    category      TEXT NOT NULL,
    format        TEXT NOT NULL,
    filters       TEXT NOT NULL DEFAULT '{}',
    status        TEXT NOT NULL,
    artifact_ref  TEXT,
    artifact_size INTEGER,
    generated_at  TEXT,
    expires_at    TEXT,
    failure_cause TEXT NOT NULL DEFAULT '',
    owner_id      TEXT NOT NULL,
    template_id   TEXT,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    deleted_at    TEXT
);

CREATE INDEX IF NOT EXISTS idx_reports_owner ON reports(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_expires ON reports(expires_at);
`

// SQLiteStore persists reports in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the report database at path and initializes
// the schema. WAL mode keeps writers from blocking list queries.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init report schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, r *Report) error {
	filters, err := json.Marshal(r.Filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	var templateID any
	if r.TemplateID != nil {
		templateID = *r.TemplateID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports
		    (id, title, type, category, format, filters, status,
		     failure_cause, owner_id, template_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?, ?)`,
		r.ID, r.Title, r.Type, r.Category, r.Format, string(filters),
		string(r.Status), r.OwnerID, templateID,
		encodeTime(r.CreatedAt), encodeTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

const selectColumns = `
	id, title, type, category, format, filters, status,
	artifact_ref, artifact_size, generated_at, expires_at,
	failure_cause, owner_id, template_id, created_at, updated_at, deleted_at`

func (s *SQLiteStore) scan(row interface{ Scan(...any) error }) (*Report, error) {
	var (
		r            Report
		filters      string
		status       string
		artifactRef  sql.NullString
		artifactSize sql.NullInt64
		generatedAt  sql.NullString
		expiresAt    sql.NullString
		templateID   sql.NullString
		createdAt    string
		updatedAt    string
		deletedAt    sql.NullString
	)
	err := row.Scan(&r.ID, &r.Title, &r.Type, &r.Category, &r.Format, &filters, &status,
		&artifactRef, &artifactSize, &generatedAt, &expiresAt,
		&r.FailureCause, &r.OwnerID, &templateID, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	if err := json.Unmarshal([]byte(filters), &r.Filters); err != nil {
		r.Filters = dataset.Filters{}
	}
	if artifactRef.Valid {
		r.ArtifactRef = &artifactRef.String
	}
	if artifactSize.Valid {
		r.ArtifactSize = &artifactSize.Int64
	}
	if templateID.Valid {
		r.TemplateID = &templateID.String
	}
	for _, pair := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{generatedAt, &r.GeneratedAt},
		{expiresAt, &r.ExpiresAt},
		{deletedAt, &r.DeletedAt},
	} {
		if pair.src.Valid {
			t, err := decodeTime(pair.src.String)
			if err != nil {
				return nil, fmt.Errorf("decode timestamp: %w", err)
			}
			*pair.dst = &t
		}
	}
	if r.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if r.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &r, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+selectColumns+" FROM reports WHERE id = ?", id)
	r, err := s.scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, f ListFilter) ([]*Report, error) {
	query := "SELECT" + selectColumns + " FROM reports WHERE owner_id = ? AND deleted_at IS NULL"
	args := []any{f.OwnerID}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkGenerating implements Store.
func (s *SQLiteStore) MarkGenerating(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(StatusGenerating), encodeTime(now), id, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("mark generating: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FinalizeCompleted implements Store.
func (s *SQLiteStore) FinalizeCompleted(ctx context.Context, id, artifactRef string, size int64, generated, expires time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = ?, artifact_ref = ?, artifact_size = ?,
		    generated_at = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(StatusCompleted), artifactRef, size,
		encodeTime(generated), encodeTime(expires), encodeTime(generated),
		id, string(StatusGenerating))
	if err != nil {
		return false, fmt.Errorf("finalize completed: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FinalizeFailed implements Store.
func (s *SQLiteStore) FinalizeFailed(ctx context.Context, id, cause string, generated time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = ?, failure_cause = ?, generated_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(StatusFailed), cause, encodeTime(generated), encodeTime(generated),
		id, string(StatusGenerating))
	if err != nil {
		return false, fmt.Errorf("finalize failed: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkDeleted implements Store.
func (s *SQLiteStore) MarkDeleted(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		encodeTime(now), encodeTime(now), id)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either unknown or already deleted; distinguish for the caller.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context, ownerID string, now time.Time) (*OwnerStats, error) {
	stats := &OwnerStats{ByStatus: make(map[Status]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(artifact_size), 0)
		FROM reports WHERE owner_id = ? AND deleted_at IS NULL
		GROUP BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
			bytes  int64
		)
		if err := rows.Scan(&status, &count, &bytes); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
		stats.StorageBytes += bytes
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reports
		WHERE owner_id = ? AND deleted_at IS NULL AND created_at >= ?`,
		ownerID, encodeTime(monthStart))
	if err := row.Scan(&stats.ThisMonth); err != nil {
		return nil, fmt.Errorf("stats this month: %w", err)
	}

	stats.StorageHuman = dataset.HumanizeBytes(stats.StorageBytes)
	return stats, nil
}

// ListExpired implements Store.
func (s *SQLiteStore) ListExpired(ctx context.Context, now time.Time) ([]*Report, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT"+selectColumns+` FROM reports
		WHERE status = ? AND deleted_at IS NULL AND artifact_ref IS NOT NULL
		  AND expires_at IS NOT NULL AND expires_at <= ?`,
		string(StatusCompleted), encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearArtifact implements Store.
func (s *SQLiteStore) ClearArtifact(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reports SET artifact_ref = NULL, artifact_size = NULL, updated_at = ?
		WHERE id = ?`, encodeTime(now), id)
	if err != nil {
		return fmt.Errorf("clear artifact: %w", err)
	}
	return nil
}
