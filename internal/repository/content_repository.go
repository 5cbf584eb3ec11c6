package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

// ErrUniqueViolation signals that an insert or rename hit a uniqueness
// constraint, such as a duplicate contact number or directory name.
var ErrUniqueViolation = errors.New("unique constraint violation")

const contentColumns = `id, title, description, category, file_path, due_date, expires_at,
       is_pinned, pinned_at, department_id, division_id, semester, created_by, created_at, updated_at`

const versionColumns = `id, content_id, version_number, title, description, category, file_path,
       due_date, expires_at, created_by, created_at`

// ContentRepository persists content items and their version history.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new content item. Duplicate detection is handled by the
// service's advisory pre-check; the table carries no identity constraint so
// an uploader overriding the check gets coexisting rows.
func (r *ContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	const query = `INSERT INTO contents
	(id, title, description, category, file_path, due_date, expires_at, is_pinned, pinned_at,
	 department_id, division_id, semester, created_by, created_at, updated_at)
	VALUES (:id, :title, :description, :category, :file_path, :due_date, :expires_at, :is_pinned, :pinned_at,
	 :department_id, :division_id, :semester, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// GetByID retrieves one content item.
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE id = $1`, contentColumns)
	var item models.ContentItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindDuplicate looks up a non-deleted item matching (title, category, scope)
// exactly; a nil semester matches only rows with a null semester. Returns nil
// when no match exists.
func (r *ContentRepository) FindDuplicate(ctx context.Context, title string, category models.ContentCategory, scope models.ScopeKey) (*models.ContentItem, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM contents
	WHERE title = $1 AND category = $2 AND department_id = $3 AND division_id = $4`, contentColumns))
	args := []interface{}{title, category, scope.DepartmentID, scope.DivisionID}
	if scope.Semester != nil {
		args = append(args, *scope.Semester)
		builder.WriteString(fmt.Sprintf(" AND semester = $%d", len(args)))
	} else {
		builder.WriteString(" AND semester IS NULL")
	}
	var item models.ContentItem
	if err := r.db.GetContext(ctx, &item, builder.String(), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate content: %w", err)
	}
	return &item, nil
}

// List returns content items matching the computed visibility filter.
func (r *ContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM contents", contentColumns))
	args := make([]interface{}, 0, 8)
	conditions := make([]string, 0, 8)

	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.DivisionID != "" {
		args = append(args, filter.DivisionID)
		conditions = append(conditions, fmt.Sprintf("division_id = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.SemesterOrAll != "" {
		args = append(args, filter.SemesterOrAll)
		conditions = append(conditions, fmt.Sprintf("(semester IS NULL OR semester = $%d)", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}

	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	switch filter.State {
	case models.ContentStateArchived:
		args = append(args, now)
		conditions = append(conditions, fmt.Sprintf("expires_at IS NOT NULL AND expires_at <= $%d", len(args)))
	case models.ContentStateActive:
		args = append(args, now)
		conditions = append(conditions, fmt.Sprintf("(expires_at IS NULL OR expires_at > $%d)", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	switch {
	case filter.State == models.ContentStateArchived:
		builder.WriteString(" ORDER BY expires_at DESC, updated_at DESC")
	case filter.PinnedFirst:
		builder.WriteString(" ORDER BY is_pinned DESC, pinned_at DESC NULLS LAST, created_at DESC")
	default:
		builder.WriteString(" ORDER BY created_at DESC")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return items, nil
}

// Update persists the mutable fields of a content item.
func (r *ContentRepository) Update(ctx context.Context, item *models.ContentItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contents SET title = :title, description = :description, category = :category,
	file_path = :file_path, due_date = :due_date, expires_at = :expires_at, semester = :semester,
	updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return requireRowsAffected(res, "update content")
}

// UpdateWithVersion atomically appends a version snapshot and persists the
// updated head. The parent row is locked for the duration of the transaction
// so concurrent file-replacing updates cannot allocate the same version
// number; the snapshot's number is assigned as max+1 inside the transaction.
func (r *ContentRepository) UpdateWithVersion(ctx context.Context, item *models.ContentItem, snapshot *models.ContentVersion) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin version tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var lockedID string
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM contents WHERE id = $1 FOR UPDATE`, item.ID); err != nil {
		return fmt.Errorf("lock content row: %w", err)
	}

	var next int
	if err := tx.GetContext(ctx, &next,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM content_versions WHERE content_id = $1`, item.ID); err != nil {
		return fmt.Errorf("compute next version: %w", err)
	}

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	snapshot.VersionNumber = next
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	const insertVersion = `INSERT INTO content_versions
	(id, content_id, version_number, title, description, category, file_path, due_date, expires_at, created_by, created_at)
	VALUES (:id, :content_id, :version_number, :title, :description, :category, :file_path, :due_date, :expires_at, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertVersion, snapshot); err != nil {
		return fmt.Errorf("append content version: %w", err)
	}

	item.UpdatedAt = time.Now().UTC()
	const updateItem = `UPDATE contents SET title = :title, description = :description, category = :category,
	file_path = :file_path, due_date = :due_date, expires_at = :expires_at, semester = :semester,
	updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateItem, item); err != nil {
		return fmt.Errorf("update content head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit version tx: %w", err)
	}
	return nil
}

// Pin marks the target notice as pinned and demotes every other pinned notice
// in the same (department, division) pair, across all semesters, as a single
// transaction so readers never observe two pinned items.
func (r *ContentRepository) Pin(ctx context.Context, id, departmentID, divisionID string, pinnedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const demote = `UPDATE contents SET is_pinned = FALSE, pinned_at = NULL, updated_at = $1
	WHERE id <> $2 AND category = 'notice' AND is_pinned AND department_id = $3 AND division_id = $4`
	if _, err := tx.ExecContext(ctx, demote, pinnedAt, id, departmentID, divisionID); err != nil {
		return fmt.Errorf("demote pinned notices: %w", err)
	}

	const promote = `UPDATE contents SET is_pinned = TRUE, pinned_at = $1, updated_at = $1 WHERE id = $2`
	res, err := tx.ExecContext(ctx, promote, pinnedAt, id)
	if err != nil {
		return fmt.Errorf("pin notice: %w", err)
	}
	if err := requireRowsAffected(res, "pin notice"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pin tx: %w", err)
	}
	return nil
}

// Unpin clears the pin state of the target only; no other row is touched.
func (r *ContentRepository) Unpin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE contents SET is_pinned = FALSE, pinned_at = NULL, updated_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("unpin notice: %w", err)
	}
	return requireRowsAffected(res, "unpin notice")
}

// ListVersions returns the version history of one item, newest first.
func (r *ContentRepository) ListVersions(ctx context.Context, contentID string) ([]models.ContentVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_versions WHERE content_id = $1
	ORDER BY version_number DESC, created_at DESC`, versionColumns)
	var versions []models.ContentVersion
	if err := r.db.SelectContext(ctx, &versions, query, contentID); err != nil {
		return nil, fmt.Errorf("list content versions: %w", err)
	}
	return versions, nil
}

// DeleteWithVersions removes an item together with its version history.
func (r *ContentRepository) DeleteWithVersions(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_versions WHERE content_id = $1`, id); err != nil {
		return fmt.Errorf("delete content versions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if err := requireRowsAffected(res, "delete content"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// CountsByState returns total and active item counts plus pinned notices,
// used by the admin stats endpoint.
func (r *ContentRepository) CountsByState(ctx context.Context, now time.Time) (total, active, pinned int, err error) {
	const query = `SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE expires_at IS NULL OR expires_at > $1) AS active,
	COUNT(*) FILTER (WHERE is_pinned) AS pinned
	FROM contents`
	row := r.db.QueryRowxContext(ctx, query, now)
	if err = row.Scan(&total, &active, &pinned); err != nil {
		return 0, 0, 0, fmt.Errorf("count contents: %w", err)
	}
	return total, active, pinned, nil
}

// CountByScope reports whether any content references the given department or division.
func (r *ContentRepository) CountByScope(ctx context.Context, departmentID, divisionID string) (int, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT COUNT(*) FROM contents`)
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)
	if departmentID != "" {
		args = append(args, departmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if divisionID != "" {
		args = append(args, divisionID)
		conditions = append(conditions, fmt.Sprintf("division_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count contents by scope: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func requireRowsAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
