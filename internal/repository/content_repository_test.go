package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

func newContentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func contentRows(items ...*models.ContentItem) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "file_path", "due_date",
		"expires_at", "is_pinned", "pinned_at", "department_id", "division_id", "semester", "created_by",
		"created_at", "updated_at"})
	for _, item := range items {
		rows.AddRow(item.ID, item.Title, item.Description, item.Category, item.FilePath, item.DueDate,
			item.ExpiresAt, item.IsPinned, item.PinnedAt, item.DepartmentID, item.DivisionID, item.Semester,
			item.CreatedBy, item.CreatedAt, item.UpdatedAt)
	}
	return rows
}

func TestContentRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.ContentItem{
		Title:        "Midterm schedule",
		Category:     models.CategoryNotice,
		DepartmentID: "dept-1",
		DivisionID:   "div-2",
		CreatedBy:    "cr-1",
	}
	require.NoError(t, repo.Create(context.Background(), item))
	require.NotEmpty(t, item.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, category")).
		WithArgs(item.ID).
		WillReturnRows(contentRows(item))

	found, err := repo.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, item.Title, found.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryCreateSameIdentityCoexists(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	// No identity constraint on contents: an overridden duplicate inserts
	// a second row alongside the first.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contents")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	first := &models.ContentItem{
		Title:        "Midterm schedule",
		Category:     models.CategoryNotice,
		DepartmentID: "dept-1",
		DivisionID:   "div-2",
		CreatedBy:    "cr-1",
	}
	second := &models.ContentItem{
		Title:        "Midterm schedule",
		Category:     models.CategoryNotice,
		DepartmentID: "dept-1",
		DivisionID:   "div-2",
		CreatedBy:    "cr-1",
	}
	require.NoError(t, repo.Create(context.Background(), first))
	require.NoError(t, repo.Create(context.Background(), second))
	require.NotEqual(t, first.ID, second.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryFindDuplicateNullSemester(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	existing := &models.ContentItem{ID: "content-1", Title: "Midterm", Category: models.CategoryNotice,
		DepartmentID: "dept-1", DivisionID: "div-2", CreatedBy: "cr-1"}

	mock.ExpectQuery(`SELECT .* FROM contents\s+WHERE title = \$1 AND category = \$2 AND department_id = \$3 AND division_id = \$4 AND semester IS NULL`).
		WithArgs("Midterm", models.CategoryNotice, "dept-1", "div-2").
		WillReturnRows(contentRows(existing))

	found, err := repo.FindDuplicate(context.Background(), "Midterm", models.CategoryNotice,
		models.ScopeKey{DepartmentID: "dept-1", DivisionID: "div-2"})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "content-1", found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryFindDuplicateNoMatch(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	sem := "SEM3"
	mock.ExpectQuery(`SELECT .* FROM contents\s+WHERE title = \$1 AND category = \$2 AND department_id = \$3 AND division_id = \$4 AND semester = \$5`).
		WithArgs("Midterm", models.CategoryNote, "dept-1", "div-2", "SEM3").
		WillReturnError(sql.ErrNoRows)

	found, err := repo.FindDuplicate(context.Background(), "Midterm", models.CategoryNote,
		models.ScopeKey{DepartmentID: "dept-1", DivisionID: "div-2", Semester: &sem})
	require.NoError(t, err)
	require.Nil(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListActiveOrdering(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM contents WHERE department_id = \$1 AND division_id = \$2 AND \(semester IS NULL OR semester = \$3\) AND \(expires_at IS NULL OR expires_at > \$4\) ORDER BY is_pinned DESC, pinned_at DESC NULLS LAST, created_at DESC LIMIT 100 OFFSET 0`).
		WithArgs("dept-1", "div-2", "SEM3", now).
		WillReturnRows(contentRows())

	_, err := repo.List(context.Background(), models.ContentFilter{
		DepartmentID:  "dept-1",
		DivisionID:    "div-2",
		SemesterOrAll: "SEM3",
		State:         models.ContentStateActive,
		Now:           now,
		PinnedFirst:   true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListArchiveOrdering(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM contents WHERE department_id = \$1 AND division_id = \$2 AND expires_at IS NOT NULL AND expires_at <= \$3 ORDER BY expires_at DESC, updated_at DESC LIMIT 100 OFFSET 0`).
		WithArgs("dept-1", "div-2", now).
		WillReturnRows(contentRows())

	_, err := repo.List(context.Background(), models.ContentFilter{
		DepartmentID: "dept-1",
		DivisionID:   "div-2",
		State:        models.ContentStateArchived,
		Now:          now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryPinTransaction(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	pinnedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE contents SET is_pinned = FALSE, pinned_at = NULL, updated_at = \$1\s+WHERE id <> \$2 AND category = 'notice' AND is_pinned AND department_id = \$3 AND division_id = \$4`).
		WithArgs(pinnedAt, "content-1", "dept-1", "div-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contents SET is_pinned = TRUE, pinned_at = \$1, updated_at = \$1 WHERE id = \$2`).
		WithArgs(pinnedAt, "content-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Pin(context.Background(), "content-1", "dept-1", "div-2", pinnedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryPinMissingTarget(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	pinnedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE contents SET is_pinned = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE contents SET is_pinned = TRUE`).
		WithArgs(pinnedAt, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Pin(context.Background(), "missing", "dept-1", "div-2", pinnedAt)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdateWithVersionAssignsNextNumber(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	item := &models.ContentItem{ID: "content-1", Title: "New title", Category: models.CategoryNote,
		DepartmentID: "dept-1", DivisionID: "div-2", CreatedBy: "cr-1"}
	snapshot := &models.ContentVersion{ContentID: "content-1", Title: "Old title",
		Category: models.CategoryNote, CreatedBy: "cr-1"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM contents WHERE id = \$1 FOR UPDATE`).
		WithArgs("content-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("content-1"))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version_number\), 0\) \+ 1 FROM content_versions WHERE content_id = \$1`).
		WithArgs("content-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO content_versions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contents SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateWithVersion(context.Background(), item, snapshot))
	require.Equal(t, 3, snapshot.VersionNumber)
	require.NotEmpty(t, snapshot.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryDeleteWithVersions(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM content_versions WHERE content_id = \$1`).
		WithArgs("content-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM contents WHERE id = \$1`).
		WithArgs("content-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteWithVersions(context.Background(), "content-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUnpinMissing(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE contents SET is_pinned = FALSE, pinned_at = NULL, updated_at = \$1 WHERE id = \$2`).
		WithArgs(at, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unpin(context.Background(), "missing", at)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListVersions(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()

	repo := NewContentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "content_id", "version_number", "title", "description",
		"category", "file_path", "due_date", "expires_at", "created_by", "created_at"}).
		AddRow("ver-2", "content-1", 2, "Old title", nil, "note", nil, nil, nil, "cr-1", time.Now()).
		AddRow("ver-1", "content-1", 1, "Older title", nil, "note", nil, nil, nil, "cr-1", time.Now())
	mock.ExpectQuery(`SELECT id, content_id, version_number`).
		WithArgs("content-1").
		WillReturnRows(rows)

	versions, err := repo.ListVersions(context.Background(), "content-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, 2, versions[0].VersionNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
