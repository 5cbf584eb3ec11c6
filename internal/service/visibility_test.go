package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestFeedFilterStudentScope(t *testing.T) {
	viewer := Viewer{UserID: "u1", Role: models.RoleStudent, DepartmentID: "dept-1", DivisionID: "div-2", Semester: "SEM3"}

	filter, err := FeedFilter(viewer, dto.ContentListQuery{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "dept-1", filter.DepartmentID)
	assert.Equal(t, "div-2", filter.DivisionID)
	assert.Equal(t, "SEM3", filter.SemesterOrAll)
	assert.Empty(t, filter.Semester)
	assert.Equal(t, models.ContentStateActive, filter.State)
	assert.True(t, filter.PinnedFirst)
}

func TestFeedFilterCRSeesAllSemesters(t *testing.T) {
	viewer := Viewer{UserID: "u2", Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2", Semester: "SEM3"}

	filter, err := FeedFilter(viewer, dto.ContentListQuery{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "dept-1", filter.DepartmentID)
	assert.Equal(t, "div-2", filter.DivisionID)
	assert.Empty(t, filter.Semester)
	assert.Empty(t, filter.SemesterOrAll)
}

func TestFeedFilterCRExplicitSemester(t *testing.T) {
	viewer := Viewer{UserID: "u2", Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2", Semester: "SEM3"}

	filter, err := FeedFilter(viewer, dto.ContentListQuery{Semester: "SEM5"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SEM5", filter.Semester)
	// Scope stays the CR's own regardless of the query.
	assert.Equal(t, "dept-1", filter.DepartmentID)
	assert.Equal(t, "div-2", filter.DivisionID)
}

func TestFeedFilterAdminOverrides(t *testing.T) {
	viewer := Viewer{UserID: "u3", Role: models.RoleAdmin}
	q := dto.ContentListQuery{DepartmentID: "dept-9", DivisionID: "div-9", Semester: "SEM1"}

	filter, err := FeedFilter(viewer, q, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "dept-9", filter.DepartmentID)
	assert.Equal(t, "div-9", filter.DivisionID)
	assert.Equal(t, "SEM1", filter.Semester)
}

func TestFeedFilterCategoryControlsPinnedOrdering(t *testing.T) {
	viewer := Viewer{Role: models.RoleStudent, DepartmentID: "d", DivisionID: "v", Semester: "S"}

	notice, err := FeedFilter(viewer, dto.ContentListQuery{Category: "notice"}, time.Now())
	require.NoError(t, err)
	assert.True(t, notice.PinnedFirst)

	note, err := FeedFilter(viewer, dto.ContentListQuery{Category: "note"}, time.Now())
	require.NoError(t, err)
	assert.False(t, note.PinnedFirst)

	_, err = FeedFilter(viewer, dto.ContentListQuery{Category: "bogus"}, time.Now())
	assert.Error(t, err)
}

func TestArchiveFilter(t *testing.T) {
	viewer := Viewer{Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2"}

	filter, err := ArchiveFilter(viewer, dto.ContentListQuery{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.ContentStateArchived, filter.State)
	assert.False(t, filter.PinnedFirst)
}

func TestMineFilter(t *testing.T) {
	viewer := Viewer{UserID: "cr-1", Role: models.RoleCR}
	filter, err := MineFilter(viewer, dto.ContentListQuery{Category: "assignment"})
	require.NoError(t, err)
	assert.Equal(t, "cr-1", filter.CreatedBy)
	assert.Equal(t, models.CategoryAssignment, filter.Category)
	assert.Empty(t, filter.State)

	_, err = MineFilter(viewer, dto.ContentListQuery{Category: "bogus"})
	assert.Error(t, err)
}

func TestCanViewSemesterRule(t *testing.T) {
	now := time.Now().UTC()
	item := &models.ContentItem{DepartmentID: "dept-1", DivisionID: "div-2", Semester: strPtr("SEM3"), CreatedBy: "cr-1"}

	matching := Viewer{UserID: "s1", Role: models.RoleStudent, DepartmentID: "dept-1", DivisionID: "div-2", Semester: "SEM3"}
	other := Viewer{UserID: "s2", Role: models.RoleStudent, DepartmentID: "dept-1", DivisionID: "div-2", Semester: "SEM5"}
	assert.True(t, CanView(matching, item, now))
	assert.False(t, CanView(other, item, now))

	// Unscoped items are visible to every semester in the division.
	unscoped := &models.ContentItem{DepartmentID: "dept-1", DivisionID: "div-2"}
	assert.True(t, CanView(other, unscoped, now))

	foreign := Viewer{UserID: "s3", Role: models.RoleStudent, DepartmentID: "dept-9", DivisionID: "div-2", Semester: "SEM3"}
	assert.False(t, CanView(foreign, item, now))
}

func TestCanManage(t *testing.T) {
	item := &models.ContentItem{DepartmentID: "dept-1", DivisionID: "div-2"}

	assert.True(t, CanManage(Viewer{Role: models.RoleAdmin}, item))
	assert.True(t, CanManage(Viewer{Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
	assert.False(t, CanManage(Viewer{Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-9"}, item))
	assert.False(t, CanManage(Viewer{Role: models.RoleStudent, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
}

func TestCanEditCreatorOnly(t *testing.T) {
	item := &models.ContentItem{DepartmentID: "dept-1", DivisionID: "div-2", CreatedBy: "cr-1"}

	assert.True(t, CanEdit(Viewer{UserID: "cr-1", Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
	// Sharing a scope does not grant edit rights over a peer's uploads.
	assert.False(t, CanEdit(Viewer{UserID: "cr-2", Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
	assert.False(t, CanEdit(Viewer{UserID: "admin-1", Role: models.RoleAdmin}, item))
}

func TestCanDeleteCreatorOrAdmin(t *testing.T) {
	item := &models.ContentItem{DepartmentID: "dept-1", DivisionID: "div-2", CreatedBy: "cr-1"}

	assert.True(t, CanDelete(Viewer{UserID: "cr-1", Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
	assert.True(t, CanDelete(Viewer{UserID: "admin-1", Role: models.RoleAdmin}, item))
	assert.False(t, CanDelete(Viewer{UserID: "cr-2", Role: models.RoleCR, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
	assert.False(t, CanDelete(Viewer{UserID: "s1", Role: models.RoleStudent, DepartmentID: "dept-1", DivisionID: "div-2"}, item))
}
