package service

import (
	"time"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

// Viewer is the audience identity extracted from an access token. It is the
// only input the visibility rules consult besides the request itself.
type Viewer struct {
	UserID       string
	Role         models.UserRole
	DepartmentID string
	DivisionID   string
	Semester     string
}

// ViewerFromClaims builds a Viewer from token claims.
func ViewerFromClaims(claims *models.JWTClaims) Viewer {
	if claims == nil {
		return Viewer{}
	}
	return Viewer{
		UserID:       claims.UserID,
		Role:         claims.Role,
		DepartmentID: claims.DepartmentID,
		DivisionID:   claims.DivisionID,
		Semester:     claims.Semester,
	}
}

// FeedFilter computes the read predicate for the active feed.
//
// Students see their department+division and only items whose semester equals
// theirs or is unset. CRs see every semester in their division. Admins see
// everything and may narrow by the query's department/division/semester.
// Pinned notices sort first unless the query narrows to a non-notice category.
func FeedFilter(viewer Viewer, q dto.ContentListQuery, now time.Time) (models.ContentFilter, error) {
	filter := models.ContentFilter{
		State:  models.ContentStateActive,
		Now:    now,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Category != "" {
		category := models.ContentCategory(q.Category)
		if !category.Valid() {
			return models.ContentFilter{}, appErrors.Clone(appErrors.ErrValidation, "unknown content category")
		}
		filter.Category = category
	}
	filter.PinnedFirst = filter.Category == "" || filter.Category == models.CategoryNotice

	switch viewer.Role {
	case models.RoleAdmin:
		filter.DepartmentID = q.DepartmentID
		filter.DivisionID = q.DivisionID
		filter.Semester = q.Semester
	case models.RoleCR:
		filter.DepartmentID = viewer.DepartmentID
		filter.DivisionID = viewer.DivisionID
		// CRs see every semester by default but may narrow explicitly.
		filter.Semester = q.Semester
	case models.RoleStudent, models.RoleCRPending:
		filter.DepartmentID = viewer.DepartmentID
		filter.DivisionID = viewer.DivisionID
		filter.SemesterOrAll = viewer.Semester
	default:
		return models.ContentFilter{}, appErrors.ErrForbidden
	}
	return filter, nil
}

// ArchiveFilter computes the read predicate for the archive view: same scope
// isolation as the feed, expired items only, most recently expired first.
func ArchiveFilter(viewer Viewer, q dto.ContentListQuery, now time.Time) (models.ContentFilter, error) {
	filter, err := FeedFilter(viewer, q, now)
	if err != nil {
		return models.ContentFilter{}, err
	}
	filter.State = models.ContentStateArchived
	filter.PinnedFirst = false
	return filter, nil
}

// MineFilter computes the predicate for an uploader's own items regardless of
// state, newest first.
func MineFilter(viewer Viewer, q dto.ContentListQuery) (models.ContentFilter, error) {
	filter := models.ContentFilter{
		CreatedBy: viewer.UserID,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Category != "" {
		category := models.ContentCategory(q.Category)
		if !category.Valid() {
			return models.ContentFilter{}, appErrors.Clone(appErrors.ErrValidation, "unknown content category")
		}
		filter.Category = category
	}
	return filter, nil
}

// CanView reports whether the viewer may read a single item.
func CanView(viewer Viewer, item *models.ContentItem, now time.Time) bool {
	if viewer.Role == models.RoleAdmin {
		return true
	}
	if item.DepartmentID != viewer.DepartmentID || item.DivisionID != viewer.DivisionID {
		return false
	}
	if viewer.Role == models.RoleCR {
		return true
	}
	if item.CreatedBy == viewer.UserID {
		return true
	}
	// Students only see their own semester or unscoped items, and never the archive
	// of other uploaders through the direct-get path.
	if item.Semester != nil && *item.Semester != viewer.Semester {
		return false
	}
	return true
}

// CanManage reports whether the viewer may pin or unpin an item: admins
// always, verified CRs within their own department+division only.
func CanManage(viewer Viewer, item *models.ContentItem) bool {
	switch viewer.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCR:
		return item.DepartmentID == viewer.DepartmentID && item.DivisionID == viewer.DivisionID
	}
	return false
}

// CanEdit reports whether the viewer may update an item. Edits are reserved
// for the uploader; a peer CR in the same division may not touch them.
func CanEdit(viewer Viewer, item *models.ContentItem) bool {
	return viewer.UserID != "" && viewer.UserID == item.CreatedBy
}

// CanDelete reports whether the viewer may delete an item: the uploader, or
// an admin removing anyone's content.
func CanDelete(viewer Viewer, item *models.ContentItem) bool {
	if viewer.Role == models.RoleAdmin {
		return true
	}
	return viewer.UserID != "" && viewer.UserID == item.CreatedBy
}
