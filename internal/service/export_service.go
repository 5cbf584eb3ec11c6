package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/export"
)

type exportContentLister interface {
	List(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered inventory export.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the content inventory as CSV or PDF for admins. A
// copy of each export is kept on disk and pruned after the retention window.
type ExportService struct {
	contents  exportContentLister
	storage   exportStorage
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	resultTTL time.Duration
}

// NewExportService constructs an ExportService.
func NewExportService(contents exportContentLister, storage exportStorage, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		contents:  contents,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		resultTTL: 24 * time.Hour,
	}
}

// Generate builds the inventory dataset and renders it in the requested format.
func (s *ExportService) Generate(ctx context.Context, q dto.ExportQuery) (*ExportResult, error) {
	filter := models.ContentFilter{
		DepartmentID: q.DepartmentID,
		DivisionID:   q.DivisionID,
		Limit:        200,
	}
	if q.Category != "" {
		category := models.ContentCategory(q.Category)
		if !category.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown content category")
		}
		filter.Category = category
	}

	items, err := s.contents.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}

	dataset := buildInventoryDataset(items, time.Now().UTC())
	format := strings.ToLower(q.Format)
	if format == "" {
		format = "csv"
	}

	var payload []byte
	var contentType string
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Content Inventory")
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("content_inventory_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	if s.storage != nil {
		if _, err := s.storage.Save(filename, payload); err != nil {
			s.logger.Warn("failed to keep export copy", zap.String("filename", filename), zap.Error(err))
		}
	}

	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

// Cleanup prunes stored exports older than the retention window.
func (s *ExportService) Cleanup() {
	if s.storage == nil {
		return
	}
	removed, err := s.storage.CleanupOlderThan(s.resultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("pruned old exports", zap.Int("count", len(removed)))
	}
}

func buildInventoryDataset(items []models.ContentItem, now time.Time) export.Dataset {
	headers := []string{"ID", "Title", "Category", "Department", "Division", "Semester", "State", "Pinned", "Created At"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		semester := ""
		if item.Semester != nil {
			semester = *item.Semester
		}
		rows = append(rows, map[string]string{
			"ID":         item.ID,
			"Title":      item.Title,
			"Category":   string(item.Category),
			"Department": item.DepartmentID,
			"Division":   item.DivisionID,
			"Semester":   semester,
			"State":      string(item.StateAt(now)),
			"Pinned":     fmt.Sprintf("%t", item.IsPinned),
			"Created At": item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
