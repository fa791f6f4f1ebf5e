package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/labhub-api/internal/dto"
	"github.com/noah-isme/labhub-api/internal/models"
	appErrors "github.com/noah-isme/labhub-api/pkg/errors"
	"github.com/noah-isme/labhub-api/pkg/export"
)

const exportPageSize = 200

type activityLister interface {
	ListByLab(ctx context.Context, labID, action string, page, pageSize int) ([]models.ActivityLog, int, error)
}

// ActivityService exposes a lab's review activity trail.
type ActivityService struct {
	repo   activityLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(repo activityLister, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// List returns activity entries for a lab, newest first.
func (s *ActivityService) List(ctx context.Context, actor *models.JWTClaims, labID string, query dto.ActivityQuery) ([]models.ActivityLog, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !actor.HasLab(labID) {
		return nil, nil, appErrors.ErrForbidden
	}
	entries, total, err := s.repo.ListByLab(ctx, labID, query.Action, query.Page, query.PageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ExportResult is a rendered activity export ready to send.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the lab's recent activity as CSV or PDF.
func (s *ActivityService) Export(ctx context.Context, actor *models.JWTClaims, labID, format string) (*ExportResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.HasLab(labID) {
		return nil, appErrors.ErrForbidden
	}

	entries, _, err := s.repo.ListByLab(ctx, labID, "", 1, exportPageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Time", "Action", "Actor", "Request", "Title", "Contributor"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		var details models.ActivityDetails
		if len(entry.Details) > 0 {
			_ = json.Unmarshal(entry.Details, &details)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Time":        entry.CreatedAt.UTC().Format(time.RFC3339),
			"Action":      entry.Action,
			"Actor":       entry.ActorID,
			"Request":     details.RequestID,
			"Title":       details.Title,
			"Contributor": details.ContributorID,
		})
	}

	timestamp := time.Now().UTC().Format("20060102T150405")
	switch format {
	case dto.ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("activity-%s-%s.csv", labID, timestamp),
		}, nil
	case dto.ExportFormatPDF:
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Lab %s activity", labID))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("activity-%s-%s.pdf", labID, timestamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
