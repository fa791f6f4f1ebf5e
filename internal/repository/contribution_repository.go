package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/labhub-api/internal/models"
)

const contributionColumns = `id, title, description, type, submitted_by, lab_from, status, files, num_files, created_at`

// ContributionRepository persists contribution request metadata.
type ContributionRepository struct {
	db *sqlx.DB
}

// NewContributionRepository constructs the repository.
func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// GetByID retrieves one request scoped to its owning lab.
func (r *ContributionRepository) GetByID(ctx context.Context, id, labID string) (*models.ContributionRequest, error) {
	query := `SELECT ` + contributionColumns + ` FROM contribution_requests WHERE id = $1 AND lab_from = $2`
	var request models.ContributionRequest
	if err := r.db.GetContext(ctx, &request, query, id, labID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get contribution request: %w", err)
	}
	return &request, nil
}

// ListByLab returns a lab's requests, newest first, with the total count.
func (r *ContributionRepository) ListByLab(ctx context.Context, filter models.ContributionFilter) ([]models.ContributionRequest, int, error) {
	conditions := []string{"lab_from = $1"}
	args := []interface{}{filter.LabID}

	if len(filter.Status) > 0 {
		placeholders := make([]string, 0, len(filter.Status))
		for _, status := range filter.Status {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM contribution_requests` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contribution requests: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := `SELECT ` + contributionColumns + ` FROM contribution_requests` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var records []models.ContributionRequest
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contribution requests: %w", err)
	}
	return records, total, nil
}

// MarkAccepted flips a pending request to accepted. The WHERE guard on status
// and lab is the serialization point for concurrent review actions; zero
// affected rows means another call already resolved the request.
func (r *ContributionRepository) MarkAccepted(ctx context.Context, id, labID string) error {
	const query = `UPDATE contribution_requests SET status = 'accepted'
	WHERE id = $1 AND lab_from = $2 AND status = 'pending'`
	return r.guardedUpdate(ctx, query, id, labID)
}

// MarkRejected flips a pending request to rejected and clears its file list.
// Same guard semantics as MarkAccepted.
func (r *ContributionRepository) MarkRejected(ctx context.Context, id, labID string) error {
	const query = `UPDATE contribution_requests SET status = 'rejected', files = '[]', num_files = 0
	WHERE id = $1 AND lab_from = $2 AND status = 'pending'`
	return r.guardedUpdate(ctx, query, id, labID)
}

// UpdateFiles persists rewritten file descriptors after a migration.
func (r *ContributionRepository) UpdateFiles(ctx context.Context, id string, files models.FileDescriptors) error {
	const query = `UPDATE contribution_requests SET files = $2, num_files = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, files, len(files)); err != nil {
		return fmt.Errorf("update contribution files: %w", err)
	}
	return nil
}

func (r *ContributionRepository) guardedUpdate(ctx context.Context, query, id, labID string) error {
	res, err := r.db.ExecContext(ctx, query, id, labID)
	if err != nil {
		return fmt.Errorf("update contribution status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check contribution update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
