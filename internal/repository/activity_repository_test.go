package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labhub-api/internal/models"
)

func newActivityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newActivityRepoMock(t)
	defer cleanup()

	repo := NewActivityRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ActivityLog{
		LabID:   "lab-1",
		ActorID: "admin-1",
		Action:  models.ActivityAcceptedContribution,
		Details: []byte(`{"request_id":"req-1","title":"Dataset v2","contributor_id":"user-1"}`),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListByLab(t *testing.T) {
	db, mock, cleanup := newActivityRepoMock(t)
	defer cleanup()

	repo := NewActivityRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activity_logs")).
		WithArgs("lab-1", "accepted_contribution").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{"id", "lab_id", "actor_id", "action", "details", "created_at"}).
		AddRow("act-1", "lab-1", "admin-1", "accepted_contribution", []byte(`{"request_id":"req-1"}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lab_id, actor_id, action, details, created_at FROM activity_logs")).
		WithArgs("lab-1", "accepted_contribution").
		WillReturnRows(rows)

	entries, total, err := repo.ListByLab(context.Background(), "lab-1", "accepted_contribution", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, "act-1", entries[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
