package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labhub-api/internal/dto"
	"github.com/noah-isme/labhub-api/internal/middleware"
	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/internal/service"
	appErrors "github.com/noah-isme/labhub-api/pkg/errors"
)

type contributionServiceMock struct {
	listResp     []models.ContributionRequest
	getResp      *models.ContributionRequest
	acceptResp   *dto.AcceptResponse
	acceptErr    error
	rejectResp   *dto.RejectResponse
	rejectErr    error
	retryResp    *dto.AcceptResponse
	retryErr     error
	downloadResp *service.MaterialDownload
	downloadErr  error

	acceptedNote string
}

func (m *contributionServiceMock) ListRequests(ctx context.Context, actor *models.JWTClaims, labID string, query dto.ContributionQuery) ([]models.ContributionRequest, *models.Pagination, error) {
	return m.listResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.listResp)}, nil
}

func (m *contributionServiceMock) GetRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*models.ContributionRequest, error) {
	if m.getResp == nil {
		return nil, appErrors.ErrNotFound
	}
	return m.getResp, nil
}

func (m *contributionServiceMock) AcceptRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string, req dto.ReviewActionRequest) (*dto.AcceptResponse, error) {
	m.acceptedNote = req.Note
	if m.acceptErr != nil {
		return nil, m.acceptErr
	}
	return m.acceptResp, nil
}

func (m *contributionServiceMock) RejectRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string, req dto.ReviewActionRequest) (*dto.RejectResponse, error) {
	if m.rejectErr != nil {
		return nil, m.rejectErr
	}
	return m.rejectResp, nil
}

func (m *contributionServiceMock) RetryMigration(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*dto.AcceptResponse, error) {
	if m.retryErr != nil {
		return nil, m.retryErr
	}
	return m.retryResp, nil
}

func (m *contributionServiceMock) ResolveDownload(ctx context.Context, labID, token string) (*service.MaterialDownload, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return m.downloadResp, nil
}

func reviewContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "labId", Value: "lab-1"}, {Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleLabAdmin, LabIDs: []string{"lab-1"}})
	return c, w
}

func TestContributionHandlerAccept(t *testing.T) {
	mock := &contributionServiceMock{
		acceptResp: &dto.AcceptResponse{
			Request: &models.ContributionRequest{ID: "req-1", Status: models.ContributionStatusAccepted},
		},
	}
	handler := NewContributionHandler(mock)
	body, _ := json.Marshal(dto.ReviewActionRequest{Note: "nice"})
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/accept", body)

	handler.Accept(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "nice", mock.acceptedNote)
	require.Contains(t, w.Body.String(), "accepted")
}

func TestContributionHandlerAcceptEmptyBody(t *testing.T) {
	mock := &contributionServiceMock{
		acceptResp: &dto.AcceptResponse{
			Request: &models.ContributionRequest{ID: "req-1", Status: models.ContributionStatusAccepted},
		},
	}
	handler := NewContributionHandler(mock)
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/accept", nil)

	handler.Accept(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, mock.acceptedNote)
}

func TestContributionHandlerAcceptAlreadyResolved(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{acceptErr: appErrors.ErrAlreadyResolved})
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/accept", nil)

	handler.Accept(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "already_resolved")
}

func TestContributionHandlerAcceptTransferFailed(t *testing.T) {
	failure := dto.TransferFailure{RequestID: "req-1", Reason: "source object missing"}
	handler := NewContributionHandler(&contributionServiceMock{
		acceptErr: appErrors.ErrTransferFailed.WithDetails(failure),
	})
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/accept", nil)

	handler.Accept(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "TRANSFER_FAILED")
	require.Contains(t, w.Body.String(), "source object missing")
}

func TestContributionHandlerAcceptUnauthenticated(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/labs/lab-1/contributions/req-1/accept", bytes.NewReader(nil))
	c.Request = req
	c.Params = gin.Params{{Key: "labId", Value: "lab-1"}, {Key: "id", Value: "req-1"}}

	handler.Accept(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContributionHandlerReject(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{
		rejectResp: &dto.RejectResponse{
			Request: &models.ContributionRequest{ID: "req-1", Status: models.ContributionStatusRejected},
		},
	})
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/reject", nil)

	handler.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "rejected")
}

func TestContributionHandlerRejectInvalidBody(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{})
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/reject", []byte(`not json`))

	handler.Reject(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContributionHandlerList(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{
		listResp: []models.ContributionRequest{{ID: "req-1", Status: models.ContributionStatusPending}},
	})
	c, w := reviewContext(t, http.MethodGet, "/labs/lab-1/contributions?status=pending", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "req-1")
}

func TestContributionHandlerGet(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{
		getResp: &models.ContributionRequest{ID: "req-1", Status: models.ContributionStatusPending},
	})
	c, w := reviewContext(t, http.MethodGet, "/labs/lab-1/contributions/req-1", nil)

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "req-1")
}

func TestContributionHandlerGetNotFound(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{})
	c, w := reviewContext(t, http.MethodGet, "/labs/lab-1/contributions/missing", nil)

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestContributionHandlerRetryMigration(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{
		retryResp: &dto.AcceptResponse{
			Request: &models.ContributionRequest{ID: "req-1", Status: models.ContributionStatusAccepted},
		},
	})
	c, w := reviewContext(t, http.MethodPost, "/labs/lab-1/contributions/req-1/retry-migration", nil)

	handler.RetryMigration(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestContributionHandlerDownloadMaterial(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{
		downloadResp: &service.MaterialDownload{Filename: "a.csv", Data: []byte("alpha")},
	})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/labs/lab-1/materials/token-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "labId", Value: "lab-1"}, {Key: "token", Value: "token-1"}}

	handler.DownloadMaterial(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alpha", w.Body.String())
	require.Contains(t, w.Header().Get("Content-Disposition"), "a.csv")
}

func TestContributionHandlerDownloadRouteUnderAPIPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContributionHandler(&contributionServiceMock{
		downloadResp: &service.MaterialDownload{Filename: "a.csv", Data: []byte("alpha")},
	})
	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/labs/:labId/materials/:token", handler.DownloadMaterial)

	// Same shape the accept response mints when the service carries the
	// route prefix.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/labs/lab-1/materials/token-1", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alpha", w.Body.String())
}

func TestContributionHandlerDownloadMaterialInvalidToken(t *testing.T) {
	handler := NewContributionHandler(&contributionServiceMock{
		downloadErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token"),
	})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/labs/lab-1/materials/bad", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "labId", Value: "lab-1"}, {Key: "token", Value: "bad"}}

	handler.DownloadMaterial(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
