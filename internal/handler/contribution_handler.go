package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/labhub-api/internal/dto"
	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/internal/service"
	appErrors "github.com/noah-isme/labhub-api/pkg/errors"
	"github.com/noah-isme/labhub-api/pkg/response"
)

type contributionService interface {
	ListRequests(ctx context.Context, actor *models.JWTClaims, labID string, query dto.ContributionQuery) ([]models.ContributionRequest, *models.Pagination, error)
	GetRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*models.ContributionRequest, error)
	AcceptRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string, req dto.ReviewActionRequest) (*dto.AcceptResponse, error)
	RejectRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string, req dto.ReviewActionRequest) (*dto.RejectResponse, error)
	RetryMigration(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*dto.AcceptResponse, error)
	ResolveDownload(ctx context.Context, labID, token string) (*service.MaterialDownload, error)
}

// ContributionHandler exposes the contribution review REST endpoints.
type ContributionHandler struct {
	service contributionService
}

// NewContributionHandler constructs the handler.
func NewContributionHandler(service contributionService) *ContributionHandler {
	return &ContributionHandler{service: service}
}

// List godoc
// @Summary List a lab's contribution requests
// @Tags Contributions
// @Produce json
// @Param labId path string true "Lab ID"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /labs/{labId}/contributions [get]
func (h *ContributionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := dto.ContributionQuery{}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.ContributionStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.ContributionStatus(part))
		}
		query.Status = statuses
	}
	query.Page, _ = strconv.Atoi(c.Query("page"))
	query.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	requests, pagination, err := h.service.ListRequests(c.Request.Context(), claims, c.Param("labId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get one contribution request
// @Tags Contributions
// @Produce json
// @Param labId path string true "Lab ID"
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /labs/{labId}/contributions/{id} [get]
func (h *ContributionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.GetRequest(c.Request.Context(), c.Param("id"), claims, c.Param("labId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Accept godoc
// @Summary Accept a pending contribution and promote its files
// @Tags Contributions
// @Accept json
// @Produce json
// @Param labId path string true "Lab ID"
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewActionRequest false "Optional reviewer note"
// @Success 200 {object} response.Envelope
// @Router /labs/{labId}/contributions/{id}/accept [post]
func (h *ContributionHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, ok := bindReviewAction(c)
	if !ok {
		return
	}
	result, err := h.service.AcceptRequest(c.Request.Context(), c.Param("id"), claims, c.Param("labId"), req)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrAlreadyResolved) {
			// Duplicate review click, nothing further happened. Not an error
			// from the caller's point of view.
			response.JSON(c, http.StatusOK, gin.H{"result": "already_resolved"}, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a pending contribution and discard its files
// @Tags Contributions
// @Accept json
// @Produce json
// @Param labId path string true "Lab ID"
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewActionRequest false "Optional reviewer note"
// @Success 200 {object} response.Envelope
// @Router /labs/{labId}/contributions/{id}/reject [post]
func (h *ContributionHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, ok := bindReviewAction(c)
	if !ok {
		return
	}
	result, err := h.service.RejectRequest(c.Request.Context(), c.Param("id"), claims, c.Param("labId"), req)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrAlreadyResolved) {
			response.JSON(c, http.StatusOK, gin.H{"result": "already_resolved"}, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RetryMigration godoc
// @Summary Re-run file migration for an accepted request left unfinalized
// @Tags Contributions
// @Produce json
// @Param labId path string true "Lab ID"
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /labs/{labId}/contributions/{id}/retry-migration [post]
func (h *ContributionHandler) RetryMigration(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.RetryMigration(c.Request.Context(), c.Param("id"), claims, c.Param("labId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadMaterial godoc
// @Summary Download a promoted material via a signed token
// @Tags Contributions
// @Produce octet-stream
// @Param labId path string true "Lab ID"
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /labs/{labId}/materials/{token} [get]
func (h *ContributionHandler) DownloadMaterial(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("labId"), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+download.Filename+"\"")
	c.Data(http.StatusOK, "application/octet-stream", download.Data)
}

func bindReviewAction(c *gin.Context) (dto.ReviewActionRequest, bool) {
	var req dto.ReviewActionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
			return req, false
		}
	}
	return req, true
}
