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

type activityService interface {
	List(ctx context.Context, actor *models.JWTClaims, labID string, query dto.ActivityQuery) ([]models.ActivityLog, *models.Pagination, error)
	Export(ctx context.Context, actor *models.JWTClaims, labID, format string) (*service.ExportResult, error)
}

// ActivityHandler exposes a lab's review activity trail.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service activityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// List godoc
// @Summary List a lab's activity entries
// @Tags Activity
// @Produce json
// @Param labId path string true "Lab ID"
// @Param action query string false "Filter by action"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /labs/{labId}/activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ActivityQuery{
		Action: strings.TrimSpace(c.Query("action")),
	}
	query.Page, _ = strconv.Atoi(c.Query("page"))
	query.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	entries, pagination, err := h.service.List(c.Request.Context(), claims, c.Param("labId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Export a lab's activity trail
// @Tags Activity
// @Produce json
// @Param labId path string true "Lab ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /labs/{labId}/activity/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	result, err := h.service.Export(c.Request.Context(), claims, c.Param("labId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
