package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/labhub-api/internal/dto"
	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/pkg/blob"
	appErrors "github.com/noah-isme/labhub-api/pkg/errors"
	"github.com/noah-isme/labhub-api/pkg/jobs"
	"github.com/noah-isme/labhub-api/pkg/storage"
)

type contributionStore interface {
	GetByID(ctx context.Context, id, labID string) (*models.ContributionRequest, error)
	ListByLab(ctx context.Context, filter models.ContributionFilter) ([]models.ContributionRequest, int, error)
	MarkAccepted(ctx context.Context, id, labID string) error
	MarkRejected(ctx context.Context, id, labID string) error
	UpdateFiles(ctx context.Context, id string, files models.FileDescriptors) error
}

type activityStore interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

type fileMigrator interface {
	MigrateFiles(ctx context.Context, requestID, labID string, files []models.FileDescriptor) ([]models.FileDescriptor, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cleanupEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ContributionService drives a contribution request through its review state
// machine: pending to accepted or rejected, both terminal. The conditional
// status update in the repository is the single serialization point; only the
// caller whose update lands owns the request's intake objects afterwards.
type ContributionService struct {
	repo      contributionStore
	activity  activityStore
	migrator  fileMigrator
	store     blob.Store
	cache     listCache
	cleanup   cleanupEnqueuer
	signer     *storage.SignedURLSigner
	metrics    *MetricsService
	logger     *zap.Logger
	validator  *validator.Validate
	cacheTTL   time.Duration
	linkPrefix string
}

// ContributionServiceOption configures the service.
type ContributionServiceOption func(*ContributionService)

// WithListCache enables caching of list responses.
func WithListCache(cache listCache, ttl time.Duration) ContributionServiceOption {
	return func(s *ContributionService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCleanupQueue wires the deferred intake cleanup queue used on reject.
func WithCleanupQueue(queue cleanupEnqueuer) ContributionServiceOption {
	return func(s *ContributionService) {
		s.cleanup = queue
	}
}

// WithDownloadSigner enables signed material download links.
func WithDownloadSigner(signer *storage.SignedURLSigner) ContributionServiceOption {
	return func(s *ContributionService) {
		s.signer = signer
	}
}

// WithLinkPrefix sets the route prefix material download links are minted
// under, so links resolve against the mounted API group.
func WithLinkPrefix(prefix string) ContributionServiceOption {
	return func(s *ContributionService) {
		s.linkPrefix = strings.TrimRight(prefix, "/")
	}
}

// WithWorkflowMetrics attaches workflow counters.
func WithWorkflowMetrics(m *MetricsService) ContributionServiceOption {
	return func(s *ContributionService) {
		s.metrics = m
	}
}

// NewContributionService constructs the service with defaults.
func NewContributionService(repo contributionStore, activity activityStore, migrator fileMigrator, store blob.Store, logger *zap.Logger, opts ...ContributionServiceOption) *ContributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ContributionService{
		repo:      repo,
		activity:  activity,
		migrator:  migrator,
		store:     store,
		logger:    logger,
		validator: validator.New(),
		cacheTTL:  time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// AcceptRequest promotes a pending request: commits the status transition,
// migrates its files into the materials bucket, persists the rewritten
// descriptors, and records the activity entry. A failure after the status
// committed leaves the request accepted with its stored file list not yet
// finalized; that degraded state is returned to the caller, never masked,
// and RetryMigration resumes it safely.
func (s *ContributionService) AcceptRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string, req dto.ReviewActionRequest) (*dto.AcceptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	request, err := s.authorize(ctx, requestID, actor, labID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ContributionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("request already %s", request.Status))
	}

	if err := s.repo.MarkAccepted(ctx, requestID, labID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyResolved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit accept transition")
	}
	s.metrics.IncAccepted()
	s.invalidateListCache(ctx, labID)
	request.Status = models.ContributionStatusAccepted

	migrated, err := s.finalizeMigration(ctx, request, actor.UserID, req.Note)
	if err != nil {
		return nil, err
	}
	request.Files = migrated
	request.NumFiles = len(migrated)

	return &dto.AcceptResponse{
		Request:   request,
		Materials: s.materialLinks(labID, migrated),
	}, nil
}

// RetryMigration resumes a migration for a request already accepted but left
// with unfinalized file locations. Safe to call repeatedly.
func (s *ContributionService) RetryMigration(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*dto.AcceptResponse, error) {
	request, err := s.authorize(ctx, requestID, actor, labID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ContributionStatusAccepted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "migration retry requires an accepted request")
	}

	migrated, err := s.finalizeMigration(ctx, request, actor.UserID, "")
	if err != nil {
		return nil, err
	}
	request.Files = migrated
	request.NumFiles = len(migrated)

	return &dto.AcceptResponse{
		Request:   request,
		Materials: s.materialLinks(labID, migrated),
	}, nil
}

// RejectRequest discards a pending request: commits the status transition,
// then deletes the intake objects best-effort. Objects that resist deletion
// go to the cleanup queue; rejected content has no promotion-integrity
// requirement, so partial deletion never fails the rejection.
func (s *ContributionService) RejectRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string, req dto.ReviewActionRequest) (*dto.RejectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	request, err := s.authorize(ctx, requestID, actor, labID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ContributionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("request already %s", request.Status))
	}

	if err := s.repo.MarkRejected(ctx, requestID, labID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyResolved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reject transition")
	}
	s.metrics.IncRejected()
	s.invalidateListCache(ctx, labID)

	for _, file := range request.Files {
		if err := s.store.Delete(ctx, file.Bucket, file.StorageKey); err != nil {
			s.logger.Warn("intake object not deleted on reject",
				zap.String("request_id", requestID),
				zap.String("bucket", file.Bucket),
				zap.String("key", file.StorageKey),
				zap.Error(err),
			)
			s.enqueueCleanup(requestID, file)
		}
	}

	if err := s.recordActivity(ctx, request, actor.UserID, models.ActivityRejectedContribution, req.Note); err != nil {
		return nil, err
	}

	request.Status = models.ContributionStatusRejected
	request.Files = models.FileDescriptors{}
	request.NumFiles = 0
	return &dto.RejectResponse{Request: request}, nil
}

// ListRequests returns a lab's contribution requests.
func (s *ContributionService) ListRequests(ctx context.Context, actor *models.JWTClaims, labID string, query dto.ContributionQuery) ([]models.ContributionRequest, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !actor.HasLab(labID) {
		return nil, nil, appErrors.ErrForbidden
	}

	type cachedList struct {
		Requests   []models.ContributionRequest `json:"requests"`
		Pagination models.Pagination            `json:"pagination"`
	}

	cacheKey := s.listCacheKey(labID, query)
	if s.cache != nil {
		var cached cachedList
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached.Requests, &cached.Pagination, nil
		}
	}

	filter := models.ContributionFilter{
		LabID:    labID,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	requests, total, err := s.repo.ListByLab(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contribution requests")
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pagination := &models.Pagination{
		Page:       page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	if pagination.PageSize <= 0 {
		pagination.PageSize = 50
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cachedList{Requests: requests, Pagination: *pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache contribution list", zap.Error(err))
		}
	}
	return requests, pagination, nil
}

// GetRequest returns one request scoped to the lab.
func (s *ContributionService) GetRequest(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*models.ContributionRequest, error) {
	return s.authorize(ctx, requestID, actor, labID)
}

// MaterialDownload holds a resolved material object ready to stream.
type MaterialDownload struct {
	Filename string
	Data     []byte
}

// ResolveDownload validates a signed token and loads the referenced material.
func (s *ContributionService) ResolveDownload(ctx context.Context, labID, token string) (*MaterialDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "downloads not configured")
	}
	tokenLab, objectKey, _, err := s.signer.Parse(token, false)
	if err != nil || tokenLab != labID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	data, err := s.store.Get(ctx, blob.BucketMaterials, objectKey)
	if err != nil {
		if blob.IsNotFound(err) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read material")
	}
	name := objectKey
	if idx := strings.LastIndex(objectKey, "/"); idx >= 0 {
		name = objectKey[idx+1:]
	}
	return &MaterialDownload{Filename: name, Data: data}, nil
}

func (s *ContributionService) authorize(ctx context.Context, requestID string, actor *models.JWTClaims, labID string) (*models.ContributionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.HasLab(labID) {
		return nil, appErrors.ErrForbidden
	}
	request, err := s.repo.GetByID(ctx, requestID, labID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contribution request")
	}
	return request, nil
}

// finalizeMigration runs after the accept transition committed. Errors from
// here on leave the request in the visible degraded state.
func (s *ContributionService) finalizeMigration(ctx context.Context, request *models.ContributionRequest, actorID, note string) (models.FileDescriptors, error) {
	migrated, err := s.migrator.MigrateFiles(ctx, request.ID, request.LabFrom, request.Files)
	if err != nil {
		failure := dto.TransferFailure{
			RequestID: request.ID,
			Migrated:  migrated,
			Reason:    err.Error(),
		}
		s.logger.Error("accept left request with unfinalized files",
			zap.String("request_id", request.ID),
			zap.String("lab_id", request.LabFrom),
			zap.Int("migrated", len(migrated)),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrTransferFailed.Code, appErrors.ErrTransferFailed.Status, appErrors.ErrTransferFailed.Message).WithDetails(failure)
	}

	if err := s.repo.UpdateFiles(ctx, request.ID, migrated); err != nil {
		// Files moved, record not updated. The worst inconsistency this
		// subsystem can produce; log loud and hand it back for manual
		// reconciliation, re-running the migration is safe.
		s.logger.Error("file locations not persisted after migration",
			zap.String("request_id", request.ID),
			zap.String("lab_id", request.LabFrom),
			zap.Error(err),
		)
		failure := dto.TransferFailure{
			RequestID: request.ID,
			Migrated:  migrated,
			Reason:    "migration succeeded but metadata update failed",
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, appErrors.ErrPersistenceFailed.Message).WithDetails(failure)
	}

	if err := s.recordActivity(ctx, request, actorID, models.ActivityAcceptedContribution, note); err != nil {
		return nil, err
	}
	return migrated, nil
}

func (s *ContributionService) recordActivity(ctx context.Context, request *models.ContributionRequest, actorID, action, note string) error {
	details, _ := json.Marshal(models.ActivityDetails{
		RequestID:     request.ID,
		Title:         request.Title,
		ContributorID: request.SubmittedBy,
		Note:          note,
	})
	entry := &models.ActivityLog{
		LabID:   request.LabFrom,
		ActorID: actorID,
		Action:  action,
		Details: details,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Error("activity record not persisted",
			zap.String("request_id", request.ID),
			zap.String("action", action),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "activity record failed")
	}
	return nil
}

func (s *ContributionService) materialLinks(labID string, files models.FileDescriptors) []dto.MaterialLink {
	if s.signer == nil {
		return nil
	}
	links := make([]dto.MaterialLink, 0, len(files))
	for _, file := range files {
		token, expiresAt, err := s.signer.Generate(labID, file.StorageKey)
		if err != nil {
			s.logger.Warn("failed to sign material link", zap.String("key", file.StorageKey), zap.Error(err))
			continue
		}
		links = append(links, dto.MaterialLink{
			Name:      file.Name,
			URL:       fmt.Sprintf("%s/labs/%s/materials/%s", s.linkPrefix, labID, token),
			ExpiresAt: expiresAt,
		})
	}
	return links
}

func (s *ContributionService) enqueueCleanup(requestID string, file models.FileDescriptor) {
	if s.cleanup == nil {
		return
	}
	job := jobs.Job{
		ID:   fmt.Sprintf("%s/%s", requestID, file.StorageKey),
		Type: CleanupJobType,
		Payload: CleanupPayload{
			Bucket: file.Bucket,
			Key:    file.StorageKey,
		},
	}
	if err := s.cleanup.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue intake cleanup",
			zap.String("request_id", requestID),
			zap.String("key", file.StorageKey),
			zap.Error(err),
		)
	}
}

func (s *ContributionService) listCacheKey(labID string, query dto.ContributionQuery) string {
	statuses := make([]string, 0, len(query.Status))
	for _, status := range query.Status {
		statuses = append(statuses, string(status))
	}
	return fmt.Sprintf("contrib:list:%s:%s:%d:%d", labID, strings.Join(statuses, ","), query.Page, query.PageSize)
}

func (s *ContributionService) invalidateListCache(ctx context.Context, labID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("contrib:list:%s:*", labID)); err != nil {
		s.logger.Warn("failed to invalidate contribution list cache", zap.String("lab_id", labID), zap.Error(err))
	}
}
