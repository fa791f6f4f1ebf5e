package dto

import (
	"time"

	"github.com/noah-isme/labhub-api/internal/models"
)

// ReviewActionRequest carries the optional reviewer note on accept/reject.
type ReviewActionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// ContributionQuery mirrors supported listing filters.
type ContributionQuery struct {
	Status   []models.ContributionStatus
	Page     int
	PageSize int
}

// MaterialLink is a signed download URL for a promoted file.
type MaterialLink struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AcceptResponse reports the promoted request and download links for its files.
type AcceptResponse struct {
	Request   *models.ContributionRequest `json:"request"`
	Materials []MaterialLink              `json:"materials,omitempty"`
}

// RejectResponse reports the rejected request.
type RejectResponse struct {
	Request *models.ContributionRequest `json:"request"`
}

// TransferFailure describes a degraded accept: the status committed but one
// or more files did not complete migration. Migrated lists the files whose
// promotion is confirmed; re-running the accept is safe.
type TransferFailure struct {
	RequestID string                  `json:"request_id"`
	Migrated  []models.FileDescriptor `json:"migrated"`
	Reason    string                  `json:"reason"`
}
