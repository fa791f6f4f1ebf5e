package models

import (
	"time"
)

// ContributionStatus tracks the review state of a contribution request.
// Transitions are pending -> accepted or pending -> rejected; both targets
// are terminal.
type ContributionStatus string

const (
	ContributionStatusPending  ContributionStatus = "pending"
	ContributionStatusAccepted ContributionStatus = "accepted"
	ContributionStatusRejected ContributionStatus = "rejected"
)

// FileDescriptor names one uploaded object and its current location.
// Bucket is intake while the request is pending and materials once the
// object has been promoted. Name, type, and size never change.
type FileDescriptor struct {
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
	Bucket     string `json:"bucket"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
}

// ContributionRequest is a submitted bundle of files awaiting lab review.
type ContributionRequest struct {
	ID          string             `db:"id" json:"id"`
	Title       string             `db:"title" json:"title"`
	Description string             `db:"description" json:"description"`
	Type        string             `db:"type" json:"type"`
	SubmittedBy string             `db:"submitted_by" json:"submitted_by"`
	LabFrom     string             `db:"lab_from" json:"lab_from"`
	Status      ContributionStatus `db:"status" json:"status"`
	Files       FileDescriptors    `db:"files" json:"files"`
	NumFiles    int                `db:"num_files" json:"num_files"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}

// ContributionFilter narrows listing queries.
type ContributionFilter struct {
	LabID    string
	Status   []ContributionStatus
	Page     int
	PageSize int
}
