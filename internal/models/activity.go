package models

import "time"

// Activity actions recorded on terminal contribution transitions.
const (
	ActivityAcceptedContribution = "accepted_contribution"
	ActivityRejectedContribution = "rejected_contribution"
)

// ActivityDetails captures what the action touched.
type ActivityDetails struct {
	RequestID     string `json:"request_id"`
	Title         string `json:"title"`
	ContributorID string `json:"contributor_id"`
	Note          string `json:"note,omitempty"`
}

// ActivityLog is one row of a lab's activity trail.
type ActivityLog struct {
	ID        string    `db:"id" json:"id"`
	LabID     string    `db:"lab_id" json:"lab_id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	Action    string    `db:"action" json:"action"`
	Details   []byte    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
