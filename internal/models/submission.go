package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Submission is a worker's Application against a Job or a contractor's
// Bid against a Contract. ActorName and ActorPhoto are denormalized
// snapshots taken at submission time, display-only and never re-synced
// with the actor's live profile.
//
// The composite unique index on (posting_id, actor_id) is the backstop
// for the at-most-one-submission-per-actor invariant; the engine checks
// inside the submit transaction first so a duplicate normally never
// reaches the constraint.
type Submission struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PostingID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_posting_actor;index" json:"posting_id"`
	ActorID    uint             `gorm:"not null;uniqueIndex:idx_posting_actor;index" json:"actor_id"`
	ActorName  string           `gorm:"size:255" json:"actor_name"`
	ActorPhoto string           `gorm:"size:500" json:"actor_photo"`
	Amount     decimal.Decimal  `gorm:"type:decimal(14,2)" json:"amount"`
	Proposal   string           `gorm:"type:text" json:"proposal"`
	Status     SubmissionStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt  time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Submission model
func (Submission) TableName() string {
	return "submissions"
}

// SubmitRequest represents a request to apply to a job or bid on a
// contract. Amount and Proposal are meaningful for bids only.
type SubmitRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Proposal string          `json:"proposal"`
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// DecideRequest carries the owner's verdict on a pending submission.
type DecideRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
}

// ActorSubmission is a submission joined at read time with a snapshot of
// its posting for the actor's dashboard. When the posting is no longer
// readable the join fields stay empty instead of failing the list.
type ActorSubmission struct {
	Submission      Submission    `json:"submission"`
	PostingTitle    string        `json:"posting_title,omitempty"`
	PostingLocation string        `json:"posting_location,omitempty"`
	PostingStatus   PostingStatus `json:"posting_status,omitempty"`
}
