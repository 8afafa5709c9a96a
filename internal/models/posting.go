package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PostingKind string

const (
	PostingKindJob      PostingKind = "job"
	PostingKindContract PostingKind = "contract"
)

type PostingStatus string

const (
	PostingStatusOpen   PostingStatus = "open"
	PostingStatusClosed PostingStatus = "closed"
)

// BudgetType qualifies a contract budget: a fixed total or a negotiable
// ceiling. Jobs carry a daily wage instead.
type BudgetType string

const (
	BudgetTypeFixed      BudgetType = "fixed"
	BudgetTypeNegotiable BudgetType = "negotiable"
)

// Posting is a homeowner's request for work: a Job (daily-wage labour)
// or a Contract (budgeted project). SubmissionCount is the authoritative
// number of submissions attached to the posting; it is maintained inside
// the same transaction that inserts a Submission and is never recomputed
// by scanning.
//
// Status graph: open ──(close)──► closed. Closed is terminal.
type Posting struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Kind            PostingKind     `gorm:"size:20;not null;index" json:"kind"`
	OwnerID         uint            `gorm:"not null;index" json:"owner_id"`
	Title           string          `gorm:"size:500;not null" json:"title"`
	Category        string          `gorm:"size:100;not null;index" json:"category"`
	Location        string          `gorm:"size:255" json:"location"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	DailyWage       decimal.Decimal `gorm:"type:decimal(12,2)" json:"daily_wage"`
	Budget          decimal.Decimal `gorm:"type:decimal(14,2)" json:"budget"`
	BudgetType      BudgetType      `gorm:"size:20" json:"budget_type,omitempty"`
	Status          PostingStatus   `gorm:"size:20;not null;default:open;index" json:"status"`
	SubmissionCount int             `gorm:"not null;default:0" json:"submission_count"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Posting model
func (Posting) TableName() string {
	return "postings"
}

// CreatePostingRequest represents a request to publish a job or contract
type CreatePostingRequest struct {
	Kind        string          `json:"kind" binding:"required,oneof=job contract"`
	Title       string          `json:"title" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Location    string          `json:"location"`
	Description string          `json:"description" binding:"required"`
	DailyWage   decimal.Decimal `json:"daily_wage"`
	Budget      decimal.Decimal `json:"budget"`
	BudgetType  string          `json:"budget_type"`
}

// DefaultFeedLimit is the page size the feed serves when the client
// does not ask for one. The cached front page is keyed to this size.
const DefaultFeedLimit = 50

// PostingFilter narrows the open-postings feed. Query is a substring
// match over title, category and location.
type PostingFilter struct {
	Query    string
	Kind     string
	Category string
	Limit    int
	Offset   int
}
