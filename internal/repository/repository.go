package repository

import (
	"context"
	"errors"
	"strings"

	"karigar-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRecordNotFound is re-exported so services do not depend on gorm
// error values directly.
var ErrRecordNotFound = gorm.ErrRecordNotFound

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside one database transaction, handing it a
// Repository bound to the transactional connection. All multi-record
// writes in the engine (submit, decide, send) go through here.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Postings

// CreatePosting inserts a new posting
func (r *Repository) CreatePosting(ctx context.Context, posting *models.Posting) error {
	return r.db.WithContext(ctx).Create(posting).Error
}

// GetPostingByID retrieves a posting by ID
func (r *Repository) GetPostingByID(ctx context.Context, postingID uuid.UUID) (*models.Posting, error) {
	var posting models.Posting
	err := r.db.WithContext(ctx).Where("id = ?", postingID).First(&posting).Error
	if err != nil {
		return nil, err
	}
	return &posting, nil
}

// ListOpenPostings retrieves open postings newest first, narrowed by the
// optional filter. The substring match runs in SQL so the feed stays
// restartable via limit/offset.
func (r *Repository) ListOpenPostings(ctx context.Context, filter models.PostingFilter) ([]models.Posting, error) {
	query := r.db.WithContext(ctx).Where("status = ?", models.PostingStatusOpen)

	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("title LIKE ? OR category LIKE ? OR location LIKE ?", pattern, pattern, pattern)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var postings []models.Posting
	if err := query.Order("created_at DESC").Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}

// ListPostingsByOwner retrieves every posting created by a homeowner,
// newest first.
func (r *Repository) ListPostingsByOwner(ctx context.Context, ownerID uint) ([]models.Posting, error) {
	var postings []models.Posting
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&postings).Error
	if err != nil {
		return nil, err
	}
	return postings, nil
}

// ClosePosting transitions a posting to closed. Returns the number of
// rows changed so the caller can distinguish a fresh close from an
// already-closed no-op.
func (r *Repository) ClosePosting(ctx context.Context, postingID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Posting{}).
		Where("id = ? AND status = ?", postingID, models.PostingStatusOpen).
		Update("status", models.PostingStatusClosed)
	return result.RowsAffected, result.Error
}

// IncrementSubmissionCount bumps the authoritative counter in place.
// Must run inside the same transaction that inserts the submission.
// The status guard re-checks that the posting is still open at write
// time; zero rows affected means a close committed since the earlier
// read and the caller must roll the insert back.
func (r *Repository) IncrementSubmissionCount(ctx context.Context, postingID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Posting{}).
		Where("id = ? AND status = ?", postingID, models.PostingStatusOpen).
		UpdateColumn("submission_count", gorm.Expr("submission_count + ?", 1))
	return result.RowsAffected, result.Error
}

// Submissions

// CreateSubmission inserts a new submission
func (r *Repository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// GetSubmissionByID retrieves a submission by ID
func (r *Repository) GetSubmissionByID(ctx context.Context, submissionID uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Where("id = ?", submissionID).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// HasSubmission reports whether the actor already has a submission
// against the posting.
func (r *Repository) HasSubmission(ctx context.Context, postingID uuid.UUID, actorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("posting_id = ? AND actor_id = ?", postingID, actorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListSubmissionsByPosting retrieves submissions for a posting in
// first-come-first-served order.
func (r *Repository) ListSubmissionsByPosting(ctx context.Context, postingID uuid.UUID) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("posting_id = ?", postingID).
		Order("created_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

// ListSubmissionsByActor retrieves every submission made by an actor,
// newest first.
func (r *Repository) ListSubmissionsByActor(ctx context.Context, actorID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpdateSubmissionStatus performs the single pending-to-terminal
// transition. The status guard in the WHERE clause makes the update a
// compare-and-set: zero rows affected means another decision got there
// first.
func (r *Repository) UpdateSubmissionStatus(ctx context.Context, submissionID uuid.UUID, from, to models.SubmissionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", submissionID, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// Conversations

// CreateMessage appends a message
func (r *Repository) CreateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListMessages retrieves a conversation's messages oldest first.
func (r *Repository) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// UpsertConversation creates the conversation record on first use and
// refreshes the denormalized summary on every later send.
func (r *Repository) UpsertConversation(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_message", "last_timestamp", "updated_at",
			}),
		}).
		Create(conversation).Error
}

// GetConversation retrieves a conversation by its derived ID
func (r *Repository) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", conversationID).First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListConversationsByUser retrieves every conversation the user takes
// part in, most recently active first.
func (r *Repository) ListConversationsByUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_timestamp DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// Users

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsDuplicateKeyError reports whether err came from a unique-constraint
// violation. gorm translates driver errors when TranslateError is on;
// the string checks cover dialects that predate the translation.
func IsDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
