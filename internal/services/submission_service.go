package services

import (
	"context"
	"errors"
	"log"
	"time"

	"karigar-market/internal/models"
	"karigar-market/internal/repository"

	"github.com/google/uuid"
)

// SubmissionService handles applications against jobs and bids against
// contracts. All writes that touch a posting's submission counter run
// in one transaction so the counter never drifts from the true number
// of submissions, no matter how many submitters race.
type SubmissionService struct {
	repo *repository.Repository
}

func NewSubmissionService(repo *repository.Repository) *SubmissionService {
	return &SubmissionService{repo: repo}
}

// Submit files the actor's application or bid against a posting.
//
// The open check, the duplicate check, the insert and the counter
// increment all run in one transaction. Two concurrent submits by the
// same actor land on the (posting_id, actor_id) unique index: exactly
// one commits, the other surfaces as ErrDuplicateSubmission. A retried
// submit after a dropped response takes the same path instead of
// double-counting, which makes Submit safe to retry.
func (s *SubmissionService) Submit(ctx context.Context, postingID uuid.UUID, actorID uint, req *models.SubmitRequest) (*models.Submission, error) {
	submission := &models.Submission{
		ID:        uuid.New(),
		PostingID: postingID,
		ActorID:   actorID,
		Amount:    req.Amount,
		Proposal:  req.Proposal,
		Status:    models.SubmissionStatusPending,
		CreatedAt: time.Now(),
	}

	// Snapshot the actor's display fields up front. Best-effort: a
	// missing profile leaves the snapshot empty but never blocks the
	// submission.
	if actor, err := s.repo.GetUserByID(ctx, actorID); err == nil {
		submission.ActorName = actor.Name
		submission.ActorPhoto = actor.PhotoURL
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		log.Printf("profile snapshot for user %d failed: %v", actorID, err)
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		posting, err := tx.GetPostingByID(ctx, postingID)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return ErrNotFound
			}
			return unavailable(err)
		}
		if posting.Status != models.PostingStatusOpen {
			return ErrPostingClosed
		}

		exists, err := tx.HasSubmission(ctx, postingID, actorID)
		if err != nil {
			return unavailable(err)
		}
		if exists {
			return ErrDuplicateSubmission
		}

		if err := tx.CreateSubmission(ctx, submission); err != nil {
			if repository.IsDuplicateKeyError(err) {
				return ErrDuplicateSubmission
			}
			return unavailable(err)
		}

		// The increment re-checks the status, so a close that commits
		// after the read above rolls this submission back with it.
		rows, err := tx.IncrementSubmissionCount(ctx, postingID)
		if err != nil {
			return unavailable(err)
		}
		if rows == 0 {
			return ErrPostingClosed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Submission %s: user %d -> posting %s", submission.ID, actorID, postingID)
	return submission, nil
}

// ListSubmissionsForPosting returns a posting's submissions oldest
// first. Owner-only: anyone else gets a generic permission denial.
func (s *SubmissionService) ListSubmissionsForPosting(ctx context.Context, postingID uuid.UUID, requesterID uint) ([]models.Submission, error) {
	posting, err := s.repo.GetPostingByID(ctx, postingID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}

	if posting.OwnerID != requesterID {
		return nil, ErrPermissionDenied
	}

	submissions, err := s.repo.ListSubmissionsByPosting(ctx, postingID)
	if err != nil {
		return nil, unavailable(err)
	}
	return submissions, nil
}

// ListSubmissionsForActor returns everything the actor has submitted,
// joined at read time with a snapshot of each posting for display. A
// posting that cannot be loaded degrades to empty join fields instead
// of failing the whole list.
func (s *SubmissionService) ListSubmissionsForActor(ctx context.Context, actorID uint) ([]models.ActorSubmission, error) {
	submissions, err := s.repo.ListSubmissionsByActor(ctx, actorID)
	if err != nil {
		return nil, unavailable(err)
	}

	result := make([]models.ActorSubmission, 0, len(submissions))
	for _, sub := range submissions {
		entry := models.ActorSubmission{Submission: sub}
		if posting, err := s.repo.GetPostingByID(ctx, sub.PostingID); err == nil {
			entry.PostingTitle = posting.Title
			entry.PostingLocation = posting.Location
			entry.PostingStatus = posting.Status
		}
		result = append(result, entry)
	}
	return result, nil
}

// Decide applies the owner's accept/reject verdict to a pending
// submission. One transition per submission: a second decision of any
// kind fails with ErrInvalidState. Accepting does not reject the
// competing submissions or close the posting; the owner stays in
// charge of both.
func (s *SubmissionService) Decide(ctx context.Context, submissionID uuid.UUID, decision models.Decision, actorID uint) (*models.Submission, error) {
	var target models.SubmissionStatus
	switch decision {
	case models.DecisionAccept:
		target = models.SubmissionStatusAccepted
	case models.DecisionReject:
		target = models.SubmissionStatusRejected
	default:
		return nil, invalidField("decision", "must be accept or reject")
	}

	var submission *models.Submission
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		submission, err = tx.GetSubmissionByID(ctx, submissionID)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return ErrNotFound
			}
			return unavailable(err)
		}

		posting, err := tx.GetPostingByID(ctx, submission.PostingID)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				// Posting gone but submission present; nobody can
				// legitimately decide it.
				return ErrPermissionDenied
			}
			return unavailable(err)
		}
		if posting.OwnerID != actorID {
			return ErrPermissionDenied
		}

		if submission.Status != models.SubmissionStatusPending {
			return ErrInvalidState
		}

		rows, err := tx.UpdateSubmissionStatus(ctx, submissionID, models.SubmissionStatusPending, target)
		if err != nil {
			return unavailable(err)
		}
		if rows == 0 {
			// Lost the race with another decision.
			return ErrInvalidState
		}

		submission.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Submission %s %s by owner %d", submissionID, target, actorID)
	return submission, nil
}
