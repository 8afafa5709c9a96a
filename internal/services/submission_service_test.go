package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"karigar-market/internal/models"
)

func TestSubmit_IncrementsCountAndRejectsDuplicate(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	worker := createTestUser(t, db, "ravi", models.RoleWorker)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	submission, err := submissions.Submit(ctx, job.ID, worker.ID, &models.SubmitRequest{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.Status != models.SubmissionStatusPending {
		t.Errorf("expected status pending, got %s", submission.Status)
	}

	reloaded, err := postings.GetPosting(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetPosting failed: %v", err)
	}
	if reloaded.SubmissionCount != 1 {
		t.Errorf("expected submission count 1, got %d", reloaded.SubmissionCount)
	}

	// Same worker again: rejected before it reaches the store
	if _, err := submissions.Submit(ctx, job.ID, worker.ID, &models.SubmitRequest{}); !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("expected ErrDuplicateSubmission, got %v", err)
	}

	reloaded, err = postings.GetPosting(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetPosting failed: %v", err)
	}
	if reloaded.SubmissionCount != 1 {
		t.Errorf("duplicate submit must not change the count, got %d", reloaded.SubmissionCount)
	}
}

func TestSubmit_ConcurrentDuplicateSingleWinner(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	worker := createTestUser(t, db, "ravi", models.RoleWorker)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := submissions.Submit(ctx, job.ID, worker.ID, &models.SubmitRequest{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateSubmission):
			duplicates++
		default:
			t.Errorf("unexpected error from concurrent submit: %v", err)
		}
	}
	if successes != 1 || duplicates != attempts-1 {
		t.Errorf("expected 1 success and %d duplicates, got %d and %d", attempts-1, successes, duplicates)
	}

	reloaded, err := postings.GetPosting(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetPosting failed: %v", err)
	}
	if reloaded.SubmissionCount != 1 {
		t.Errorf("expected submission count 1 after racing submits, got %d", reloaded.SubmissionCount)
	}

	var stored int64
	if err := db.Model(&models.Submission{}).Where("posting_id = ?", job.ID).Count(&stored).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if stored != 1 {
		t.Errorf("expected exactly 1 stored submission, got %d", stored)
	}
}

func TestIncrementSubmissionCount_RequiresOpenPosting(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)

	postings := NewPostingService(repo, nil)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	rows, err := repo.IncrementSubmissionCount(ctx, job.ID)
	if err != nil {
		t.Fatalf("IncrementSubmissionCount failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected on an open posting, got %d", rows)
	}

	if _, err := postings.ClosePosting(ctx, job.ID, owner.ID); err != nil {
		t.Fatalf("ClosePosting failed: %v", err)
	}

	// The guard misses once the posting is closed, so a submit racing a
	// close rolls back instead of attaching to a closed posting.
	rows, err = repo.IncrementSubmissionCount(ctx, job.ID)
	if err != nil {
		t.Fatalf("IncrementSubmissionCount failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected 0 rows affected on a closed posting, got %d", rows)
	}

	reloaded, err := postings.GetPosting(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetPosting failed: %v", err)
	}
	if reloaded.SubmissionCount != 1 {
		t.Errorf("counter must be untouched by the missed guard, got %d", reloaded.SubmissionCount)
	}
}

func TestSubmit_SnapshotsActorProfile(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	worker := createTestUser(t, db, "ravi", models.RoleWorker)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	submission, err := submissions.Submit(ctx, job.ID, worker.ID, &models.SubmitRequest{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.ActorName != worker.Name || submission.ActorPhoto != worker.PhotoURL {
		t.Errorf("expected denormalized actor snapshot, got name=%q photo=%q", submission.ActorName, submission.ActorPhoto)
	}

	// Renaming the worker later must not touch the snapshot
	if err := db.Model(&models.User{}).Where("id = ?", worker.ID).Update("name", "Ravi Kumar").Error; err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	var stored models.Submission
	if err := db.First(&stored, "id = ?", submission.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.ActorName != worker.Name {
		t.Errorf("snapshot must stay at submission-time value, got %q", stored.ActorName)
	}
}

func TestSubmit_ClosedPosting(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	w1 := createTestUser(t, db, "ravi", models.RoleWorker)
	w2 := createTestUser(t, db, "sanjay", models.RoleWorker)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}
	if _, err := submissions.Submit(ctx, job.ID, w1.ID, &models.SubmitRequest{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := postings.ClosePosting(ctx, job.ID, owner.ID); err != nil {
		t.Fatalf("ClosePosting failed: %v", err)
	}

	if _, err := submissions.Submit(ctx, job.ID, w2.ID, &models.SubmitRequest{}); !errors.Is(err, ErrPostingClosed) {
		t.Errorf("expected ErrPostingClosed, got %v", err)
	}

	reloaded, err := postings.GetPosting(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetPosting failed: %v", err)
	}
	if reloaded.SubmissionCount != 1 {
		t.Errorf("rejected submit must not change the count, got %d", reloaded.SubmissionCount)
	}

	// Existing submissions stay listable and unchanged
	listed, err := submissions.ListSubmissionsForPosting(ctx, job.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListSubmissionsForPosting failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ActorID != w1.ID || listed[0].Status != models.SubmissionStatusPending {
		t.Error("existing submission should survive the close untouched")
	}
}

func TestSubmit_PostingNotFound(t *testing.T) {
	db, repo := newTestRepo(t)
	worker := createTestUser(t, db, "ravi", models.RoleWorker)
	submissions := NewSubmissionService(repo)

	if _, err := submissions.Submit(context.Background(), uuid.New(), worker.ID, &models.SubmitRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDecide_SingleTransitionNoImplicitRejection(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	x := createTestUser(t, db, "xavier", models.RoleContractor)
	y := createTestUser(t, db, "yusuf", models.RoleContractor)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	contract, err := postings.CreatePosting(ctx, owner.ID, contractRequest("Boundary wall"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	bidX, err := submissions.Submit(ctx, contract.ID, x.ID, &models.SubmitRequest{
		Amount:   decimal.NewFromInt(45000),
		Proposal: "Done in three weeks",
	})
	if err != nil {
		t.Fatalf("Submit bidX failed: %v", err)
	}
	bidY, err := submissions.Submit(ctx, contract.ID, y.ID, &models.SubmitRequest{
		Amount:   decimal.NewFromInt(48000),
		Proposal: "Done in two weeks",
	})
	if err != nil {
		t.Fatalf("Submit bidY failed: %v", err)
	}

	decided, err := submissions.Decide(ctx, bidX.ID, models.DecisionAccept, owner.ID)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if decided.Status != models.SubmissionStatusAccepted {
		t.Errorf("expected accepted, got %s", decided.Status)
	}

	// Re-deciding a terminal submission fails and leaves it unchanged
	if _, err := submissions.Decide(ctx, bidX.ID, models.DecisionAccept, owner.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	var storedX models.Submission
	if err := db.First(&storedX, "id = ?", bidX.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if storedX.Status != models.SubmissionStatusAccepted {
		t.Errorf("status must stay accepted, got %s", storedX.Status)
	}

	// Accepting X does not touch Y
	var storedY models.Submission
	if err := db.First(&storedY, "id = ?", bidY.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if storedY.Status != models.SubmissionStatusPending {
		t.Errorf("competing bid must stay pending, got %s", storedY.Status)
	}

	// The posting stays open as well
	reloaded, err := postings.GetPosting(ctx, contract.ID)
	if err != nil {
		t.Fatalf("GetPosting failed: %v", err)
	}
	if reloaded.Status != models.PostingStatusOpen {
		t.Errorf("accepting a bid must not close the posting, got %s", reloaded.Status)
	}
}

func TestDecide_Permissions(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	worker := createTestUser(t, db, "ravi", models.RoleWorker)
	stranger := createTestUser(t, db, "mallory", models.RoleHomeowner)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}
	submission, err := submissions.Submit(ctx, job.ID, worker.ID, &models.SubmitRequest{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := submissions.Decide(ctx, submission.ID, models.DecisionReject, stranger.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for non-owner, got %v", err)
	}
	if _, err := submissions.Decide(ctx, uuid.New(), models.DecisionReject, owner.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing submission, got %v", err)
	}
}

func TestListSubmissionsForPosting_OwnerOnlyAndOrdered(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	w1 := createTestUser(t, db, "ravi", models.RoleWorker)
	w2 := createTestUser(t, db, "sanjay", models.RoleWorker)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	job, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	first, err := submissions.Submit(ctx, job.ID, w1.ID, &models.SubmitRequest{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := submissions.Submit(ctx, job.ID, w2.ID, &models.SubmitRequest{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := submissions.ListSubmissionsForPosting(ctx, job.ID, w1.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for non-owner, got %v", err)
	}

	listed, err := submissions.ListSubmissionsForPosting(ctx, job.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListSubmissionsForPosting failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(listed))
	}
	if listed[0].ID != first.ID || listed[1].ID != second.ID {
		t.Error("expected first-come-first-served ordering")
	}
}

func TestListSubmissionsForActor_GracefulJoin(t *testing.T) {
	db, repo := newTestRepo(t)
	owner := createTestUser(t, db, "asha", models.RoleHomeowner)
	worker := createTestUser(t, db, "ravi", models.RoleWorker)

	postings := NewPostingService(repo, nil)
	submissions := NewSubmissionService(repo)
	ctx := context.Background()

	kept, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Bathroom repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}
	doomed, err := postings.CreatePosting(ctx, owner.ID, jobRequest("Roof repair"))
	if err != nil {
		t.Fatalf("CreatePosting failed: %v", err)
	}

	if _, err := submissions.Submit(ctx, kept.ID, worker.ID, &models.SubmitRequest{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := submissions.Submit(ctx, doomed.ID, worker.ID, &models.SubmitRequest{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Simulate an out-of-band posting loss
	if err := db.Delete(&models.Posting{}, "id = ?", doomed.ID).Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	listed, err := submissions.ListSubmissionsForActor(ctx, worker.ID)
	if err != nil {
		t.Fatalf("ListSubmissionsForActor failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected both submissions, got %d", len(listed))
	}

	for _, entry := range listed {
		switch entry.Submission.PostingID {
		case kept.ID:
			if entry.PostingTitle != kept.Title || entry.PostingStatus != models.PostingStatusOpen {
				t.Errorf("expected joined fields for surviving posting, got %+v", entry)
			}
		case doomed.ID:
			if entry.PostingTitle != "" || entry.PostingStatus != "" {
				t.Errorf("expected empty join fields for missing posting, got %+v", entry)
			}
		default:
			t.Errorf("unexpected posting id %s", entry.Submission.PostingID)
		}
	}
}
