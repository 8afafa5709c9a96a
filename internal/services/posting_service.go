package services

import (
	"context"
	"errors"
	"log"
	"time"

	"karigar-market/internal/cache"
	"karigar-market/internal/models"
	"karigar-market/internal/repository"

	"github.com/google/uuid"
)

// PostingService owns the posting lifecycle: create, list, close.
// Postings are never physically deleted; closing is the only mutation
// besides the submission counter, and it is one-way.
type PostingService struct {
	repo  *repository.Repository
	cache *cache.PostingCache
}

func NewPostingService(repo *repository.Repository, postingCache *cache.PostingCache) *PostingService {
	return &PostingService{repo: repo, cache: postingCache}
}

// CreatePosting publishes a job or contract for the owner. New postings
// always start open with a zero submission count.
func (s *PostingService) CreatePosting(ctx context.Context, ownerID uint, req *models.CreatePostingRequest) (*models.Posting, error) {
	kind := models.PostingKind(req.Kind)

	if req.Title == "" {
		return nil, invalidField("title", "must not be empty")
	}
	if req.Description == "" {
		return nil, invalidField("description", "must not be empty")
	}

	posting := &models.Posting{
		ID:          uuid.New(),
		Kind:        kind,
		OwnerID:     ownerID,
		Title:       req.Title,
		Category:    req.Category,
		Location:    req.Location,
		Description: req.Description,
		Status:      models.PostingStatusOpen,
		CreatedAt:   time.Now(),
	}

	switch kind {
	case models.PostingKindJob:
		if !req.DailyWage.IsPositive() {
			return nil, invalidField("daily_wage", "must be positive")
		}
		posting.DailyWage = req.DailyWage
	case models.PostingKindContract:
		if !req.Budget.IsPositive() {
			return nil, invalidField("budget", "must be positive")
		}
		budgetType := models.BudgetType(req.BudgetType)
		if budgetType != models.BudgetTypeFixed && budgetType != models.BudgetTypeNegotiable {
			return nil, invalidField("budget_type", "must be fixed or negotiable")
		}
		posting.Budget = req.Budget
		posting.BudgetType = budgetType
	default:
		return nil, invalidField("kind", "must be job or contract")
	}

	if err := s.repo.CreatePosting(ctx, posting); err != nil {
		return nil, unavailable(err)
	}

	s.cache.Invalidate(ctx)
	log.Printf("Posting created: %s %q by user %d", posting.Kind, posting.Title, ownerID)

	return posting, nil
}

// frontPageCacheable reports whether filter asks for exactly the page
// the cache holds: no filters, no offset, the default limit. A custom
// limit must bypass the cache both ways, otherwise a short page would
// be stored under the front-page key and served to everyone.
func frontPageCacheable(filter models.PostingFilter) bool {
	return filter.Query == "" &&
		filter.Kind == "" &&
		filter.Category == "" &&
		filter.Offset == 0 &&
		filter.Limit == models.DefaultFeedLimit
}

// ListOpenPostings returns the public feed, newest first. The unfiltered
// first page is served from the redis cache when available.
func (s *PostingService) ListOpenPostings(ctx context.Context, filter models.PostingFilter) ([]models.Posting, error) {
	cacheable := frontPageCacheable(filter)

	if cacheable {
		if postings, ok := s.cache.GetFrontPage(ctx); ok {
			return postings, nil
		}
	}

	postings, err := s.repo.ListOpenPostings(ctx, filter)
	if err != nil {
		return nil, unavailable(err)
	}

	if cacheable {
		s.cache.SetFrontPage(ctx, postings)
	}
	return postings, nil
}

// GetPosting retrieves one posting by ID.
func (s *PostingService) GetPosting(ctx context.Context, postingID uuid.UUID) (*models.Posting, error) {
	posting, err := s.repo.GetPostingByID(ctx, postingID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return posting, nil
}

// ListPostingsByOwner returns the owner's own postings, open or closed.
func (s *PostingService) ListPostingsByOwner(ctx context.Context, ownerID uint) ([]models.Posting, error) {
	postings, err := s.repo.ListPostingsByOwner(ctx, ownerID)
	if err != nil {
		return nil, unavailable(err)
	}
	return postings, nil
}

// ClosePosting transitions open→closed. Only the owner may close, and
// closing an already-closed posting is a no-op rather than an error so
// clients can retry freely.
func (s *PostingService) ClosePosting(ctx context.Context, postingID uuid.UUID, actorID uint) (*models.Posting, error) {
	posting, err := s.repo.GetPostingByID(ctx, postingID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}

	if posting.OwnerID != actorID {
		return nil, ErrPermissionDenied
	}

	if posting.Status == models.PostingStatusClosed {
		return posting, nil
	}

	if _, err := s.repo.ClosePosting(ctx, postingID); err != nil {
		return nil, unavailable(err)
	}
	posting.Status = models.PostingStatusClosed

	s.cache.Invalidate(ctx)
	log.Printf("Posting %s closed by owner %d", postingID, actorID)

	return posting, nil
}
