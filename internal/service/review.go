package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Haseeburrahmann/mandi-reviews/internal/domain"
	"github.com/Haseeburrahmann/mandi-reviews/internal/event"
	"github.com/Haseeburrahmann/mandi-reviews/internal/repository"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/database"
	apperrors "github.com/Haseeburrahmann/mandi-reviews/pkg/errors"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/pagination"
)

// metaUnknown is stored when request metadata is unavailable.
const metaUnknown = "unknown"

// SubmitReviewInput holds the validated fields of a submission.
type SubmitReviewInput struct {
	Email        string
	Rating       int
	Feedback     string
	Improvements *string
	Recommend    *bool
}

// RequestMeta is the ambient metadata of the submitting request. Empty
// fields fall back to "unknown".
type RequestMeta struct {
	SourceAddress string
	ClientAgent   string
}

// ReviewListResult pairs a page of reviews with the aggregate stats.
type ReviewListResult struct {
	Reviews []domain.Review `json:"reviews"`
	Stats   *domain.Stats   `json:"analytics"`
	Skip    int             `json:"skip"`
	Limit   int             `json:"limit"`
}

// ReviewService implements review submission and dashboard analytics.
type ReviewService struct {
	repo     repository.ReviewRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a review service.
func NewReviewService(repo repository.ReviewRepository, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// Submit runs the submission pipeline: validate, normalize the email,
// reject duplicates, enrich with timestamps and request metadata, and
// insert. Exactly one row is written per successful call; rejection
// paths write nothing.
//
// The duplicate pre-check and the insert are two store operations with
// no cross-operation lock. The unique index on email is the real
// guarantee: a concurrent submission losing the race surfaces as an
// AlreadyExists error from Create.
func (s *ReviewService) Submit(ctx context.Context, input *SubmitReviewInput, meta RequestMeta) (*domain.Review, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Rating < domain.RatingMin || input.Rating > domain.RatingMax {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.RatingMin, domain.RatingMax))
	}
	feedback := strings.TrimSpace(input.Feedback)
	if n := utf8.RuneCountInString(feedback); n < 5 || n > 1000 {
		return nil, apperrors.InvalidInput("feedback must be between 5 and 1000 characters")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.storeError("check existing review", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("review", "email", email)
	}

	recommend := true
	if input.Recommend != nil {
		recommend = *input.Recommend
	}

	improvements := input.Improvements
	if improvements != nil {
		trimmed := strings.TrimSpace(*improvements)
		if trimmed == "" {
			improvements = nil
		} else {
			improvements = &trimmed
		}
	}

	sourceAddress := meta.SourceAddress
	if sourceAddress == "" {
		sourceAddress = metaUnknown
	}
	clientAgent := meta.ClientAgent
	if clientAgent == "" {
		clientAgent = metaUnknown
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:            uuid.New().String(),
		Email:         email,
		Rating:        input.Rating,
		Feedback:      feedback,
		Improvements:  improvements,
		Recommend:     recommend,
		CreatedAt:     now,
		UpdatedAt:     now,
		SourceAddress: sourceAddress,
		ClientAgent:   clientAgent,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, s.storeError("create review", err)
	}

	if s.producer != nil {
		if err := s.producer.PublishReviewSubmitted(ctx, review); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
			// Do not fail the submission if event publishing fails.
		}
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.Int("rating", review.Rating),
		slog.Bool("recommend", review.Recommend),
	)

	return review, nil
}

// ListReviews returns a newest-first page of reviews together with the
// aggregate stats, computed fresh over the full record set.
func (s *ReviewService) ListReviews(ctx context.Context, skip, limit int) (*ReviewListResult, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}

	reviews, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, s.storeError("list reviews", err)
	}

	recentSince := time.Now().UTC().Add(-domain.RecentWindow)
	stats, err := s.repo.Stats(ctx, recentSince)
	if err != nil {
		return nil, s.storeError("aggregate review stats", err)
	}

	return &ReviewListResult{
		Reviews: reviews,
		Stats:   stats,
		Skip:    skip,
		Limit:   limit,
	}, nil
}

// storeError classifies a repository error: conflicts pass through
// untouched, transient connection failures become a 503 so callers know
// to retry, and everything else is wrapped for the generic 500 path.
func (s *ReviewService) storeError(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if database.IsConnectionError(err) {
		return apperrors.Unavailable("review store is unreachable", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
