package repository

import (
	"context"
	"time"

	"github.com/Haseeburrahmann/mandi-reviews/internal/domain"
)

// ReviewRepository defines the persistence contract for reviews. The
// store enforces email uniqueness with a unique index, so Create can
// report a conflict even after FindByEmail saw nothing (concurrent
// submissions racing the duplicate check).
type ReviewRepository interface {
	// Create inserts a new review. Returns errors.ErrAlreadyExists
	// (wrapped) when the normalized email is already taken.
	Create(ctx context.Context, review *domain.Review) error

	// FindByEmail looks up a review by normalized email. Returns
	// (nil, nil) when no review exists for it.
	FindByEmail(ctx context.Context, email string) (*domain.Review, error)

	// List returns reviews ordered by creation time descending,
	// windowed by skip/limit.
	List(ctx context.Context, skip, limit int) ([]domain.Review, error)

	// Stats aggregates the full record set in one pass: total count,
	// average rating, per-rating counts, and the number of reviews
	// created at or after recentSince.
	Stats(ctx context.Context, recentSince time.Time) (*domain.Stats, error)
}
