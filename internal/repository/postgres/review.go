package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Haseeburrahmann/mandi-reviews/internal/domain"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/database"
	apperrors "github.com/Haseeburrahmann/mandi-reviews/pkg/errors"
)

// uniqueViolation is the PostgreSQL error code raised when an insert
// hits the unique index on email.
const uniqueViolation = "23505"

// ReviewRepository implements review persistence on PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review. A unique-index conflict on email is
// reported as an AlreadyExists error, which covers concurrent
// submissions that slipped past the duplicate pre-check.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, email, rating, feedback, improvements, recommend,
		                     created_at, updated_at, source_address, client_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.Email,
		review.Rating,
		review.Feedback,
		review.Improvements,
		review.Recommend,
		review.CreatedAt,
		review.UpdatedAt,
		review.SourceAddress,
		review.ClientAgent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.AlreadyExists("review", "email", review.Email)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// FindByEmail returns the review stored for the given normalized email,
// or (nil, nil) when none exists.
func (r *ReviewRepository) FindByEmail(ctx context.Context, email string) (*domain.Review, error) {
	query := `
		SELECT id, email, rating, feedback, improvements, recommend,
		       created_at, updated_at, source_address, client_agent
		FROM reviews
		WHERE email = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&rv.ID,
		&rv.Email,
		&rv.Rating,
		&rv.Feedback,
		&rv.Improvements,
		&rv.Recommend,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.SourceAddress,
		&rv.ClientAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find review by email: %w", err)
	}

	return &rv, nil
}

// List returns reviews newest-first, windowed by skip/limit.
func (r *ReviewRepository) List(ctx context.Context, skip, limit int) ([]domain.Review, error) {
	query := `
		SELECT id, email, rating, feedback, improvements, recommend,
		       created_at, updated_at, source_address, client_agent
		FROM reviews
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.Email,
			&rv.Rating,
			&rv.Feedback,
			&rv.Improvements,
			&rv.Recommend,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&rv.SourceAddress,
			&rv.ClientAgent,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// Stats aggregates the whole table in a single pass. COALESCE keeps the
// average at 0 for an empty table, and the FILTER clauses produce the
// per-rating counts and the recent-window count.
func (r *ReviewRepository) Stats(ctx context.Context, recentSince time.Time) (stats *domain.Stats, err error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(rating), 0)::float8,
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COUNT(*) FILTER (WHERE rating = 1),
		       COUNT(*) FILTER (WHERE rating = 2),
		       COUNT(*) FILTER (WHERE rating = 3),
		       COUNT(*) FILTER (WHERE rating = 4),
		       COUNT(*) FILTER (WHERE rating = 5)
		FROM reviews`

	ctx, end := database.TraceQuery(ctx, "ReviewStats", query)
	defer func() { end(err) }()

	stats = domain.EmptyStats()
	var perRating [5]int

	err = r.pool.QueryRow(ctx, query, recentSince).Scan(
		&stats.TotalReviews,
		&stats.AverageRating,
		&stats.RecentReviews,
		&perRating[0],
		&perRating[1],
		&perRating[2],
		&perRating[3],
		&perRating[4],
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate review stats: %w", err)
	}

	for i, count := range perRating {
		stats.RatingDistribution[domain.RatingMin+i] = count
	}

	return stats, nil
}
