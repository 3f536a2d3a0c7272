package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Haseeburrahmann/mandi-reviews/internal/domain"
	pkgkafka "github.com/Haseeburrahmann/mandi-reviews/pkg/kafka"
)

// TopicReviewSubmitted carries one event per accepted review.
const TopicReviewSubmitted = "mandi.review.submitted"

// Aggregate and source identifiers for the event envelope.
const (
	AggregateTypeReview = "review"
	SourceReviewService = "review-service"
)

// ReviewSubmittedData is the payload of a review.submitted event. The
// submitter's email is deliberately omitted: it is PII and no consumer
// needs it.
type ReviewSubmittedData struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Recommend bool      `json:"recommend"`
	CreatedAt time.Time `json:"created_at"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	data := ReviewSubmittedData{
		ID:        review.ID,
		Rating:    review.Rating,
		Recommend: review.Recommend,
		CreatedAt: review.CreatedAt,
	}

	event, err := pkgkafka.NewEvent(TopicReviewSubmitted, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.String("review_id", review.ID),
		slog.Int("rating", review.Rating),
	)

	return nil
}
