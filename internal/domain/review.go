package domain

import (
	"time"
)

// Review is one customer-submitted feedback record, uniquely tied to a
// normalized (lowercase) email. Reviews are immutable once created:
// there is no edit or delete path.
type Review struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Rating        int       `json:"rating"`
	Feedback      string    `json:"feedback"`
	Improvements  *string   `json:"improvements,omitempty"`
	Recommend     bool      `json:"recommend"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	SourceAddress string    `json:"source_address"`
	ClientAgent   string    `json:"client_agent"`
}

// RatingMin and RatingMax bound the accepted rating values.
const (
	RatingMin = 1
	RatingMax = 5
)

// RecentWindow is the trailing period counted as "recent" in the
// dashboard stats.
const RecentWindow = 7 * 24 * time.Hour

// Stats are the aggregate figures shown on the dashboard, computed
// fresh over the full record set on every call.
type Stats struct {
	TotalReviews       int         `json:"total_reviews"`
	AverageRating      float64     `json:"average_rating"`
	RecentReviews      int         `json:"recent_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// EmptyStats returns the zero-value stats block: all counts zero, the
// distribution map populated with every rating key.
func EmptyStats() *Stats {
	dist := make(map[int]int, RatingMax)
	for r := RatingMin; r <= RatingMax; r++ {
		dist[r] = 0
	}
	return &Stats{RatingDistribution: dist}
}
