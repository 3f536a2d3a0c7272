package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Haseeburrahmann/mandi-reviews/internal/domain"
	"github.com/Haseeburrahmann/mandi-reviews/internal/service"
	apperrors "github.com/Haseeburrahmann/mandi-reviews/pkg/errors"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/httputil"
)

// ============================================================================
// Mock repository
// ============================================================================

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) FindByEmail(ctx context.Context, email string) (*domain.Review, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context, skip, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Stats(ctx context.Context, recentSince time.Time) (*domain.Stats, error) {
	args := m.Called(ctx, recentSince)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testReviewHandler(repo *mockReviewRepository) *ReviewHandler {
	svc := service.NewReviewService(repo, nil, testLogger())
	return NewReviewHandler(svc, testLogger())
}

// setupReviewRouter creates a chi router matching production route layout.
func setupReviewRouter(handler *ReviewHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/", handler.SubmitReview)
		r.Get("/", handler.ListReviews)
	})
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// decodeFields re-decodes the error half of the envelope to reach the
// per-field validation messages.
func decodeErrorFields(t *testing.T, rec *httptest.ResponseRecorder) (string, map[string]string) {
	t.Helper()
	var resp struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp.Error.Code, resp.Error.Fields
}

func submitBody(overrides map[string]any) []byte {
	body := map[string]any{
		"email":    "customer@example.com",
		"rating":   5,
		"feedback": "The biryani was outstanding",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
		} else {
			body[k] = v
		}
	}
	b, _ := json.Marshal(body)
	return b
}

func postReview(router *chi.Mux, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// SubmitReview
// ============================================================================

func TestSubmitReview_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("FindByEmail", mock.Anything, "customer@example.com").Return(nil, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)

	rec := postReview(router, submitBody(nil))

	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	data := resp.Data.(map[string]any)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "Review submitted successfully!", data["message"])
	repo.AssertExpectations(t)
}

func TestSubmitReview_CapturesRequestMeta(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.SourceAddress == "198.51.100.9" && r.ClientAgent == "integration-test"
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(submitBody(nil)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	req.Header.Set("User-Agent", "integration-test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestSubmitReview_MissingRequiredFields(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code, fields := decodeErrorFields(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", code)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "rating")
	assert.Contains(t, fields, "feedback")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitReview_InvalidEmail(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, submitBody(map[string]any{"email": "not-an-email"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, fields := decodeErrorFields(t, rec)
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestSubmitReview_RatingBounds(t *testing.T) {
	for _, rating := range []float64{0, 6, -1} {
		repo := new(mockReviewRepository)
		router := setupReviewRouter(testReviewHandler(repo))

		rec := postReview(router, submitBody(map[string]any{"rating": rating}))

		assert.Equal(t, http.StatusBadRequest, rec.Code, "rating %v", rating)

		_, fields := decodeErrorFields(t, rec)
		assert.Contains(t, fields, "rating", "rating %v", rating)
	}
}

func TestSubmitReview_FractionalRating(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, submitBody(map[string]any{"rating": 4.5}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, fields := decodeErrorFields(t, rec)
	assert.Equal(t, "must be a whole number", fields["rating"])
}

func TestSubmitReview_NonNumericRating(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, submitBody(map[string]any{"rating": "five"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReview_FeedbackTooShort(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, submitBody(map[string]any{"feedback": "meh"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, fields := decodeErrorFields(t, rec)
	assert.Equal(t, "must be at least 5 characters", fields["feedback"])
}

func TestSubmitReview_FeedbackTooLong(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, submitBody(map[string]any{"feedback": strings.Repeat("a", 1001)}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, fields := decodeErrorFields(t, rec)
	assert.Equal(t, "must be at most 1000 characters", fields["feedback"])
}

func TestSubmitReview_ImprovementsTooLong(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, submitBody(map[string]any{"improvements": strings.Repeat("a", 1001)}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, fields := decodeErrorFields(t, rec)
	assert.Contains(t, fields, "improvements")
}

func TestSubmitReview_MalformedJSON(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	rec := postReview(router, []byte(`{"email": "customer@example.com",`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestSubmitReview_UnsupportedMediaType(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", bytes.NewReader(submitBody(nil)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestSubmitReview_DuplicateEmail(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	existing := &domain.Review{ID: "existing-id", Email: "customer@example.com"}
	repo.On("FindByEmail", mock.Anything, "customer@example.com").Return(existing, nil)

	rec := postReview(router, submitBody(nil))

	assert.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitReview_StoreUnavailable(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("FindByEmail", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused"))

	rec := postReview(router, submitBody(nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
}

func TestSubmitReview_InternalError(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).
		Return(fmt.Errorf("unexpected scan failure"))

	rec := postReview(router, submitBody(nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	// The underlying failure never leaks to the caller.
	assert.NotContains(t, resp.Error.Message, "scan")
}

// ============================================================================
// ListReviews
// ============================================================================

type listReviewsResponse struct {
	Data struct {
		Reviews   []domain.Review `json:"reviews"`
		Analytics domain.Stats    `json:"analytics"`
		Skip      int             `json:"skip"`
		Limit     int             `json:"limit"`
	} `json:"data"`
}

func getReviews(router *chi.Mux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListReviews_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	stored := []domain.Review{
		{ID: "r1", Email: "a@example.com", Rating: 5, Feedback: "great food"},
		{ID: "r2", Email: "b@example.com", Rating: 3, Feedback: "decent food"},
	}
	stats := &domain.Stats{
		TotalReviews:       4,
		AverageRating:      3.5,
		RecentReviews:      2,
		RatingDistribution: map[int]int{1: 1, 2: 0, 3: 1, 4: 0, 5: 2},
	}

	repo.On("List", mock.Anything, 0, 50).Return(stored, nil)
	repo.On("Stats", mock.Anything, mock.AnythingOfType("time.Time")).Return(stats, nil)

	rec := getReviews(router, "/api/v1/reviews")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp listReviewsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data.Reviews, 2)
	assert.Equal(t, 4, resp.Data.Analytics.TotalReviews)
	assert.Equal(t, 3.5, resp.Data.Analytics.AverageRating)
	assert.Equal(t, 2, resp.Data.Analytics.RecentReviews)
	assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 1, 4: 0, 5: 2}, resp.Data.Analytics.RatingDistribution)
	repo.AssertExpectations(t)
}

func TestListReviews_PaginationParams(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("List", mock.Anything, 50, 10).Return([]domain.Review{}, nil)
	repo.On("Stats", mock.Anything, mock.AnythingOfType("time.Time")).Return(domain.EmptyStats(), nil)

	rec := getReviews(router, "/api/v1/reviews?skip=50&limit=10")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp listReviewsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 50, resp.Data.Skip)
	assert.Equal(t, 10, resp.Data.Limit)
	repo.AssertExpectations(t)
}

func TestListReviews_InvalidPaginationFallsBack(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("List", mock.Anything, 0, 50).Return([]domain.Review{}, nil)
	repo.On("Stats", mock.Anything, mock.AnythingOfType("time.Time")).Return(domain.EmptyStats(), nil)

	rec := getReviews(router, "/api/v1/reviews?skip=-5&limit=abc")

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestListReviews_EmptyStore(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("List", mock.Anything, 0, 50).Return([]domain.Review{}, nil)
	repo.On("Stats", mock.Anything, mock.AnythingOfType("time.Time")).Return(domain.EmptyStats(), nil)

	rec := getReviews(router, "/api/v1/reviews")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp listReviewsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Data.Reviews)
	assert.Equal(t, 0, resp.Data.Analytics.TotalReviews)
	assert.Equal(t, 0.0, resp.Data.Analytics.AverageRating)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, resp.Data.Analytics.RatingDistribution)
}

func TestListReviews_StoreUnavailable(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	repo.On("List", mock.Anything, 0, 50).
		Return(nil, fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused"))

	rec := getReviews(router, "/api/v1/reviews")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitReview_DuplicateRace(t *testing.T) {
	repo := new(mockReviewRepository)
	router := setupReviewRouter(testReviewHandler(repo))

	// Pre-check passes but the insert loses the race on the unique index.
	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).
		Return(apperrors.AlreadyExists("review", "email", "customer@example.com"))

	rec := postReview(router, submitBody(nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}
