package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/Haseeburrahmann/mandi-reviews/internal/service"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/httputil"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/pagination"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
// Rating is decoded as a float pointer so that a missing rating, a
// non-numeric rating, and a fractional rating are all distinguishable.
type SubmitReviewRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Rating       *float64 `json:"rating" validate:"required,whole,gte=1,lte=5"`
	Feedback     string   `json:"feedback" validate:"required,min=5,max=1000"`
	Improvements *string  `json:"improvements" validate:"omitempty,max=1000"`
	Recommend    *bool    `json:"recommend"`
}

// normalize trims the free-text fields before validation so length
// rules apply to the trimmed values, which are also what get stored.
func (r *SubmitReviewRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Feedback = strings.TrimSpace(r.Feedback)
	if r.Improvements != nil {
		trimmed := strings.TrimSpace(*r.Improvements)
		r.Improvements = &trimmed
	}
}

// SubmitReviewResponse is returned on a successful submission.
type SubmitReviewResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/reviews
// @Summary Submit a customer review
// @Description Validates the submission, rejects duplicate emails, and persists the review
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body SubmitReviewRequest true "Review to submit"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/reviews [post]
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	req.normalize()
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.SubmitReviewInput{
		Email:        req.Email,
		Rating:       int(*req.Rating),
		Feedback:     req.Feedback,
		Improvements: req.Improvements,
		Recommend:    req.Recommend,
	}

	review, err := h.service.Submit(r.Context(), input, requestMeta(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: SubmitReviewResponse{
			ID:      review.ID,
			Message: "Review submitted successfully!",
		},
	})
}

// ListReviews handles GET /api/v1/reviews
// @Summary List reviews with dashboard analytics
// @Description Returns a newest-first page of reviews plus aggregate stats
// @Tags reviews
// @Produce json
// @Param skip query int false "Records to skip" default(0)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	result, err := h.service.ListReviews(r.Context(), params.Skip, params.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// requestMeta extracts the best-effort client network origin and agent
// string. Proxy headers win over the socket address; the service falls
// back to "unknown" for anything left empty.
func requestMeta(r *http.Request) service.RequestMeta {
	meta := service.RequestMeta{ClientAgent: r.UserAgent()}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop of the chain is the original client.
		meta.SourceAddress = strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	} else if real := r.Header.Get("X-Real-IP"); real != "" {
		meta.SourceAddress = real
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		meta.SourceAddress = host
	} else {
		meta.SourceAddress = r.RemoteAddr
	}

	return meta
}
