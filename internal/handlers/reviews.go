package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/platform/requestctx"
	"github.com/hanko-field/storefront/internal/services"
)

const (
	maxReviewBodySize     = 32 * 1024
	reviewSubmitLimit     = 5
	reviewSubmitWindow    = time.Minute
	reviewHelpfulLimit    = 30
	reviewHelpfulInterval = time.Minute
)

// ReviewHandlers exposes the product review endpoints.
type ReviewHandlers struct {
	catalog services.CatalogService
	reviews services.ReviewService
	quota   *reviewQuota
}

// ReviewOption customises ReviewHandlers.
type ReviewOption func(*ReviewHandlers)

// WithReviewClock injects the clock used by the per-session review quota.
func WithReviewClock(clock func() time.Time) ReviewOption {
	return func(h *ReviewHandlers) {
		h.quota = defaultReviewQuota(clock)
	}
}

// NewReviewHandlers constructs review handlers. catalog is optional and, when set, provides the rating
// fallback for summaries and rejects reviews of unknown products.
func NewReviewHandlers(catalog services.CatalogService, reviews services.ReviewService, opts ...ReviewOption) *ReviewHandlers {
	h := &ReviewHandlers{
		catalog: catalog,
		reviews: reviews,
		quota:   defaultReviewQuota(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the review endpoints on the API root.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products/{productID}/reviews", h.listReviews)
	r.Post("/products/{productID}/reviews", h.createReview)
	r.Post("/products/{productID}/reviews/{reviewID}/helpful", h.markHelpful)
}

func (h *ReviewHandlers) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		writeUnavailable(ctx, w, "review")
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	product := services.Product{ID: productID}
	if h.catalog != nil {
		found, err := h.catalog.GetProduct(ctx, productID)
		if err != nil {
			writeCatalogError(ctx, w, err)
			return
		}
		product = found
	}

	reviews, err := h.reviews.List(ctx, productID)
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	summary := services.SummarizeReviews(reviews, product)
	payload := reviewListResponse{
		Reviews: make([]reviewPayload, 0, len(reviews)),
		Summary: buildReviewSummaryPayload(summary),
	}
	for _, review := range reviews {
		payload.Reviews = append(payload.Reviews, h.buildReviewPayload(review))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		writeUnavailable(ctx, w, "review")
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if !h.admit(w, r, actionSubmitReview, "too many reviews submitted, try again shortly") {
		return
	}

	var req createReviewRequest
	if !decodeJSONBody(w, r, maxReviewBodySize, &req) {
		return
	}
	if h.catalog != nil {
		if _, err := h.catalog.GetProduct(ctx, productID); err != nil {
			writeCatalogError(ctx, w, err)
			return
		}
	}

	review, err := h.reviews.Add(ctx, productID, services.ReviewInput{
		UserName: req.UserName,
		Rating:   req.Rating,
		Title:    req.Title,
		Comment:  req.Comment,
		Pros:     req.Pros,
		Cons:     req.Cons,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"review": h.buildReviewPayload(review)})
}

func (h *ReviewHandlers) markHelpful(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		writeUnavailable(ctx, w, "review")
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if !h.admit(w, r, actionMarkHelpful, "too many requests, try again shortly") {
		return
	}
	review, err := h.reviews.MarkHelpful(ctx, productID, strings.TrimSpace(chi.URLParam(r, "reviewID")))
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"review": h.buildReviewPayload(review)})
}

func (h *ReviewHandlers) admit(w http.ResponseWriter, r *http.Request, action reviewAction, message string) bool {
	ok, wait := h.quota.Take(action, requestctx.SessionID(r.Context()))
	if ok {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", message, http.StatusTooManyRequests))
	return false
}

type createReviewRequest struct {
	UserName string `json:"user_name"`
	Rating   int    `json:"rating"`
	Title    string `json:"title"`
	Comment  string `json:"comment"`
	Pros     string `json:"pros"`
	Cons     string `json:"cons"`
}

type reviewListResponse struct {
	Reviews []reviewPayload      `json:"reviews"`
	Summary reviewSummaryPayload `json:"summary"`
}

type reviewPayload struct {
	ID          string   `json:"id"`
	ProductID   int      `json:"product_id"`
	UserName    string   `json:"user_name"`
	Rating      int      `json:"rating"`
	Title       string   `json:"title"`
	Comment     string   `json:"comment"`
	CommentHTML string   `json:"comment_html"`
	Date        string   `json:"date"`
	Verified    bool     `json:"verified"`
	Helpful     int      `json:"helpful"`
	Pros        []string `json:"pros"`
	Cons        []string `json:"cons"`
}

type reviewSummaryPayload struct {
	Average      float64        `json:"average"`
	Count        int            `json:"count"`
	Total        int            `json:"total"`
	Distribution map[string]int `json:"distribution"`
}

func (h *ReviewHandlers) buildReviewPayload(review services.Review) reviewPayload {
	return reviewPayload{
		ID:          review.ID,
		ProductID:   review.ProductID,
		UserName:    review.UserName,
		Rating:      review.Rating,
		Title:       review.Title,
		Comment:     review.Comment,
		CommentHTML: h.reviews.RenderComment(review),
		Date:        formatTime(review.Date),
		Verified:    review.Verified,
		Helpful:     review.Helpful,
		Pros:        nonNilStrings(review.Pros),
		Cons:        nonNilStrings(review.Cons),
	}
}

func buildReviewSummaryPayload(summary services.ReviewSummary) reviewSummaryPayload {
	dist := make(map[string]int, 5)
	for star := 1; star <= 5; star++ {
		dist[string(rune('0'+star))] = summary.Distribution[star]
	}
	return reviewSummaryPayload{
		Average:      summary.Average,
		Count:        summary.Count,
		Total:        summary.Total,
		Distribution: dist,
	}
}

func writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("review_not_found", "review not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewUnavailable):
		writeUnavailable(ctx, w, "review")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("review_error", "failed to process review request", http.StatusInternalServerError))
	}
}
