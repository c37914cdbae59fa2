package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hanko-field/storefront/internal/platform/textutil"
	"github.com/hanko-field/storefront/internal/repositories"
)

const (
	anonymousReviewer     = "Anonymous User"
	maxReviewTitleLength  = 120
	maxReviewCommentRunes = 2000
	maxReviewerNameRunes  = 60
)

var (
	// ErrReviewInvalidInput indicates invalid review data.
	ErrReviewInvalidInput = errors.New("review service: invalid input")
	// ErrReviewNotFound indicates the review does not exist.
	ErrReviewNotFound = errors.New("review service: review not found")
	// ErrReviewUnavailable indicates the review store cannot be reached.
	ErrReviewUnavailable = errors.New("review service: unavailable")
)

// ReviewServiceDeps bundles constructor inputs for the review service.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type reviewService struct {
	repo   repositories.ReviewRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewReviewService constructs the product review service.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &reviewService{
		repo:   deps.Reviews,
		clock:  func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *reviewService) List(ctx context.Context, productID int) ([]Review, error) {
	if s == nil || s.repo == nil {
		return nil, ErrReviewUnavailable
	}
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrReviewInvalidInput)
	}
	reviews, err := s.repo.List(ctx, productID)
	if err != nil {
		return nil, translateRepoError(err, ErrReviewUnavailable)
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}

func (s *reviewService) Add(ctx context.Context, productID int, input ReviewInput) (Review, error) {
	if s == nil || s.repo == nil {
		return Review{}, ErrReviewUnavailable
	}
	if productID <= 0 {
		return Review{}, fmt.Errorf("%w: product id must be positive", ErrReviewInvalidInput)
	}
	review, err := s.buildReview(productID, input)
	if err != nil {
		return Review{}, err
	}
	if _, err := s.repo.Update(ctx, productID, func(current []Review) ([]Review, error) {
		return append([]Review{review}, current...), nil
	}); err != nil {
		return Review{}, translateRepoError(err, ErrReviewUnavailable)
	}
	s.logger(ctx, "review.added", map[string]any{
		"productId": productID,
		"reviewId":  review.ID,
		"rating":    review.Rating,
	})
	return review, nil
}

func (s *reviewService) MarkHelpful(ctx context.Context, productID int, reviewID string) (Review, error) {
	if s == nil || s.repo == nil {
		return Review{}, ErrReviewUnavailable
	}
	reviewID = strings.TrimSpace(reviewID)
	if productID <= 0 || reviewID == "" {
		return Review{}, fmt.Errorf("%w: product id and review id are required", ErrReviewInvalidInput)
	}
	var updated Review
	if _, err := s.repo.Update(ctx, productID, func(current []Review) ([]Review, error) {
		for i := range current {
			if current[i].ID == reviewID {
				current[i].Helpful++
				updated = current[i]
				return current, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrReviewNotFound, reviewID)
	}); err != nil {
		return Review{}, translateRepoError(err, ErrReviewUnavailable)
	}
	return updated, nil
}

func (s *reviewService) Summary(ctx context.Context, product Product) (ReviewSummary, error) {
	reviews, err := s.List(ctx, product.ID)
	if err != nil {
		return ReviewSummary{}, err
	}
	return SummarizeReviews(reviews, product), nil
}

func (s *reviewService) RenderComment(review Review) string {
	rendered, err := textutil.RenderMarkdown(review.Comment)
	if err != nil {
		if s != nil {
			s.logger(context.Background(), "review.render.failed", map[string]any{"reviewId": review.ID, "error": err.Error()})
		}
		return textutil.StripTags(review.Comment)
	}
	return rendered
}

func (s *reviewService) buildReview(productID int, input ReviewInput) (Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}
	title := textutil.PlainText(input.Title)
	comment := textutil.PlainText(input.Comment)
	if title == "" || comment == "" {
		return Review{}, fmt.Errorf("%w: please fill in both title and review", ErrReviewInvalidInput)
	}
	if len([]rune(title)) > maxReviewTitleLength {
		return Review{}, fmt.Errorf("%w: title must be at most %d characters", ErrReviewInvalidInput, maxReviewTitleLength)
	}
	if len([]rune(comment)) > maxReviewCommentRunes {
		return Review{}, fmt.Errorf("%w: review must be at most %d characters", ErrReviewInvalidInput, maxReviewCommentRunes)
	}
	name := textutil.PlainText(input.UserName)
	if name == "" {
		name = anonymousReviewer
	}
	if runes := []rune(name); len(runes) > maxReviewerNameRunes {
		name = string(runes[:maxReviewerNameRunes])
	}
	return Review{
		ID:        strings.TrimSpace(s.newID()),
		ProductID: productID,
		UserName:  name,
		Rating:    input.Rating,
		Title:     title,
		Comment:   comment,
		Date:      s.clock(),
		Verified:  true,
		Pros:      cleanList(input.Pros),
		Cons:      cleanList(input.Cons),
	}, nil
}

// SummarizeReviews averages user reviews to one decimal, falling back to the catalog rating when
// there are none.
func SummarizeReviews(reviews []Review, product Product) ReviewSummary {
	summary := ReviewSummary{
		Count:        len(reviews),
		Total:        len(reviews) + len(product.Reviews),
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	if len(reviews) == 0 {
		summary.Average = product.Rating
		return summary
	}
	var total int
	for _, r := range reviews {
		total += r.Rating
		star := int(math.Round(float64(r.Rating)))
		if star >= 1 && star <= 5 {
			summary.Distribution[star]++
		}
	}
	summary.Average = math.Round(float64(total)/float64(len(reviews))*10) / 10
	return summary
}

func cleanList(raw string) []string {
	items := textutil.SplitList(raw)
	out := items[:0]
	for _, item := range items {
		if cleaned := textutil.PlainText(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
