package kv

import (
	"context"
	"errors"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

type reviewRecord struct {
	ID        string    `json:"id"`
	ProductID int       `json:"productId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	Date      time.Time `json:"date"`
	Verified  bool      `json:"verified"`
	Helpful   int       `json:"helpful"`
	Pros      []string  `json:"pros,omitempty"`
	Cons      []string  `json:"cons,omitempty"`
}

// ReviewRepository stores user reviews under "reviews_<productId>".
type ReviewRepository struct {
	store kvstore.Store
}

// NewReviewRepository constructs a kv-backed review repository.
func NewReviewRepository(store kvstore.Store) *ReviewRepository {
	return &ReviewRepository{store: store}
}

func (r *ReviewRepository) List(ctx context.Context, productID int) ([]domain.Review, error) {
	if productID <= 0 {
		return nil, errors.New("kv repository: product id must be positive")
	}
	records, err := loadJSON[[]reviewRecord](ctx, r.store, ReviewKey(productID))
	if err != nil {
		return nil, err
	}
	return reviewsFromRecords(productID, records), nil
}

func (r *ReviewRepository) Update(ctx context.Context, productID int, fn func([]domain.Review) ([]domain.Review, error)) ([]domain.Review, error) {
	if productID <= 0 {
		return nil, errors.New("kv repository: product id must be positive")
	}
	if fn == nil {
		return nil, errors.New("kv repository: review mutation is required")
	}
	records, err := updateJSON(ctx, r.store, ReviewKey(productID), emptySlice[reviewRecord], func(current []reviewRecord) ([]reviewRecord, error) {
		next, err := fn(reviewsFromRecords(productID, current))
		if err != nil {
			return nil, err
		}
		out := make([]reviewRecord, 0, len(next))
		for _, review := range next {
			out = append(out, reviewRecord{
				ID:        review.ID,
				ProductID: productID,
				UserName:  review.UserName,
				Rating:    review.Rating,
				Title:     review.Title,
				Comment:   review.Comment,
				Date:      review.Date.UTC(),
				Verified:  review.Verified,
				Helpful:   review.Helpful,
				Pros:      review.Pros,
				Cons:      review.Cons,
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return reviewsFromRecords(productID, records), nil
}

func reviewsFromRecords(productID int, records []reviewRecord) []domain.Review {
	out := make([]domain.Review, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		out = append(out, domain.Review{
			ID:        rec.ID,
			ProductID: productID,
			UserName:  rec.UserName,
			Rating:    rec.Rating,
			Title:     rec.Title,
			Comment:   rec.Comment,
			Date:      rec.Date.UTC(),
			Verified:  rec.Verified,
			Helpful:   rec.Helpful,
			Pros:      append([]string(nil), rec.Pros...),
			Cons:      append([]string(nil), rec.Cons...),
		})
	}
	return out
}
