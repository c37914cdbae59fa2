package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/hanko-field/storefront/internal/repositories"
)

const (
	recommendationPoolSize = 50
	recommendationRailSize = 6
	recentlyViewedCap      = 10
)

var (
	// ErrRecommendationInvalidInput indicates a missing session or product.
	ErrRecommendationInvalidInput = errors.New("recommendation service: invalid input")
	// ErrRecommendationUnavailable indicates the service or its dependencies are not configured.
	ErrRecommendationUnavailable = errors.New("recommendation service: unavailable")
)

// RecommendationServiceDeps bundles constructor inputs for the recommendation service.
type RecommendationServiceDeps struct {
	Catalog        ProductCatalog
	RecentlyViewed repositories.RecentlyViewedRepository
	// Shuffle permutes the frequently bought pool. Defaults to math/rand/v2.
	Shuffle func(n int, swap func(i, j int))
	Logger  func(context.Context, string, map[string]any)
}

type recommendationService struct {
	catalog ProductCatalog
	viewed  repositories.RecentlyViewedRepository
	shuffle func(n int, swap func(i, j int))
	logger  func(context.Context, string, map[string]any)
}

// NewRecommendationService constructs the detail page recommendation engine.
func NewRecommendationService(deps RecommendationServiceDeps) (RecommendationService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("recommendation service: product catalog is required")
	}
	if deps.RecentlyViewed == nil {
		return nil, errors.New("recommendation service: recently viewed repository is required")
	}
	shuffle := deps.Shuffle
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &recommendationService{
		catalog: deps.Catalog,
		viewed:  deps.RecentlyViewed,
		shuffle: shuffle,
		logger:  logger,
	}, nil
}

func (s *recommendationService) ForProduct(ctx context.Context, sessionID string, product Product) (Recommendations, error) {
	if s == nil || s.catalog == nil {
		return Recommendations{}, ErrRecommendationUnavailable
	}
	if product.ID <= 0 {
		return Recommendations{}, fmt.Errorf("%w: product is required", ErrRecommendationInvalidInput)
	}
	pool, err := s.pool(ctx, product.ID)
	if err != nil {
		return Recommendations{}, err
	}
	trending := trendingFrom(pool)
	out := Recommendations{
		Similar:          similarFrom(pool, product.Category),
		Trending:         trending,
		FrequentlyBought: s.frequentlyFrom(pool),
	}
	if strings.TrimSpace(sessionID) != "" {
		recent, err := s.recentFrom(ctx, sessionID, product.ID, pool)
		if err != nil {
			return Recommendations{}, err
		}
		out.RecentlyViewed = recent
	}
	if len(out.RecentlyViewed) == 0 {
		out.RecentlyViewed = slices.Clone(trending)
	}
	return out, nil
}

func (s *recommendationService) Similar(ctx context.Context, product Product) ([]Product, error) {
	if s == nil || s.catalog == nil {
		return nil, ErrRecommendationUnavailable
	}
	pool, err := s.pool(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return similarFrom(pool, product.Category), nil
}

func (s *recommendationService) Trending(ctx context.Context, excludeID int) ([]Product, error) {
	if s == nil || s.catalog == nil {
		return nil, ErrRecommendationUnavailable
	}
	pool, err := s.pool(ctx, excludeID)
	if err != nil {
		return nil, err
	}
	return trendingFrom(pool), nil
}

func (s *recommendationService) RecentlyViewed(ctx context.Context, sessionID string, excludeID int) ([]Product, error) {
	if s == nil || s.catalog == nil || s.viewed == nil {
		return nil, ErrRecommendationUnavailable
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrRecommendationInvalidInput)
	}
	pool, err := s.pool(ctx, excludeID)
	if err != nil {
		return nil, err
	}
	recent, err := s.recentFrom(ctx, sessionID, excludeID, pool)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return trendingFrom(pool), nil
	}
	return recent, nil
}

func (s *recommendationService) FrequentlyBought(ctx context.Context, product Product) ([]Product, error) {
	if s == nil || s.catalog == nil {
		return nil, ErrRecommendationUnavailable
	}
	pool, err := s.pool(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return s.frequentlyFrom(pool), nil
}

func (s *recommendationService) RecordView(ctx context.Context, sessionID string, productID int) ([]int, error) {
	if s == nil || s.viewed == nil {
		return nil, ErrRecommendationUnavailable
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrRecommendationInvalidInput)
	}
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrRecommendationInvalidInput)
	}
	ids, err := s.viewed.Update(ctx, sessionID, func(current []int) ([]int, error) {
		next := make([]int, 0, len(current)+1)
		next = append(next, productID)
		for _, id := range current {
			if id != productID {
				next = append(next, id)
			}
		}
		if len(next) > recentlyViewedCap {
			next = next[:recentlyViewedCap]
		}
		return next, nil
	})
	if err != nil {
		return nil, translateRepoError(err, ErrRecommendationUnavailable)
	}
	return ids, nil
}

// pool fetches the candidate set shared by every rail, without excludeID.
func (s *recommendationService) pool(ctx context.Context, excludeID int) ([]Product, error) {
	page, err := s.catalog.ListProducts(ctx, recommendationPoolSize, 0)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	out := make([]Product, 0, len(page.Products))
	for _, p := range page.Products {
		if p.ID > 0 && p.ID != excludeID {
			out = append(out, p)
		}
	}
	return out, nil
}

// recentFrom resolves stored ids most recent first. Ids outside the pool are fetched individually;
// products that no longer exist are skipped.
func (s *recommendationService) recentFrom(ctx context.Context, sessionID string, excludeID int, pool []Product) ([]Product, error) {
	ids, err := s.viewed.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]Product, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
	}
	out := make([]Product, 0, recommendationRailSize)
	for _, id := range ids {
		if len(out) == recommendationRailSize {
			break
		}
		if id == excludeID {
			continue
		}
		if p, ok := byID[id]; ok {
			out = append(out, p)
			continue
		}
		p, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			translated := translateCatalogError(err)
			if errors.Is(translated, ErrCatalogNotFound) {
				s.logger(ctx, "recommendations.recent.skip", map[string]any{"productId": id})
				continue
			}
			return nil, translated
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *recommendationService) frequentlyFrom(pool []Product) []Product {
	shuffled := slices.Clone(pool)
	s.shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return headOf(shuffled, recommendationRailSize)
}

func similarFrom(pool []Product, category string) []Product {
	var same []Product
	for _, p := range pool {
		if p.Category == category {
			same = append(same, p)
		}
	}
	if len(same) == 0 {
		return headOf(pool, recommendationRailSize)
	}
	return headOf(same, recommendationRailSize)
}

func trendingFrom(pool []Product) []Product {
	sorted := slices.Clone(pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating*sorted[i].DiscountPercentage > sorted[j].Rating*sorted[j].DiscountPercentage
	})
	return headOf(sorted, recommendationRailSize)
}
