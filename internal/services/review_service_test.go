package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	domain "github.com/hanko-field/storefront/internal/domain"
)

func newTestReviewService(t *testing.T) ReviewService {
	t.Helper()
	counter := 0
	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews: newTestRegistry(t).Reviews(),
		Clock:   fixedClock,
		IDGenerator: func() string {
			counter++
			return fmt.Sprintf("rev-%d", counter)
		},
	})
	if err != nil {
		t.Fatalf("NewReviewService: %v", err)
	}
	return svc
}

func TestReviewServiceAddSanitisesAndPrepends(t *testing.T) {
	svc := newTestReviewService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, 1, ReviewInput{
		Rating:  4,
		Title:   " <b>Great</b> value ",
		Comment: "Works **well** <script>alert(1)</script>",
		Pros:    "battery, , camera ",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.UserName != "Anonymous User" {
		t.Fatalf("expected anonymous reviewer, got %q", first.UserName)
	}
	if first.Title != "Great value" {
		t.Fatalf("expected sanitised title, got %q", first.Title)
	}
	if strings.Contains(first.Comment, "<") {
		t.Fatalf("expected tags removed from comment, got %q", first.Comment)
	}
	if !first.Verified || first.Helpful != 0 {
		t.Fatalf("expected verified review with zero helpful, got %+v", first)
	}
	if !first.Date.Equal(testNow) {
		t.Fatalf("expected date %s, got %s", testNow, first.Date)
	}
	if diff := cmp.Diff([]string{"battery", "camera"}, first.Pros); diff != "" {
		t.Fatalf("pros (-want +got):\n%s", diff)
	}
	if first.Cons != nil {
		t.Fatalf("expected no cons, got %#v", first.Cons)
	}

	if _, err := svc.Add(ctx, 1, ReviewInput{UserName: "Ravi", Rating: 2, Title: "Meh", Comment: "Average"}); err != nil {
		t.Fatalf("Add second: %v", err)
	}
	reviews, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reviews) != 2 || reviews[0].ID != "rev-2" || reviews[1].ID != "rev-1" {
		t.Fatalf("expected newest first, got %+v", reviews)
	}

	html := svc.RenderComment(reviews[1])
	if !strings.Contains(html, "<strong>well</strong>") {
		t.Fatalf("expected rendered markdown, got %q", html)
	}
}

func TestReviewServiceAddValidation(t *testing.T) {
	svc := newTestReviewService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		id    int
		input ReviewInput
	}{
		{name: "rating too low", id: 1, input: ReviewInput{Rating: 0, Title: "t", Comment: "c"}},
		{name: "rating too high", id: 1, input: ReviewInput{Rating: 6, Title: "t", Comment: "c"}},
		{name: "blank title", id: 1, input: ReviewInput{Rating: 3, Title: "  ", Comment: "c"}},
		{name: "markup only comment", id: 1, input: ReviewInput{Rating: 3, Title: "t", Comment: "<br>"}},
		{name: "bad product", id: 0, input: ReviewInput{Rating: 3, Title: "t", Comment: "c"}},
		{name: "long title", id: 1, input: ReviewInput{Rating: 3, Title: strings.Repeat("x", 121), Comment: "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, tc.id, tc.input); !errors.Is(err, ErrReviewInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestReviewServiceMarkHelpful(t *testing.T) {
	svc := newTestReviewService(t)
	ctx := context.Background()
	review, err := svc.Add(ctx, 3, ReviewInput{Rating: 5, Title: "Love", Comment: "it"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	for i := 0; i < 2; i++ {
		if review, err = svc.MarkHelpful(ctx, 3, review.ID); err != nil {
			t.Fatalf("MarkHelpful: %v", err)
		}
	}
	if review.Helpful != 2 {
		t.Fatalf("expected helpful 2, got %d", review.Helpful)
	}
	if _, err := svc.MarkHelpful(ctx, 3, "missing"); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.MarkHelpful(ctx, 4, review.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("expected reviews to be product scoped, got %v", err)
	}
}

func TestReviewServiceSummary(t *testing.T) {
	svc := newTestReviewService(t)
	ctx := context.Background()
	product := Product{ID: 9, Rating: 4.3, Reviews: []domain.CatalogReview{{Rating: 5}, {Rating: 4}}}

	summary, err := svc.Summary(ctx, product)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Average != 4.3 || summary.Count != 0 || summary.Total != 2 {
		t.Fatalf("expected catalog fallback, got %+v", summary)
	}

	for _, rating := range []int{5, 4, 4} {
		if _, err := svc.Add(ctx, 9, ReviewInput{Rating: rating, Title: "t", Comment: "c"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	summary, err = svc.Summary(ctx, product)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Average != 4.3 {
		t.Fatalf("expected average 4.3, got %v", summary.Average)
	}
	if summary.Count != 3 || summary.Total != 5 {
		t.Fatalf("expected count 3 total 5, got %+v", summary)
	}
	want := map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}
	if diff := cmp.Diff(want, summary.Distribution); diff != "" {
		t.Fatalf("distribution (-want +got):\n%s", diff)
	}
}
