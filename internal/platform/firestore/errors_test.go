package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hanko-field/storefront/internal/platform/config"
)

func TestWrapErrorClassifiesStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.FailedPrecondition, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.ResourceExhausted, unavailable: true},
		{code: codes.PermissionDenied},
	}
	for _, tc := range cases {
		err := WrapError("kv.get", status.Error(tc.code, "boom"))
		var fsErr *Error
		if !errors.As(err, &fsErr) {
			t.Fatalf("%s: expected *Error, got %T", tc.code, err)
		}
		if fsErr.IsNotFound() != tc.notFound || fsErr.IsConflict() != tc.conflict || fsErr.IsUnavailable() != tc.unavailable {
			t.Fatalf("%s: unexpected classification %+v", tc.code, fsErr)
		}
		if got := fsErr.Error(); got != fmt.Sprintf("kv.get: %v", status.Error(tc.code, "boom")) {
			t.Fatalf("%s: unexpected message %q", tc.code, got)
		}
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	t.Parallel()

	if err := WrapError("op", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.DeadlineExceeded, "slow")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !IsNotFound(status.Error(codes.NotFound, "missing")) {
		t.Fatalf("expected raw grpc not found to match")
	}
	if !IsNotFound(WrapError("op", status.Error(codes.NotFound, "missing"))) {
		t.Fatalf("expected wrapped not found to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatalf("expected plain error not to match")
	}
}

func TestProviderRequiresProject(t *testing.T) {
	t.Setenv(envProjectID, "")
	provider := NewProvider(config.FirestoreConfig{Collection: "storefront_kv"})
	if _, err := provider.Client(context.Background()); err == nil {
		t.Fatalf("expected error without project id")
	}
	if err := provider.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := provider.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}

func TestProviderGuardsCollectionAndTransactionBody(t *testing.T) {
	t.Setenv(envProjectID, "")
	provider := NewProvider(config.FirestoreConfig{ProjectID: "demo"}, WithTransactionAttempts(2), WithTransactionTimeout(time.Second))
	t.Cleanup(func() { _ = provider.Close(context.Background()) })

	if _, err := provider.Documents(context.Background()); err == nil || !strings.Contains(err.Error(), "collection") {
		t.Fatalf("expected missing collection error, got %v", err)
	}
	if provider.txAttempts != 2 || provider.txTimeout != time.Second {
		t.Fatalf("expected transaction options applied, got attempts=%d timeout=%s", provider.txAttempts, provider.txTimeout)
	}
	var fsErr *Error
	if err := provider.RunTransaction(context.Background(), nil); !errors.As(err, &fsErr) {
		t.Fatalf("expected classified error for nil body, got %v", err)
	}
}
