// Package firestore owns the shared Firestore client backing the kvstore firestore backend.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanko-field/storefront/internal/platform/config"
)

const (
	envEmulatorHost = "FIRESTORE_EMULATOR_HOST"
	envProjectID    = "GOOGLE_CLOUD_PROJECT"

	defaultDialTimeout = 10 * time.Second
	defaultTxAttempts  = 5
	defaultTxTimeout   = 15 * time.Second
)

// ErrProviderClosed is returned once Close has run.
var ErrProviderClosed = errors.New("firestore: provider is closed")

// TxFunc is the body of a read-modify-write transaction.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// Provider creates the client on first use and hands out the configured collection. A failed
// dial is retried by the next caller.
type Provider struct {
	cfg         config.FirestoreConfig
	dialTimeout time.Duration
	txAttempts  int
	txTimeout   time.Duration
	extra       []option.ClientOption

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// ProviderOption tunes a Provider.
type ProviderOption func(*Provider)

// WithDialTimeout bounds client creation.
func WithDialTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.dialTimeout = timeout
		}
	}
}

// WithTransactionAttempts sets how often a contended transaction is retried.
func WithTransactionAttempts(attempts int) ProviderOption {
	return func(p *Provider) {
		if attempts > 0 {
			p.txAttempts = attempts
		}
	}
}

// WithTransactionTimeout caps one transaction, retries included. A shorter caller deadline wins.
func WithTransactionTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.txTimeout = timeout
		}
	}
}

// WithClientOptions passes extra options to firestore.NewClient.
func WithClientOptions(opts ...option.ClientOption) ProviderOption {
	return func(p *Provider) {
		p.extra = append(p.extra, opts...)
	}
}

// NewProvider returns a Provider for cfg. No connection is made until Client is called.
func NewProvider(cfg config.FirestoreConfig, opts ...ProviderOption) *Provider {
	p := &Provider{
		cfg:         cfg,
		dialTimeout: defaultDialTimeout,
		txAttempts:  defaultTxAttempts,
		txTimeout:   defaultTxTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Collection is the configured collection name, trimmed.
func (p *Provider) Collection() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.cfg.Collection)
}

// Documents returns the configured collection on the shared client.
func (p *Provider) Documents(ctx context.Context) (*firestore.CollectionRef, error) {
	name := p.Collection()
	if name == "" {
		return nil, errors.New("firestore: collection is not configured")
	}
	client, err := p.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(name), nil
}

// Client returns the shared client.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	if p == nil {
		return nil, errors.New("firestore: provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return nil, ErrProviderClosed
	case p.client != nil:
		return p.client, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()
	client, err := p.dial(dialCtx)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *Provider) dial(ctx context.Context) (*firestore.Client, error) {
	project := firstSet(p.cfg.ProjectID, os.Getenv(envProjectID))
	if project == "" {
		return nil, errors.New("firestore: project id is required")
	}
	opts := append([]option.ClientOption(nil), p.extra...)
	if host := firstSet(p.cfg.EmulatorHost, os.Getenv(envEmulatorHost)); host != "" {
		// The SDK only switches to emulator mode when it sees the variable.
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return client, nil
}

// RunTransaction runs fn with the provider's retry budget and classifies the outcome with WrapError.
func (p *Provider) RunTransaction(ctx context.Context, fn TxFunc) error {
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}
	client, err := p.Client(ctx)
	if err != nil {
		return WrapError("transaction", err)
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > p.txTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.txTimeout)
		defer cancel()
	}
	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, tx)
	}, firestore.MaxAttempts(p.txAttempts))
	return WrapError("transaction", err)
}

// Close shuts the client down, giving up when ctx ends first. The Provider is unusable afterwards.
func (p *Provider) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	client := p.client
	alreadyClosed := p.closed
	p.client, p.closed = nil, true
	p.mu.Unlock()
	if alreadyClosed || client == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- client.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
