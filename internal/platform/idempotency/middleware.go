package idempotency

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/platform/requestctx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
	maxBodyBytes      = 1 << 20
)

// Logger receives persistence failures that cannot be reported to the client.
type Logger interface {
	Printf(format string, args ...any)
}

type middlewareConfig struct {
	headerName  string
	ttl         time.Duration
	methods     map[string]struct{}
	clock       func() time.Time
	logger      Logger
	keyOptional bool
}

// MiddlewareOption customises Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithHeader overrides the request header carrying the key.
func WithHeader(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.headerName = name
		}
	}
}

// WithTTL sets how long records are retained.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithMethods restricts the guarded HTTP methods.
func WithMethods(methods ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		set := make(map[string]struct{}, len(methods))
		for _, method := range methods {
			if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
				set[method] = struct{}{}
			}
		}
		if len(set) > 0 {
			cfg.methods = set
		}
	}
}

// WithLogger injects a logger for persistence failures.
func WithLogger(logger Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) { cfg.logger = logger }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithKeyOptional lets requests without the header through unguarded instead of rejecting them.
func WithKeyOptional() MiddlewareOption {
	return func(cfg *middlewareConfig) { cfg.keyOptional = true }
}

// Middleware guards mutating requests. Keys are scoped to the session on the request context, so
// two shoppers sending the same key never see each other's responses.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	cfg := middlewareConfig{
		headerName: defaultHeaderName,
		ttl:        DefaultTTL,
		methods: map[string]struct{}{
			http.MethodPost:   {},
			http.MethodPut:    {},
			http.MethodPatch:  {},
			http.MethodDelete: {},
		},
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := cfg.methods[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			key := strings.TrimSpace(r.Header.Get(cfg.headerName))
			if key == "" {
				if cfg.keyOptional {
					next.ServeHTTP(w, r)
					return
				}
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_required", "missing idempotency key header", http.StatusBadRequest))
				return
			}
			if len(key) > 255 {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_idempotency_key", "idempotency key must be at most 255 characters", http.StatusBadRequest))
				return
			}

			body, err := bufferBody(r)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
				return
			}

			requester := requester(r)
			fingerprint := requestFingerprint(r, body, requester)
			scoped := scopedKey(key, requester)

			reservation, err := store.Reserve(ctx, scoped, fingerprint, cfg.clock(), cfg.ttl)
			if err != nil {
				if errors.Is(err, ErrFingerprintMismatch) {
					httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_conflict", "idempotency key already used for a different request", http.StatusConflict))
					return
				}
				cfg.logf("idempotency: reserve %s: %v", key, err)
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_store_error", "unable to process idempotency key", http.StatusInternalServerError))
				return
			}
			switch reservation.State {
			case ReservationStateCompleted:
				replay(w, reservation.Record)
				return
			case ReservationStatePending:
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_in_progress", "another request is processing this idempotency key", http.StatusConflict))
				return
			}

			recorder := &bufferedWriter{parent: w, header: make(http.Header)}
			next.ServeHTTP(recorder, r)

			// Server errors are not cached so the client can retry with the same key.
			if recorder.statusCode() >= http.StatusInternalServerError {
				if err := store.Release(ctx, scoped, fingerprint); err != nil {
					cfg.logf("idempotency: release %s: %v", key, err)
				}
				recorder.flush()
				return
			}

			resp := Response{Status: recorder.statusCode(), Headers: recorder.header, Body: recorder.body.Bytes()}
			if err := store.SaveResponse(ctx, scoped, fingerprint, resp, cfg.clock(), cfg.ttl); err != nil {
				cfg.logf("idempotency: save %s: %v", key, err)
				if err := store.Release(ctx, scoped, fingerprint); err != nil {
					cfg.logf("idempotency: release %s after save failure: %v", key, err)
				}
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_store_error", "unable to persist idempotency state", http.StatusInternalServerError))
				return
			}
			recorder.flush()
		})
	}
}

func (c middlewareConfig) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requester(r *http.Request) string {
	if id := requestctx.SessionID(r.Context()); id != "" {
		return id
	}
	return "anonymous"
}

func requestFingerprint(r *http.Request, body []byte, requester string) string {
	parts := []string{
		strings.ToUpper(r.Method),
		r.URL.Path,
		r.URL.RawQuery,
		r.Header.Get("Content-Type"),
		requester,
		sha256Hex(body),
	}
	return sha256Hex([]byte(strings.Join(parts, "|")))
}

func scopedKey(key, requester string) string {
	return strings.TrimSpace(key) + "|" + requester
}

func replay(w http.ResponseWriter, record Record) {
	header := w.Header()
	for name, values := range record.ResponseHeaders {
		header[name] = append([]string(nil), values...)
	}
	header.Set(replayHeaderName, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

// bufferedWriter holds the handler output until the record is saved.
type bufferedWriter struct {
	parent http.ResponseWriter
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(data []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(data)
}

func (b *bufferedWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) flush() {
	dst := b.parent.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	b.parent.WriteHeader(b.statusCode())
	if b.body.Len() > 0 {
		_, _ = b.parent.Write(b.body.Bytes())
	}
}
