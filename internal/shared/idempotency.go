package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-procure/internal/platform/httpx"
)

// IdempotencyHeader carries the client supplied key on create requests.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore remembers processed keys in Redis.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store. Keys expire after ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// CheckAndInsert ensures key uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil {
		return ErrNotInitialised
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	ok, err := s.client.SetNX(ctx, idempotencyKey(module, key), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return s.client.Del(ctx, idempotencyKey(module, key)).Err()
}

// Middleware rejects replayed POST requests carrying a seen Idempotency-Key.
// Keys of requests that fail are released so the client can retry.
func (s *IdempotencyStore) Middleware(module string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if s == nil || s.client == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			err := s.CheckAndInsert(r.Context(), key, module)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "request with this Idempotency-Key was already processed")
				return
			case err != nil:
				if logger != nil {
					logger.Warn("idempotency check skipped", slog.String("module", module), slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusBadRequest {
				if err := s.Delete(context.WithoutCancel(r.Context()), key, module); err != nil && logger != nil {
					logger.Warn("idempotency release", slog.String("module", module), slog.Any("error", err))
				}
			}
		})
	}
}

func idempotencyKey(module, key string) string {
	return "idem:" + module + ":" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
