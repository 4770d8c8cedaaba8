// Package middleware provides shared HTTP middleware utilities.
package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "ajopay/pkg/errors"
)

// IdempotencyMiddleware makes unsafe endpoints replay-safe. The first
// request under a given Idempotency-Key executes and its response is
// cached; retries under the same key get the cached response back
// without re-running the handler.
type IdempotencyMiddleware struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyMiddleware(rdb *redis.Client, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{redis: rdb, ttl: ttl}
}

// Require rejects POST/PUT/PATCH/DELETE requests without an
// Idempotency-Key header. Safe methods pass through untouched.
func (m *IdempotencyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key header required")
			return
		}

		scope := fmt.Sprintf("%s:%s:%s", r.Method, r.URL.Path, key)
		respKey := "idempotency:resp:" + scope
		lockKey := "idempotency:lock:" + scope

		if m.replay(w, r, respKey) {
			return
		}

		locked, err := m.redis.SetNX(r.Context(), lockKey, 1, m.ttl).Result()
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !locked {
			// Another request with this key is in flight. Wait briefly
			// for its response, then give up with a conflict.
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				time.Sleep(100 * time.Millisecond)
				if m.replay(w, r, respKey) {
					return
				}
			}
			jsonError(w, http.StatusConflict, apperrors.ErrDuplicateRequest.Error())
			return
		}
		defer m.redis.Del(r.Context(), lockKey)

		rec := &recordingWriter{ResponseWriter: w, limit: 1 << 20}
		next.ServeHTTP(rec, r)

		m.store(r, respKey, rec)
	})
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, r *http.Request, respKey string) bool {
	raw, err := m.redis.Get(r.Context(), respKey).Bytes()
	if err != nil {
		return false
	}
	var sr storedResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return false
	}

	if sr.ContentType != "" {
		w.Header().Set("Content-Type", sr.ContentType)
	}
	w.Header().Set("X-Idempotent-Replay", "true")
	w.WriteHeader(sr.Status)
	w.Write(sr.Body)
	return true
}

func (m *IdempotencyMiddleware) store(r *http.Request, respKey string, rec *recordingWriter) {
	if rec.status == 0 || rec.overflowed {
		return
	}
	raw, err := json.Marshal(storedResponse{
		Status:      rec.status,
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.body.Bytes(),
	})
	if err != nil {
		return
	}
	// Best effort: a failed cache write just means the retry re-executes.
	m.redis.Set(r.Context(), respKey, raw, m.ttl)
}

// recordingWriter tees the response into a buffer so it can be replayed.
// Responses over the limit are passed through but never cached.
type recordingWriter struct {
	http.ResponseWriter
	body       bytes.Buffer
	limit      int
	status     int
	overflowed bool
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if !w.overflowed {
		if w.body.Len()+len(p) > w.limit {
			w.overflowed = true
			w.body.Reset()
		} else {
			w.body.Write(p)
		}
	}
	return w.ResponseWriter.Write(p)
}
