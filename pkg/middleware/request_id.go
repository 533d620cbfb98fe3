package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/cache"
)

const (
	// RequestIDHeader is the HTTP header name for request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the context key for request ID
	RequestIDContextKey = "request_id"
	// ReplayedHeader marks a response served from the idempotency store
	ReplayedHeader = "X-Idempotent-Replay"
)

// RequestIDStore keeps the response of processed write requests for replay.
type RequestIDStore interface {
	Store(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Get returns cache.ErrCacheMiss when nothing is stored under key
	Get(ctx context.Context, key string) ([]byte, error)
}

// CacheRequestIDStore keeps replayable responses in the shared cache, so
// every API instance sees the same request ids.
type CacheRequestIDStore struct {
	cache cache.Cache
}

func NewCacheRequestIDStore(c cache.Cache) *CacheRequestIDStore {
	return &CacheRequestIDStore{cache: c}
}

func (s *CacheRequestIDStore) Store(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, "idempotency:"+key, response, ttl)
}

func (s *CacheRequestIDStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.cache.Get(ctx, "idempotency:"+key)
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// RequestIDMiddleware extracts or generates X-Request-ID header
func RequestIDMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
			logger.Debug("Generated new request ID",
				zap.String("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
		}

		c.Set(RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the Gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDContextKey)
}

// IdempotencyMiddleware replays the stored 2xx response of a write request
// whose X-Request-ID was already processed for the same user, and stores the
// response of new ones. Requests without a client-supplied id pass through.
func IdempotencyMiddleware(store RequestIDStore, logger *zap.Logger, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isReadOnly(c.Request.Method) || c.GetHeader(RequestIDHeader) == "" {
			c.Next()
			return
		}

		key := c.GetString(UserIDContextKey) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + GetRequestID(c)

		if raw, err := store.Get(c.Request.Context(), key); err == nil {
			var stored storedResponse
			if err := json.Unmarshal(raw, &stored); err == nil {
				logger.Info("Duplicate request detected, returning cached response",
					zap.String("request_id", GetRequestID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.Header(ReplayedHeader, "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		}

		writer := &responseWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices || len(writer.body) == 0 {
			return
		}
		raw, err := json.Marshal(storedResponse{Status: status, Body: writer.body})
		if err != nil {
			return
		}
		// the request context may already be cancelled once the client is served
		if err := store.Store(context.WithoutCancel(c.Request.Context()), key, raw, ttl); err != nil {
			logger.Warn("Failed to store response for idempotency",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
		}
	}
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// responseWriter captures the response body
type responseWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, s...)
	return w.ResponseWriter.WriteString(s)
}
