package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/cache"
	"marketplace-service/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware_GenerateID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(zap.NewNop()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestIDMiddleware_UseProvidedID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(zap.NewNop()))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	providedID := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, providedID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, providedID, w.Header().Get(RequestIDHeader))
}

func idempotentRouter(calls *int32) *gin.Engine {
	logger := zap.NewNop()
	store := NewCacheRequestIDStore(cache.NewInMemoryCache())

	router := gin.New()
	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.POST("/orders", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(http.StatusCreated, gin.H{"call": n})
	})
	router.POST("/fail", func(c *gin.Context) {
		atomic.AddInt32(calls, 1)
		c.JSON(http.StatusConflict, gin.H{"error": "Conflict"})
	})
	return router
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	var calls int32
	router := idempotentRouter(&calls)
	requestID := uuid.New().String()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(RequestIDHeader, requestID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_WithoutHeaderAlwaysExecutes(t *testing.T) {
	var calls int32
	router := idempotentRouter(&calls)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_DoesNotStoreFailures(t *testing.T) {
	var calls int32
	router := idempotentRouter(&calls)
	requestID := uuid.New().String()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/fail", nil)
		req.Header.Set(RequestIDHeader, requestID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("middleware-test-secret-with-32-chars!", time.Minute, zap.NewNop())
	sellerID := uuid.New()
	sellerToken, err := jwtManager.GenerateToken(sellerID, domain.RoleSeller)
	require.NoError(t, err)
	buyerToken, err := jwtManager.GenerateToken(uuid.New(), domain.RoleBuyer)
	require.NoError(t, err)

	router := gin.New()
	router.Use(AuthMiddleware(jwtManager, zap.NewNop()))
	router.GET("/me", func(c *gin.Context) {
		id, role, ok := Actor(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "role": role})
	})
	router.POST("/items", RequireRole(domain.RoleSeller), func(c *gin.Context) { c.Status(http.StatusCreated) })

	testCases := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
	}{
		{"missing header", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/me", "Bearer abc", http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/me", "Bearer " + sellerToken, http.StatusOK},
		{"seller route as seller", http.MethodPost, "/items", "Bearer " + sellerToken, http.StatusCreated},
		{"seller route as buyer", http.MethodPost, "/items", "Bearer " + buyerToken, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), sellerID.String())
			}
		})
	}
}

func TestErrorHandler_MapsDomainErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(zap.NewNop()))
	router.GET("/stock", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("create order: %w", &domain.InsufficientStockError{ItemID: uuid.New(), Requested: 2, Available: 1}))
	})
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("database is locked"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"InsufficientStock"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is locked")
}

func TestErrorHandler_LogsInternalCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	router := gin.New()
	router.Use(ErrorHandler(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("query orders: %w", fmt.Errorf("relation \"orders\" does not exist")))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"InternalError","message":"internal server error","details":""}`, w.Body.String())

	entries := logs.FilterMessage("Unhandled error").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "does not exist")
}

func TestRecoveryHandler(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryHandler(zap.NewNop()))
	router.GET("/panic", func(c *gin.Context) { panic("unexpected") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "InternalError")
}
