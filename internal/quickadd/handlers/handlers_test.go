package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlist/quickadd/internal/quickadd/service"
	"github.com/giftlist/quickadd/internal/shared/models"
)

type stubQuickAdder struct {
	lastUserID string
	result     *service.Result
}

func (s *stubQuickAdder) QuickAdd(ctx context.Context, userID, itemName, recipientContext string) *service.Result {
	s.lastUserID = userID
	return s.result
}

type stubBudgetReader struct {
	snapshot *models.BudgetSnapshot
	err      error
}

func (s *stubBudgetReader) Snapshot(ctx context.Context, userID string) (*models.BudgetSnapshot, error) {
	return s.snapshot, s.err
}

func authed(r *http.Request) *http.Request {
	key := &models.APIKey{ID: "key-1", UserID: "user-1"}
	return r.WithContext(context.WithValue(r.Context(), "api_key", key))
}

func TestHandleQuickAddSuccess(t *testing.T) {
	stub := &stubQuickAdder{result: &service.Result{
		Success: true,
		Data:    &models.SuggestionPayload{Description: "d"},
		Cached:  true,
	}}
	h := NewQuickAddHandler(stub)

	req := authed(httptest.NewRequest("POST", "/api/ai/quick-add", strings.NewReader(`{"itemName":"wireless headphones"}`)))
	rec := httptest.NewRecorder()
	h.HandleQuickAdd(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", stub.lastUserID)

	var res service.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, res.Cached)
}

func TestHandleQuickAddStatusMapping(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{service.CodeInvalidInput, http.StatusBadRequest},
		{service.CodeBudgetExceeded, http.StatusTooManyRequests},
		{service.CodeRateLimited, http.StatusTooManyRequests},
		{service.CodeAIFailure, http.StatusInternalServerError},
		{service.CodeUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			stub := &stubQuickAdder{result: &service.Result{Success: false, Error: "nope", Code: tt.code}}
			h := NewQuickAddHandler(stub)

			req := authed(httptest.NewRequest("POST", "/api/ai/quick-add", strings.NewReader(`{"itemName":"wireless headphones"}`)))
			rec := httptest.NewRecorder()
			h.HandleQuickAdd(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandleQuickAddUnauthorized(t *testing.T) {
	h := NewQuickAddHandler(&stubQuickAdder{})

	req := httptest.NewRequest("POST", "/api/ai/quick-add", strings.NewReader(`{"itemName":"wireless headphones"}`))
	rec := httptest.NewRecorder()
	h.HandleQuickAdd(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestHandleQuickAddBadBody(t *testing.T) {
	h := NewQuickAddHandler(&stubQuickAdder{})

	req := authed(httptest.NewRequest("POST", "/api/ai/quick-add", strings.NewReader(`{not json`)))
	rec := httptest.NewRecorder()
	h.HandleQuickAdd(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeInvalidInput)
}

func TestHandleGetBudget(t *testing.T) {
	h := NewBudgetHandler(&stubBudgetReader{snapshot: &models.BudgetSnapshot{
		RemainingCents:             750,
		TotalCents:                 1000,
		PercentUsed:                25,
		EstimatedRequestsRemaining: 23734,
		EstimatedTotalRequests:     31645,
	}})

	req := authed(httptest.NewRequest("GET", "/api/ai/budget", nil))
	rec := httptest.NewRecorder()
	h.HandleGetBudget(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var res budgetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, 750, res.Data.RemainingCents)
	assert.Equal(t, 25, res.Data.PercentUsed)
}

func TestHandleGetBudgetUnauthorized(t *testing.T) {
	h := NewBudgetHandler(&stubBudgetReader{})

	req := httptest.NewRequest("GET", "/api/ai/budget", nil)
	rec := httptest.NewRecorder()
	h.HandleGetBudget(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGetBudgetError(t *testing.T) {
	h := NewBudgetHandler(&stubBudgetReader{err: errors.New("connection refused")})

	req := authed(httptest.NewRequest("GET", "/api/ai/budget", nil))
	rec := httptest.NewRecorder()
	h.HandleGetBudget(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type stubKeyStore struct {
	key *models.APIKey
}

func (s *stubKeyStore) GetAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	if s.key == nil {
		return nil, errors.New("invalid API key")
	}
	return s.key, nil
}

type stubLimiter struct {
	exceeded bool
	err      error
}

func (s *stubLimiter) CheckRateLimit(ctx context.Context, userID string, limit int) (bool, int, error) {
	return s.exceeded, 0, s.err
}

func TestAuthMiddleware(t *testing.T) {
	key := &models.APIKey{ID: "key-1", UserID: "user-1"}
	mw := NewMiddleware(&stubKeyStore{key: key}, &stubLimiter{}, 20)

	var gotKey *models.APIKey
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey, _ = r.Context().Value("api_key").(*models.APIKey)
	})

	req := httptest.NewRequest("GET", "/api/ai/budget", nil)
	req.Header.Set("Authorization", "Bearer gl_test_key")
	rec := httptest.NewRecorder()
	mw.AuthMiddleware(next).ServeHTTP(rec, req)

	require.NotNil(t, gotKey)
	assert.Equal(t, "user-1", gotKey.UserID)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	mw := NewMiddleware(&stubKeyStore{}, &stubLimiter{}, 20)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	for _, header := range []string{"", "gl_test_key", "Basic gl_test_key", "Bearer unknown"} {
		req := httptest.NewRequest("GET", "/api/ai/budget", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw.AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRateLimitMiddlewareExceeded(t *testing.T) {
	mw := NewMiddleware(&stubKeyStore{}, &stubLimiter{exceeded: true}, 20)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := authed(httptest.NewRequest("POST", "/api/ai/quick-add", nil))
	rec := httptest.NewRecorder()
	mw.RateLimitMiddleware(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), service.CodeRateLimited)
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	mw := NewMiddleware(&stubKeyStore{}, &stubLimiter{err: errors.New("connection refused")}, 20)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := authed(httptest.NewRequest("POST", "/api/ai/quick-add", nil))
	rec := httptest.NewRecorder()
	mw.RateLimitMiddleware(next).ServeHTTP(rec, req)

	assert.True(t, called)
}
