package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-guard/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExampleHandler(t *testing.T) {
	h := newHandler(infra.NewFixedWindow(), "tok", zap.NewNop())

	post := func() int {
		r := httptest.NewRequest(http.MethodPost, "/api/quote", nil)
		r.Header.Set("X-Api-Key", "customer-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusAccepted, post())
	}
	assert.Equal(t, http.StatusTooManyRequests, post())

	r := httptest.NewRequest(http.MethodGet, "/api/admin/quotes", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
