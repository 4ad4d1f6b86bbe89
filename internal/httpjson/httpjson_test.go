package httpjson

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_DefaultsToStatusText(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusTooManyRequests, "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, w.Body.String())
}

func TestWrite_EncodesValue(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, http.StatusOK, map[string]string{"status": "ok"})
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
