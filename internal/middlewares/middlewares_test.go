package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mariakisialiova/itechart-quiz/internal/middlewares"
	"github.com/stretchr/testify/assert"
)

func TestRecoverer(t *testing.T) {
	var called bool
	onPanic := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	}

	h := middlewares.Recoverer(onPanic)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.True(t, called)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	abort := middlewares.Recoverer(onPanic)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.Panics(t, func() { abort.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)) })
}

func TestRequestLogger(t *testing.T) {
	h := middlewares.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
