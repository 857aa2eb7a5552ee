package http_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/shelf"
	shelfhttp "github.com/sagarc03/shelf/http"
	"github.com/stretchr/testify/assert"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation error",
			err:        fmt.Errorf("update item: %w", &shelf.ValidationError{Msg: "name is required"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"name is required"}`,
		},
		{
			name:       "bare invalid input",
			err:        shelf.ErrInvalidInput,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid input"}`,
		},
		{
			name:       "unauthorized",
			err:        shelf.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:       "forbidden",
			err:        shelf.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"Forbidden"}`,
		},
		{
			name:       "not found",
			err:        shelf.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Item not found"}`,
		},
		{
			name:       "too large",
			err:        shelfhttp.ErrBodyTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   `{"error":"Request body too large"}`,
		},
		{
			name:       "internal",
			err:        shelf.ErrInternal,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal server error"}`,
		},
		{
			name:       "unknown",
			err:        errors.New("kaboom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			shelfhttp.HandleError(rec, httptest.NewRequest("GET", "/items", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHandleError_UnauthorizedSetsChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	shelfhttp.HandleError(rec, httptest.NewRequest("GET", "/items", nil), shelf.ErrUnauthorized)

	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestHandleError_CanceledWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	shelfhttp.HandleError(rec, httptest.NewRequest("GET", "/items", nil), fmt.Errorf("list: %w", context.Canceled))

	assert.Empty(t, rec.Body.String())
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := shelfhttp.WriteJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}
