package cerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskmanagement/pkg/clog"
	"github.com/kazz187/taskmanagement/pkg/storage"
)

func TestFrom(t *testing.T) {
	inner := NewError(InvalidArgument, "invalid task id", nil)

	tests := []struct {
		name string
		err  error
		code Code
		msg  string
	}{
		{"typed", inner, InvalidArgument, "invalid task id"},
		{"wrapped typed", fmt.Errorf("ctx: %w", inner), InvalidArgument, "invalid task id"},
		{"canceled", fmt.Errorf("find: %w", context.Canceled), Canceled, "connection closed"},
		{"plain", errors.New("boom"), Unknown, "unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.msg, got.Msg)
		})
	}
	assert.Nil(t, From(nil))
}

func TestNewErrorStack(t *testing.T) {
	assert.NotEmpty(t, NewError(Internal, "server error", nil).Stack)
	assert.Empty(t, NewError(NotFound, "not found", nil).Stack)
}

func TestCodeMapping(t *testing.T) {
	assert.Equal(t, "invalid_argument", InvalidArgument.String())
	assert.Equal(t, http.StatusBadRequest, InvalidArgument.HTTPCode())
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPCode())
	assert.Equal(t, http.StatusInternalServerError, Internal.HTTPCode())
	assert.Equal(t, "unknown", Code(99).String())
}

func TestWrapStorageErrors(t *testing.T) {
	notFound := fmt.Errorf("tasks/x.yaml: %w", storage.ErrNotFound)
	assert.True(t, IsCode(WrapStorageReadError("task", notFound), NotFound))
	assert.True(t, IsCode(WrapStorageDeleteError("task", notFound), NotFound))
	assert.True(t, IsCode(WrapStorageReadError("task", errors.New("io")), Internal))
	assert.True(t, IsCode(WrapStorageWriteError("task", errors.New("io")), Internal))
	assert.True(t, IsCode(WrapStorageListError("tasks", errors.New("io")), Internal))
}

func TestJSONResponseChiMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		body    string
	}{
		{
			name: "response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponse(r.Context(), map[string]any{"acknowledged": true})
			},
			status: http.StatusOK,
			body:   `{"acknowledged":true}`,
		},
		{
			name: "null response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponse(r.Context(), nil)
			},
			status: http.StatusOK,
			body:   `null`,
		},
		{
			name: "typed error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetNewJSONError(r.Context(), NotFound, "Task not found or already updated", nil)
			},
			status: http.StatusNotFound,
			body:   `{"code":"not_found","error":"Task not found or already updated"}`,
		},
		{
			name: "untyped error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONError(r.Context(), errors.New("driver exploded"))
			},
			status: http.StatusInternalServerError,
			body:   `{"code":"unknown","error":"unknown error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJSONResponseChiMiddleware()(tt.handler)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteJSONErrorRecordsError(t *testing.T) {
	ctx := clog.ContextWithSlog(context.Background())
	underlying := errors.New("connection refused")
	rec := httptest.NewRecorder()

	WriteJSONError(ctx, rec, NewError(Internal, "server error", underlying))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.ErrorIs(t, clog.GetError(ctx), underlying)
	assert.NotEmpty(t, clog.GetStack(ctx))
}

func TestJSONResponseChiMiddlewareHandlerWrote(t *testing.T) {
	h := NewJSONResponseChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(r.Context(), w, NewError(NotFound, "not found", nil))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/allTask", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":"not_found","error":"not found"}`, rec.Body.String())
}
