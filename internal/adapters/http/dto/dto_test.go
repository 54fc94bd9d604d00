package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}

	c.Request = r

	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[string]int{
		ErrorCodeNotFound:    http.StatusNotFound,
		ErrorCodeConflict:    http.StatusConflict,
		ErrorCodeValidation:  http.StatusBadRequest,
		ErrorCodeBadRequest:  http.StatusBadRequest,
		ErrorCodeTooLarge:    http.StatusRequestEntityTooLarge,
		ErrorCodeUpstream:    http.StatusBadGateway,
		ErrorCodeUnavailable: http.StatusServiceUnavailable,
		ErrorCodeTimeout:     http.StatusGatewayTimeout,
		ErrorCodeInternal:    http.StatusInternalServerError,
		"SOMETHING_ELSE":     http.StatusInternalServerError,
	}

	for code, want := range tests {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "not found",
			err:         domain.NewNotFoundError("quote", ""),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: "quote not found",
		},
		{
			name:        "conflict",
			err:         domain.NewConflictError("quote", "duplicate"),
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodeConflict,
			wantMessage: "quote conflict",
		},
		{
			name:        "validation carries field details",
			err:         domain.NewValidationError("category", "is required"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "category",
			wantDetails: map[string]string{"category": "is required"},
		},
		{
			name:        "wrapped validation",
			err:         fmt.Errorf("importing quotes: %w", domain.NewValidationError("file", "must be a JSON array")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "file",
			wantDetails: map[string]string{"file": "must be a JSON array"},
		},
		{
			name:        "remote fetch",
			err:         domain.NewRemoteFetchError("quote-remote", errors.New("dial tcp")),
			wantStatus:  http.StatusBadGateway,
			wantCode:    ErrorCodeUpstream,
			wantMessage: "quote-remote fetch",
		},
		{
			name:        "remote post",
			err:         domain.NewRemotePostError("quote-remote", errors.New("500")),
			wantStatus:  http.StatusBadGateway,
			wantCode:    ErrorCodeUpstream,
			wantMessage: "quote-remote post",
		},
		{
			name:        "unavailable",
			err:         domain.NewUnavailableError("storage", "locked"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrorCodeUnavailable,
			wantMessage: "locked",
		},
		{
			name:        "body too large",
			err:         fmt.Errorf("reading: %w", &http.MaxBytesError{Limit: 10}),
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    ErrorCodeTooLarge,
			wantMessage: "too large",
		},
		{
			name:        "unknown error hides its text",
			err:         errors.New("disk on fire"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/", "")

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMessage)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
			assert.Empty(t, resp.TraceID)
		})
	}
}

func TestAbortWithCode(t *testing.T) {
	t.Run("writes envelope and aborts", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")

		AbortWithCode(c, ErrorCodeTimeout, "request timeout exceeded")

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Equal(t, ErrorCodeTimeout, decodeError(t, w).Error.Code)
	})

	t.Run("leaves a written response alone", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		c.String(http.StatusOK, "done")

		AbortWithCode(c, ErrorCodeInternal, "late")

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "done", w.Body.String())
	})
}

func TestPageRequest_PageSize(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: DefaultLimit},
		{limit: -3, want: DefaultLimit},
		{limit: 1, want: 1},
		{limit: 50, want: 50},
		{limit: MaxLimit + 1, want: MaxLimit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PageRequest{Limit: tt.limit}.PageSize(), "limit=%d", tt.limit)
	}
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty is first page", func(t *testing.T) {
		c, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Equal(t, Cursor{}, c)
	})

	t.Run("round trip", func(t *testing.T) {
		want := Cursor{Offset: 40, Scope: "Motivation"}

		got, err := DecodeCursor(EncodeCursor(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	for _, bad := range []string{"!!!", "bm90LWpzb24", EncodeCursor(Cursor{Offset: -1})} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := DecodeCursor(bad)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	first, err := Paginate(items, PageRequest{Limit: 2}, "all")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, first.Items)
	assert.True(t, first.HasMore)
	assert.Equal(t, 5, first.Total)
	require.NotEmpty(t, first.NextCursor)

	second, err := Paginate(items, PageRequest{Limit: 2, Cursor: first.NextCursor}, "all")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, second.Items)

	last, err := Paginate(items, PageRequest{Limit: 2, Cursor: second.NextCursor}, "all")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, last.Items)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)

	t.Run("cursor from another scope", func(t *testing.T) {
		_, err := Paginate(items, PageRequest{Cursor: first.NextCursor}, "Motivation")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("cursor past the end", func(t *testing.T) {
		_, err := Paginate(items, PageRequest{Cursor: EncodeCursor(Cursor{Offset: 9, Scope: "all"})}, "all")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("empty listing encodes as empty array", func(t *testing.T) {
		page, err := Paginate([]int(nil), PageRequest{}, "all")
		require.NoError(t, err)

		raw, err := json.Marshal(page)
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[],"hasMore":false,"total":0}`, string(raw))
	})
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantDetails map[string]string
	}{
		{
			name:     "malformed json",
			body:     `{"text":`,
			wantCode: ErrorCodeBadRequest,
		},
		{
			name:        "blank fields",
			body:        `{"text":"   ","category":""}`,
			wantCode:    ErrorCodeValidation,
			wantDetails: map[string]string{"text": "must not be blank", "category": "must not be blank"},
		},
		{
			name:        "category too long",
			body:        `{"text":"ok","category":"` + strings.Repeat("x", 101) + `"}`,
			wantCode:    ErrorCodeValidation,
			wantDetails: map[string]string{"category": "must be at most 100 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, "/", tt.body)

			var req QuoteRequest

			err := BindJSON(c, &req)
			require.Error(t, err)

			RespondBindError(c, err)

			resp := decodeError(t, w)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}

	t.Run("valid body is trimmed by ToDomain", func(t *testing.T) {
		c, _ := newTestContext(http.MethodPost, "/", `{"text":"  Stay hungry. ","category":" Motivation "}`)

		var req QuoteRequest
		require.NoError(t, BindJSON(c, &req))
		assert.Equal(t, domain.Quote{Text: "Stay hungry.", Category: "Motivation"}, req.ToDomain())
	})
}

func TestRespondBindError_TooLarge(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/", "")
	c.Request.Body = http.MaxBytesReader(w, nopBody{bytes.NewBufferString(`{"text":"long enough"}`)}, 4)
	c.Request.Header.Set("Content-Type", "application/json")

	var req QuoteRequest

	err := BindJSON(c, &req)
	require.Error(t, err)

	RespondBindError(c, err)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, ErrorCodeTooLarge, decodeError(t, w).Error.Code)
}

type nopBody struct{ *bytes.Buffer }

func (nopBody) Close() error { return nil }

func TestBindQuery(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/?limit=500&category=Motivation", "")

	var q ListQuotesRequest

	err := BindQuery(c, &q)
	require.Error(t, err)

	RespondBindError(c, err)

	assert.Equal(t, map[string]string{"limit": "must be at most 100"}, decodeError(t, w).Error.Details)
	assert.Equal(t, "Motivation", q.Category)
}
