package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-generator/internal/app"
	"github.com/jsamuelsen/quote-generator/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))

	return c, w
}

func TestWithTraceID(t *testing.T) {
	resp := NewErrorResponse(ErrorCodeInternal, "internal error")

	got := resp.WithTraceID("trace-123")

	assert.Same(t, resp, got)
	assert.Equal(t, "trace-123", got.TraceID)
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeParse, http.StatusBadRequest},
		{ErrorCodeBadRequest, http.StatusBadRequest},
		{ErrorCodeForbidden, http.StatusForbidden},
		{ErrorCodeUnauthorized, http.StatusUnauthorized},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeTimeout, http.StatusGatewayTimeout},
		{ErrorCodeInternal, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromCode(tt.code))
		})
	}
}

func TestGetTraceID(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{
			name:  "trace ID in context",
			setup: func(c *gin.Context) { c.Set("trace_id", "context-trace-123") },
			want:  "context-trace-123",
		},
		{
			name:  "request ID header",
			setup: func(c *gin.Context) { c.Request.Header.Set("X-Request-ID", "header-456") },
			want:  "header-456",
		},
		{
			name: "context takes precedence",
			setup: func(c *gin.Context) {
				c.Set("trace_id", "context-trace-123")
				c.Request.Header.Set("X-Request-ID", "header-456")
			},
			want: "context-trace-123",
		},
		{
			name: "generated request ID",
			setup: func(c *gin.Context) {
				c.Set("request_id", "generated-789")
				c.Request.Header.Set("X-Request-ID", "header-456")
			},
			want: "generated-789",
		},
		{
			name:  "wrong type in context",
			setup: func(c *gin.Context) { c.Set("trace_id", 12345) },
			want:  "",
		},
		{
			name:  "nothing set",
			setup: func(*gin.Context) {},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/", "")
			tt.setup(c)

			assert.Equal(t, tt.want, GetTraceID(c))
		})
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
			name:        "validation error carries the field",
			err:         domain.NewValidationError("category", "must not be empty"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "category",
			wantDetails: map[string]string{"category": "must not be empty"},
		},
		{
			name:        "parse error",
			err:         domain.NewParseError("import", "top-level value is not an array", nil),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeParse,
			wantMessage: "not an array",
		},
		{
			name:        "not found",
			err:         domain.NewNotFoundError("slot", "quotes"),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: "quotes",
		},
		{
			name:        "forbidden",
			err:         domain.NewForbiddenError("sync", "rejected by remote"),
			wantStatus:  http.StatusForbidden,
			wantCode:    ErrorCodeForbidden,
			wantMessage: "sync",
		},
		{
			name:        "unavailable hides the cause",
			err:         domain.NewUnavailableError("remote-quotes", "dial tcp: connection refused"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrorCodeUnavailable,
			wantMessage: "temporarily unavailable",
		},
		{
			name:        "unknown error",
			err:         errors.New("disk on fire"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: "internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/", "")
			c.Set("trace_id", "trace-abc")

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMessage)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
			assert.Equal(t, "trace-abc", resp.TraceID)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}

func TestHandleError_Nil(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")

	HandleError(c, nil)

	assert.Empty(t, w.Body.String())
}

func TestGetLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-1, DefaultLimit},
		{50, 50},
		{150, MaxLimit},
		{1, 1},
	}

	for _, tt := range tests {
		p := &PaginationRequest{Limit: tt.limit}
		assert.Equal(t, tt.want, p.GetLimit(), "limit %d", tt.limit)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	first := Paginate(items, 0, 2, "all")
	assert.Equal(t, []int{0, 1}, first.Items)
	assert.True(t, first.HasMore)
	assert.Equal(t, 5, first.Total)

	cursor, err := DecodeCursor(first.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, &CursorData{Offset: 2, Category: "all"}, cursor)

	last := Paginate(items, 4, 2, "all")
	assert.Equal(t, []int{4}, last.Items)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)

	beyond := Paginate(items, 10, 2, "all")
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
}

func TestDecodeCursor(t *testing.T) {
	_, err := DecodeCursor("")
	require.ErrorIs(t, err, ErrNoCursor)

	_, err = DecodeCursor("not-base64!!!")
	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor(EncodeCursor(&CursorData{Offset: -3}))
	require.ErrorIs(t, err, ErrInvalidCursor)

	p := &PaginationRequest{}
	_, err = p.DecodeCursor()
	require.ErrorIs(t, err, ErrNoCursor)
}

func TestValidate_CreateQuoteRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateQuoteRequest
		wantfield string
	}{
		{"valid", CreateQuoteRequest{Text: "Stay hungry.", Category: "Life"}, ""},
		{"blank text", CreateQuoteRequest{Text: "   ", Category: "Life"}, "text"},
		{"blank category", CreateQuoteRequest{Text: "Stay hungry.", Category: ""}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req)
			if tt.wantfield == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, "must not be empty", ValidationErrors(err)[tt.wantfield])
		})
	}
}

func TestBindAndValidate(t *testing.T) {
	c, _ := newTestContext(http.MethodPost, "/", `{"text":"Stay hungry.","category":"Life"}`)
	c.Request.Header.Set("Content-Type", "application/json")

	var req CreateQuoteRequest
	require.NoError(t, BindAndValidate(c, &req))
	assert.Equal(t, "Life", req.Category)

	c, _ = newTestContext(http.MethodPost, "/", `{"text":`)
	c.Request.Header.Set("Content-Type", "application/json")
	require.ErrorIs(t, BindAndValidate(c, &req), ErrBinding)
}

func TestBindFormAndValidate(t *testing.T) {
	c, _ := newTestContext(http.MethodPost, "/", "text=Stay+hungry.&category=")
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var req CreateQuoteRequest
	err := BindFormAndValidate(c, &req)

	require.Error(t, err)
	assert.Contains(t, ValidationErrors(err), "category")
}

func TestRespondBindError(t *testing.T) {
	var req CreateQuoteRequest
	validationErr := Validate(&req)

	c, w := newTestContext(http.MethodPost, "/", "")
	RespondBindError(c, validationErr)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 2)

	c, w = newTestContext(http.MethodPost, "/", "")
	RespondBindError(c, ErrBinding)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodeBadRequest, resp.Error.Code)
}

func TestNewDisplayResponse(t *testing.T) {
	shown := NewDisplayResponse(app.Display{
		Quote:    domain.Quote{Text: "Stay hungry.", Category: "Life"},
		Category: "Life",
	})
	require.NotNil(t, shown.Quote)
	assert.Equal(t, "Stay hungry.", shown.Quote.Text)
	assert.False(t, shown.Empty)

	empty := NewDisplayResponse(app.Display{Empty: true, Message: app.NoQuotesMessage, Category: "Nope"})
	assert.Nil(t, empty.Quote)
	assert.Equal(t, app.NoQuotesMessage, empty.Message)
}

func TestNewNotificationResponse(t *testing.T) {
	assert.Equal(t, NotificationResponse{}, NewNotificationResponse(app.Notice{}, false))

	expires := time.Date(2026, 1, 1, 12, 0, 5, 0, time.UTC)
	resp := NewNotificationResponse(app.Notice{ID: "n1", Message: app.SyncedMessage, ExpiresAt: expires}, true)

	assert.True(t, resp.Active)
	assert.Equal(t, app.SyncedMessage, resp.Message)
	assert.Equal(t, expires, *resp.ExpiresAt)
}

func TestNewQuoteResponses_NeverNil(t *testing.T) {
	assert.Equal(t, []QuoteResponse{}, NewQuoteResponses(nil))
}
