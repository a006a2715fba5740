package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-generator/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(*http.Request) string
	}{
		{
			name:       "request ID",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    func(r *http.Request) string { return RequestIDFromContext(r.Context()) },
		},
		{
			name:       "correlation ID",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    func(r *http.Request) string { return CorrelationIDFromContext(r.Context()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" generated", func(t *testing.T) {
			t.Parallel()

			var fromGin, fromCtx string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				fromGin = tt.fromGin(c)
				fromCtx = tt.fromCtx(c.Request)
				c.Status(http.StatusOK)
			})

			w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))

			require.NoError(t, uuid.Validate(fromGin))
			assert.Equal(t, fromGin, fromCtx)
			assert.Equal(t, fromGin, w.Header().Get(tt.header))
		})

		t.Run(tt.name+" propagated", func(t *testing.T) {
			t.Parallel()

			var fromCtx string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				fromCtx = tt.fromCtx(c.Request)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(tt.header, "upstream-123")

			w := serve(router, req)

			assert.Equal(t, "upstream-123", fromCtx)
			assert.Equal(t, "upstream-123", w.Header().Get(tt.header))
		})
	}
}

func TestGetIDs_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
	assert.Empty(t, GetSessionID(c))

	c.Set(ContextKeyRequestID, 42)
	assert.Empty(t, GetRequestID(c))
}

func TestSession(t *testing.T) {
	t.Parallel()

	cfg := config.SessionConfig{TTL: 30 * time.Minute, CookieName: "quotegen_session"}

	newRouter := func(captured *[2]string) *gin.Engine {
		router := gin.New()
		router.Use(Session(cfg))
		router.GET("/", func(c *gin.Context) {
			captured[0] = GetSessionID(c)
			captured[1] = SessionIDFromContext(c.Request.Context())
		})

		return router
	}

	t.Run("issues a cookie when absent", func(t *testing.T) {
		t.Parallel()

		var got [2]string
		w := serve(newRouter(&got), httptest.NewRequest(http.MethodGet, "/", nil))

		require.NoError(t, uuid.Validate(got[0]))
		assert.Equal(t, got[0], got[1])

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "quotegen_session", cookies[0].Name)
		assert.Equal(t, got[0], cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, 1800, cookies[0].MaxAge)
	})

	t.Run("keeps a valid cookie", func(t *testing.T) {
		t.Parallel()

		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "quotegen_session", Value: id})

		var got [2]string
		serve(newRouter(&got), req)

		assert.Equal(t, id, got[0])
	})

	t.Run("replaces a malformed cookie", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "quotegen_session", Value: "../../etc/passwd"})

		var got [2]string
		serve(newRouter(&got), req)

		assert.NotEqual(t, "../../etc/passwd", got[0])
		require.NoError(t, uuid.Validate(got[0]))
	})
}

func TestClaims(t *testing.T) {
	claims := &Claims{Roles: []string{"viewer", "editor"}, Scopes: []string{"quotes:write"}}

	assert.True(t, claims.HasRole(RoleEditor))
	assert.False(t, claims.HasRole("admin"))
	assert.True(t, claims.HasAnyRole("admin", "viewer"))
	assert.False(t, claims.HasAnyRole())
	assert.True(t, claims.HasScope("quotes:write"))
	assert.False(t, claims.HasScope("quotes:read"))
}

func TestExtractClaims(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.AuthConfig
		headers map[string]string
		want    *Claims
	}{
		{
			name: "default headers",
			headers: map[string]string{
				"X-User-ID":     "user-1",
				"X-User-Roles":  "editor, viewer ,",
				"X-User-Scopes": "quotes:read  quotes:write",
			},
			want: &Claims{
				Subject: "user-1",
				Roles:   []string{"editor", "viewer"},
				Scopes:  []string{"quotes:read", "quotes:write"},
			},
		},
		{
			name: "configured headers",
			cfg:  &config.AuthConfig{SubjectHeader: "X-Sub", RolesHeader: "X-Roles"},
			headers: map[string]string{
				"X-Sub":   "user-2",
				"X-Roles": "editor",
			},
			want: &Claims{Subject: "user-2", Roles: []string{"editor"}},
		},
		{
			name: "no headers",
			want: &Claims{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ExtractClaims(c, tt.cfg))
		})
	}
}

func TestRequireEditor(t *testing.T) {
	t.Parallel()

	enabled := &config.AuthConfig{Enabled: true}

	tests := []struct {
		name       string
		cfg        *config.AuthConfig
		headers    map[string]string
		wantStatus int
	}{
		{"auth disabled passes", &config.AuthConfig{}, nil, http.StatusOK},
		{"nil config passes", nil, nil, http.StatusOK},
		{"missing subject", enabled, map[string]string{"X-User-Roles": "editor"}, http.StatusUnauthorized},
		{"missing role", enabled, map[string]string{"X-User-ID": "u1", "X-User-Roles": "viewer"}, http.StatusForbidden},
		{"editor allowed", enabled, map[string]string{"X-User-ID": "u1", "X-User-Roles": "editor"}, http.StatusOK},
		{"admin allowed", enabled, map[string]string{"X-User-ID": "u1", "X-User-Roles": "viewer,admin"}, http.StatusOK},
		{"write scope allowed", enabled, map[string]string{"X-User-ID": "svc", "X-User-Scopes": "quotes:read quotes:write"}, http.StatusOK},
		{"read scope denied", enabled, map[string]string{"X-User-ID": "svc", "X-User-Scopes": "quotes:read"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.POST("/quotes", RequireEditor(tt.cfg), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/quotes", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			w := serve(router, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "FORBIDDEN")
			}
		})
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		skip      []string
		wantLevel string
	}{
		{"success logs info", "/api/v1/quotes", http.StatusOK, nil, `"level":"INFO"`},
		{"client error logs warn", "/api/v1/quotes", http.StatusBadRequest, nil, `"level":"WARN"`},
		{"server error logs error", "/api/v1/quotes", http.StatusInternalServerError, nil, `"level":"ERROR"`},
		{"ops paths are skipped", "/-/live", http.StatusOK, nil, ""},
		{"configured paths are skipped", "/favicon.ico", http.StatusOK, []string{"/favicon.ico"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			router := gin.New()
			router.Use(Logging(logger, tt.skip...))
			router.GET(tt.path, func(c *gin.Context) { c.Status(tt.status) })

			w := serve(router, httptest.NewRequest(http.MethodGet, tt.path+"?category=Life", nil))
			assert.Equal(t, tt.status, w.Code)

			if tt.wantLevel == "" {
				assert.Empty(t, buf.String())
				return
			}

			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), "request completed")
			assert.Contains(t, buf.String(), "category=Life")
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/panic", func(*gin.Context) { panic("something went wrong") })

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "something went wrong")
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	var hasDeadline, skippedHasDeadline bool

	router := gin.New()
	router.Use(Timeout(time.Second, "/import"))
	router.GET("/quotes", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
	})
	router.GET("/import", func(c *gin.Context) {
		_, skippedHasDeadline = c.Request.Context().Deadline()
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/quotes", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/import", nil))

	assert.True(t, hasDeadline)
	assert.False(t, skippedHasDeadline)
}

func TestParseCommaSeparated(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseCommaSeparated(" a,,b , "))
	assert.Empty(t, parseCommaSeparated(""))
}
