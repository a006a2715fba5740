package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-generator/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
)

const (
	// ContextKeyClaims is the gin context key for storing extracted claims.
	ContextKeyClaims = "claims"

	// RoleEditor may add, import, filter, and sync quotes.
	RoleEditor = "editor"

	// RoleAdmin implies every editor permission.
	RoleAdmin = "admin"

	// ScopeQuotesWrite grants editor permissions to OAuth2 clients without roles.
	ScopeQuotesWrite = "quotes:write"

	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
	defaultScopesHeader  = "X-User-Scopes"
)

// Claims represents user claims extracted from gateway headers.
// The gateway validates the JWT and passes claims via headers.
type Claims struct {
	Subject string
	Roles   []string
	Scopes  []string
}

// HasRole checks if the user has the specified role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole checks if the user has any of the specified roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

// HasScope checks if the user has the specified scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ExtractClaims extracts user claims from request headers.
// Header names are configurable via AuthConfig.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader := defaultSubjectHeader
	rolesHeader := defaultRolesHeader
	scopesHeader := defaultScopesHeader

	if cfg != nil {
		subjectHeader = cmpOr(cfg.SubjectHeader, subjectHeader)
		rolesHeader = cmpOr(cfg.RolesHeader, rolesHeader)
		scopesHeader = cmpOr(cfg.ScopesHeader, scopesHeader)
	}

	claims := &Claims{Subject: c.GetHeader(subjectHeader)}

	if roles := c.GetHeader(rolesHeader); roles != "" {
		claims.Roles = parseCommaSeparated(roles)
	}

	// OAuth2 scopes are space separated.
	if scopes := c.GetHeader(scopesHeader); scopes != "" {
		claims.Scopes = strings.Fields(scopes)
	}

	return claims
}

func cmpOr(v, fallback string) string {
	if v != "" {
		return v
	}

	return fallback
}

// GetClaims retrieves claims from the gin context, or nil.
func GetClaims(c *gin.Context) *Claims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		if cl, ok := claims.(*Claims); ok {
			return cl
		}
	}

	return nil
}

// RequireEditor returns middleware that admits an authenticated subject
// holding the editor or admin role, or the quotes:write scope. When auth is
// disabled in cfg every request passes unchanged.
func RequireEditor(cfg *config.AuthConfig) gin.HandlerFunc {
	return requireClaims(cfg, "role "+RoleEditor+" or scope "+ScopeQuotesWrite+" required", func(cl *Claims) bool {
		return cl.HasAnyRole(RoleEditor, RoleAdmin) || cl.HasScope(ScopeQuotesWrite)
	})
}

func requireClaims(cfg *config.AuthConfig, requirement string, allowed func(*Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		claims := GetClaims(c)
		if claims == nil {
			claims = ExtractClaims(c, cfg)
			c.Set(ContextKeyClaims, claims)
		}

		if claims.Subject == "" {
			abortWithStatus(c, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		if !allowed(claims) {
			abortWithStatus(c, http.StatusForbidden, dto.ErrorCodeForbidden, "insufficient permissions: "+requirement)
			return
		}

		c.Next()
	}
}

func abortWithStatus(c *gin.Context, status int, code, message string) {
	errResp := dto.NewErrorResponse(code, message).WithTraceID(dto.GetTraceID(c))
	c.AbortWithStatusJSON(status, errResp)
}

func parseCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")

	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
