package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authz "github.com/yigit/noteverse/internal/app/auth"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	cookieName string
}

// NewAuthMiddleware creates a new AuthMiddleware. Tokens are read from the
// session cookie first and the Authorization header second; a cookie that
// does not hold a valid token does not hide a valid header.
func NewAuthMiddleware(jwtService *auth.JWTService, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		cookieName: cookieName,
	}
}

var errNoToken = errors.New("no session token provided")

// tokens lists the candidate tokens in the order they are tried
func (m *AuthMiddleware) tokens(c *gin.Context) []string {
	var out []string
	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
			out = append(out, cookie)
		}
	}
	if header := c.GetHeader("Authorization"); header != "" {
		if token, err := auth.ExtractBearerToken(strings.Trim(header, "\"'")); err == nil && token != "" {
			out = append(out, token)
		}
	}
	return out
}

// authenticate returns the claims of the first candidate token that parses.
// When none does, the error of the last candidate is returned.
func (m *AuthMiddleware) authenticate(c *gin.Context) (*auth.Claims, error) {
	err := errNoToken
	for _, token := range m.tokens(c) {
		var claims *auth.Claims
		if claims, err = m.jwtService.ParseAccessToken(token); err == nil {
			return claims, nil
		}
	}
	return nil, err
}

func unauthorized(c *gin.Context, code dto.ErrorCode, details string) {
	detail := dto.NewErrorDetail(code, "Authentication required").WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(detail))
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.authenticate(c)
		switch {
		case err == nil:
		case errors.Is(err, errNoToken):
			unauthorized(c, dto.ErrorCodeUnauthorized, "No session token provided")
			return
		case errors.Is(err, auth.ErrExpiredToken):
			unauthorized(c, dto.ErrorCodeExpiredToken, "Token has expired")
			return
		default:
			unauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the caller's identity when a valid token is present and
// lets anonymous requests through otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := m.authenticate(c); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.RoleType)
}

// RoleRequired middleware to check if user has one of the allowed roles.
// It must run after JWTAuth.
func (m *AuthMiddleware) RoleRequired(allowed ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextRole)
		if !ok {
			unauthorized(c, dto.ErrorCodeUnauthorized, "User role not found")
			return
		}

		roleType, _ := role.(models.RoleType)
		for _, r := range allowed {
			if roleType == r {
				c.Next()
				return
			}
		}

		detail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
			WithDetails("You don't have sufficient permissions for this operation")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(detail))
	}
}

// UserID returns the authenticated user's id, or 0 for anonymous requests
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// Actor returns the authenticated caller as an authorization actor
func Actor(c *gin.Context) authz.Actor {
	role, _ := c.Get(ContextRole)
	roleType, _ := role.(models.RoleType)
	return authz.Actor{UserID: UserID(c), Role: roleType}
}
