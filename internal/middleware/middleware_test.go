package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "noteverse-test",
	})
}

func accessToken(t *testing.T, svc *auth.JWTService, role models.RoleType) string {
	t.Helper()
	pair, err := svc.GenerateTokenPair(&models.User{ID: 7, Email: "aditi@example.com", Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type recordingReporter struct {
	errors   []error
	critical []error
}

func (r *recordingReporter) Error(_ *http.Request, err error, _ map[string]interface{}) {
	r.errors = append(r.errors, err)
}

func (r *recordingReporter) Critical(_ *http.Request, err error, _ map[string]interface{}) {
	r.critical = append(r.critical, err)
}

func (r *recordingReporter) Flush() {}

func TestJWTAuth(t *testing.T) {
	svc := newJWT()
	mw := NewAuthMiddleware(svc, "jwt_token")
	r := gin.New()
	r.GET("/me", mw.JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "role": Actor(c).Role})
	})
	token := accessToken(t, svc, models.RoleUser)

	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token}) }, http.StatusOK, ""},
		{"bearer header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, ""},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"garbage", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"stale cookie falls back to header", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "jwt_token", Value: "stale"})
			req.Header.Set("Authorization", "Bearer "+token)
		}, http.StatusOK, ""},
		{"stale cookie without header", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "jwt_token", Value: "stale"})
		}, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"valid cookie with garbage header", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
			req.Header.Set("Authorization", "Bearer nope")
		}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
			} else {
				assert.JSONEq(t, `{"id":7,"role":"user"}`, w.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	svc := newJWT()
	mw := NewAuthMiddleware(svc, "jwt_token")
	r := gin.New()
	r.GET("/feed", mw.OptionalAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, fmt.Sprint(UserID(c)))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feed", nil))
	assert.Equal(t, "0", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, svc, models.RoleUser))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "7", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: "stale"})
	req.Header.Set("Authorization", "Bearer "+accessToken(t, svc, models.RoleUser))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "7", w.Body.String())
}

func TestRoleRequired(t *testing.T) {
	svc := newJWT()
	mw := NewAuthMiddleware(svc, "")
	r := gin.New()
	r.GET("/admin", mw.JWTAuth(), mw.RoleRequired(models.RoleAdmin, models.RoleOperator), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for role, want := range map[models.RoleType]int{
		models.RoleUser:     http.StatusForbidden,
		models.RoleOperator: http.StatusNoContent,
		models.RoleAdmin:    http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t, svc, role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, string(role))
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    dto.ErrorCode
		wantMessage string
	}{
		{"user not found", apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
		{"wrapped file not found", fmt.Errorf("load: %w", apperrors.ErrStudyResourceNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "File not found"},
		{"forbidden", apperrors.NewForbiddenError("only the owner can do this"), http.StatusForbidden, dto.ErrorCodeForbidden, "only the owner can do this"},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid email or password"},
		{"duplicate email", apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "User already exists"},
		{"missing metadata", apperrors.ErrMissingMetadata, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Missing mandatory metadata: branch or subject"},
		{"too large", apperrors.NewCustomError(apperrors.ErrFileTooLarge, "File size exceeds 10 MB limit"), http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge, "File size exceeds 10 MB limit"},
		{"not a pdf", apperrors.ErrUnsupportedFileType, http.StatusForbidden, dto.ErrorCodeUnsupportedMedia, "Invalid file type. Only PDFs are allowed."},
		{"revoked", apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
		})
	}
}

func TestHandleAPIErrorValidationField(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, apperrors.NewValidationError("text", "Comment cannot be empty"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "text", resp.Error.Field)
	assert.Equal(t, "Comment cannot be empty", resp.Error.Message)
}

func TestServerErrorsAreReported(t *testing.T) {
	reporter := &recordingReporter{}
	r := gin.New()
	r.Use(Recovery(reporter), ErrorReporting(reporter))
	r.GET("/fail", func(c *gin.Context) { HandleAPIError(c, errors.New("db down")) })
	r.GET("/notfound", func(c *gin.Context) { HandleAPIError(c, apperrors.ErrUserNotFound) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	for _, path := range []string{"/fail", "/notfound", "/panic"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, reporter.errors, 1)
	assert.EqualError(t, reporter.errors[0], "db down")
	require.Len(t, reporter.critical, 1)
	assert.Contains(t, reporter.critical[0].Error(), "boom")
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(60, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("2.2.2.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("1.1.1.1"), "one token refills per second at 60 rpm")

	now = now.Add(idleLimiterTTL + time.Second)
	limiter.Sweep()
	assert.Empty(t, limiter.clients)
}

func TestRateLimiterMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewRateLimiter(1, 1).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrorCodeRateLimited, decodeError(t, w).Error.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}, true))
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestID")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
}
