package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/errorreport"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

const reporterKey = "errorReporter"

// errorRule maps a group of sentinel errors to a response
type errorRule struct {
	targets []error
	status  int
	code    dto.ErrorCode
	message string
}

// Order matters: the specific not-found sentinels come before the generic ones.
var errorRules = []errorRule{
	{[]error{apperrors.ErrUserNotFound}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{[]error{apperrors.ErrStudyResourceNotFound}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "File not found"},
	{[]error{apperrors.ErrCommentNotFound}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Comment not found"},
	{[]error{apperrors.ErrResourceNotFound}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{[]error{apperrors.ErrPermissionDenied}, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{[]error{apperrors.ErrUnsupportedFileType}, http.StatusForbidden, dto.ErrorCodeUnsupportedMedia, "Invalid file type. Only PDFs are allowed."},
	{[]error{apperrors.ErrInvalidCredentials}, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid email or password"},
	{[]error{apperrors.ErrTokenExpired}, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{[]error{apperrors.ErrTokenInvalid, apperrors.ErrTokenRevoked}, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{[]error{apperrors.ErrTokenNotFound}, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{[]error{apperrors.ErrUnauthorized}, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{[]error{apperrors.ErrEmailAlreadyExists}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "User already exists"},
	{[]error{apperrors.ErrResourceAlreadyExists}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{[]error{apperrors.ErrConflict}, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{[]error{apperrors.ErrFileTooLarge}, http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge, "File size exceeds limit"},
	{[]error{apperrors.ErrRateLimited}, http.StatusTooManyRequests, dto.ErrorCodeRateLimited, "Too many requests, slow down"},
	{[]error{apperrors.ErrInvalidEmail}, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{[]error{apperrors.ErrInvalidPassword}, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{[]error{
		apperrors.ErrValidationFailed,
		apperrors.ErrBadRequest,
		apperrors.ErrInvalidFormat,
		apperrors.ErrSelfFollow,
		apperrors.ErrMissingFile,
		apperrors.ErrMissingMetadata,
		apperrors.ErrInvalidVote,
		apperrors.ErrInvalidPasswordResetToken,
		apperrors.ErrPasswordResetTokenUsed,
	}, http.StatusBadRequest, dto.ErrorCodeValidationFailed, ""},
}

// ErrorReporting makes reporter available to HandleAPIError for the rest of the chain
func ErrorReporting(reporter errorreport.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(reporterKey, reporter)
		c.Next()
	}
}

func reporterFrom(c *gin.Context) errorreport.Reporter {
	if r, ok := c.Get(reporterKey); ok {
		if reporter, ok := r.(errorreport.Reporter); ok {
			return reporter
		}
	}
	return errorreport.Noop{}
}

// HandleAPIError writes the response for err. Unmapped errors become 500s and
// are forwarded to the error reporter.
func HandleAPIError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	for _, rule := range errorRules {
		if !apperrors.Is(err, rule.targets[0], rule.targets[1:]...) {
			continue
		}
		fallback := rule.message
		if fallback == "" {
			fallback = capitalize(errorText(err, rule.targets))
		}
		detail := dto.NewErrorDetail(rule.code, apperrors.MessageOf(err, fallback))
		if details := apperrors.DetailsOf(err); details != nil {
			if field, ok := details["field"].(string); ok {
				detail = detail.WithField(field)
			}
			detail = detail.WithDetails(details)
		}
		if rule.status >= http.StatusInternalServerError {
			detail = detail.WithSeverity(dto.ErrorSeverityCritical)
		}
		c.JSON(rule.status, dto.NewErrorResponse(detail))
		return
	}

	code, message := dto.ErrorCodeInternalServer, "Internal server error"
	if errors.Is(err, apperrors.ErrStorageFailure) {
		code, message = dto.ErrorCodeExternalServiceError, apperrors.MessageOf(err, "File upload failed")
	}
	logger.Error().Err(err).Str("path", c.FullPath()).Str("method", c.Request.Method).Msg("Unhandled API error")
	reporterFrom(c).Error(c.Request, err, map[string]interface{}{"route": c.FullPath()})

	detail := dto.NewErrorDetail(code, message).WithSeverity(dto.ErrorSeverityCritical)
	if gin.Mode() == gin.DebugMode {
		detail = detail.WithDebugInfo("%v", err)
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
}

// errorText returns the text of the first sentinel in targets that err wraps
func errorText(err error, targets []error) string {
	for _, t := range targets {
		if errors.Is(err, t) {
			return t.Error()
		}
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// AbortWithError writes the error response and stops the chain
func AbortWithError(c *gin.Context, err error) {
	HandleAPIError(c, err)
	c.Abort()
}

// Recovery turns panics into 500 responses and reports them as critical
func Recovery(reporter errorreport.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
				reporter.Critical(c.Request, err, map[string]interface{}{"path": c.Request.URL.Path})

				detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
					WithSeverity(dto.ErrorSeverityCritical)
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
			}
		}()
		c.Next()
	}
}
