// Package controllers handles HTTP request handling
package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/middleware"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/helpers"
)

// bindingError answers a request whose body or query failed to bind
func bindingError(ctx *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		middleware.HandleAPIError(ctx, apperrors.NewCustomError(apperrors.ErrFileTooLarge, "Request body too large"))
		return
	}
	ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}

// bindOptionalJSON binds a JSON body that may be omitted entirely
func bindOptionalJSON(ctx *gin.Context, obj interface{}) error {
	if ctx.Request.ContentLength == 0 {
		return nil
	}
	if err := ctx.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID reads a positive id path parameter, answering 400 when it is malformed
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, ok := helpers.ParseIDParam(ctx, name)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid "+name).WithField(name)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
	}
	return id, ok
}

func ok(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: data})
}

func created(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: data})
}
