package validation

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/noteverse/internal/app/models"
)

// RegisterCustomValidators adds the project specific tags to gin's validator.
func RegisterCustomValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return RegisterOn(v)
}

// RegisterOn registers the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("resourcetype", validateResourceType); err != nil {
		return fmt.Errorf("register resourcetype: %w", err)
	}
	return nil
}

func validateResourceType(fl validator.FieldLevel) bool {
	return models.ResourceType(fl.Field().String()).Valid()
}
