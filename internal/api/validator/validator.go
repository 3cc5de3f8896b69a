package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"scopedrest/internal/api/registry"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Field names in errors follow the request parameter names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "param", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if err := v.RegisterValidation("resource_name", validateResourceName); err != nil {
		panic(err)
	}

	return &CustomValidator{validator: v}
}

func validateResourceName(fl playgroundvalidator.FieldLevel) bool {
	return registry.ValidName(fl.Field().String())
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// ResourceParams are the path parameters shared by every resource route.
type ResourceParams struct {
	Resource string `param:"resource" validate:"required,resource_name"`
	ID       string `param:"id" validate:"omitempty,max=64"`
	Nested   string `param:"nested" validate:"omitempty,resource_name"`
}

// ListParams is a list or nested-list request. Show uses the same struct
// and ignores the paging fields.
type ListParams struct {
	ResourceParams
	Q       string `query:"q"`
	Select  string `query:"select"`
	Include string `query:"include"`
	Sort    string `query:"sort"`
	Order   string `query:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page    int    `query:"page" validate:"gte=0,lte=1000000"`
	PerPage int    `query:"per_page" validate:"gte=0"`
}

// SelectNames splits the comma-separated select parameter.
func (p ListParams) SelectNames() []string { return splitNames(p.Select) }

// IncludeNames splits the comma-separated include parameter.
func (p ListParams) IncludeNames() []string { return splitNames(p.Include) }

func splitNames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
