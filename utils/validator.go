package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the struct's validate tags and flattens failures into
// one readable error for the API response.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errs = append(errs, field+" is required")
		case "min":
			errs = append(errs, field+" must be at least "+param+" characters")
		case "max":
			errs = append(errs, field+" must be at most "+param+" characters")
		case "oneof":
			errs = append(errs, field+" must be one of: "+param)
		default:
			errs = append(errs, field+" is invalid")
		}
	}

	return fmt.Errorf(strings.Join(errs, ", "))
}
