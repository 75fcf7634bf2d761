package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/joshua-takyi/nestly/internal/apperror"
)

// validationError turns validator output into a 400 naming the first
// offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation(err.Error())
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperror.Validation(field + " is required")
	case "email":
		return apperror.Validation(field + " must be a valid email address")
	case "min":
		return apperror.Validation(fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
	case "max":
		return apperror.Validation(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "oneof":
		return apperror.Validation(fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
	case "gt":
		return apperror.Validation(fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
	case "eqfield":
		return apperror.Validation("Passwords do not match")
	case "mongodb":
		return apperror.Validation(field + " must be a valid id")
	}
	return apperror.Validation(field + " is invalid")
}

// BindingError maps a request binding failure to a 400. messages replaces
// the generic wording for the named JSON fields.
func BindingError(err error, messages map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation("Invalid request body")
	}
	if msg, ok := messages[verrs[0].Field()]; ok {
		return apperror.Validation(msg)
	}
	return validationError(err)
}
