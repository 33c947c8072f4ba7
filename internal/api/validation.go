package api

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type ValidationError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type BadRequestErrorResponse struct {
	Message string            `json:"message"`
	Details []ValidationError `json:"details"`
}

// validateBatch checks the request-level shape of each command. Business
// validation (ids, amounts) happens in the engine so a bad command becomes a
// batch error instead of rejecting the whole submission.
func validateBatch(reqs []CommandRequest) []ValidationError {
	var details []ValidationError
	for i, req := range reqs {
		err := validate.Struct(req)
		if err == nil {
			continue
		}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details = append(details, ValidationError{
				Index:   i,
				Field:   fieldErr.Field(),
				Message: validationMsg(fieldErr),
				Type:    fieldErr.Tag(),
			})
		}
	}
	return details
}

func validationMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "oneof":
		return "Value must be one of " + strconv.Quote(err.Param())
	default:
		return "Invalid value"
	}
}
