package handler

import (
	"errors"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateRequest checks the struct tags on a decoded request body and
// writes a 400 with per-field messages when any fail.
func validateRequest(w http.ResponseWriter, input any) bool {
	err := validate.Struct(input)
	if err == nil {
		return true
	}

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = "field is required"
			case "min":
				errors[field] = "must be at least " + e.Param()
			case "max":
				errors[field] = "must be at most " + e.Param()
			case "oneof":
				errors[field] = "must be one of: " + e.Param()
			default:
				errors[field] = "validation failed on " + e.Tag()
			}
		}
		response.BadRequest(w, errors)
		return false
	}

	response.BadRequest(w, err.Error())
	return false
}

// writeDomainError translates domain errors into HTTP status codes.
// Missing identities map to 404, caller mistakes to 400, backend and
// stage failures to 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		datasetNotFound *domain.DatasetNotFoundError
		modelNotFound   *domain.ModelNotFoundError
		invalidModel    *domain.InvalidModelError
		unavailable     *domain.ModelUnavailableError
		mismatch        *domain.ColumnMismatchError
		empty           *domain.EmptyDatasetError
	)

	switch {
	case errors.As(err, &datasetNotFound), errors.As(err, &modelNotFound):
		response.NotFound(w, err.Error())
	case errors.As(err, &invalidModel), errors.As(err, &mismatch), errors.As(err, &empty):
		response.BadRequest(w, err.Error())
	case errors.As(err, &unavailable):
		response.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		response.InternalError(w, err.Error())
	}
}
