package httpx

import (
	"errors"
	"net/http"

	"github.com/facturo-erp/facturo-erp/internal/finance"
)

// Sentinel errors shared across the domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Overpayment and empty-document rejections surface as user-facing
// validation failures; everything unrecognised is a 500 with no detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, finance.ErrOverpayment):
		Problem(w, http.StatusUnprocessableEntity, "Overpayment Rejected", err.Error())
	case errors.Is(err, finance.ErrEmptyDocument):
		Problem(w, http.StatusUnprocessableEntity, "Empty Document Rejected", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
