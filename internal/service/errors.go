package service

import (
	"errors"
	"polcomp/internal/model"
)

// isClientError reports whether err was caused by the request itself.
func isClientError(err error) bool {
	return errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrMissingAnswer)
}
