package application

import (
	"errors"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedErrors "github.com/mes-platform/production/shared/pkg/errors"
)

// toAppError maps domain failure kinds onto the API error taxonomy
func toAppError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := sharedErrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return sharedErrors.ErrValidation(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrNotFound):
		appErr := sharedErrors.ErrNotFound("resource")
		appErr.Message = err.Error()
		return appErr.Wrap(err)
	case errors.Is(err, domain.ErrConcurrentModification):
		return sharedErrors.ErrConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrPersistence):
		return sharedErrors.ErrPersistence(operation).Wrap(err)
	default:
		return sharedErrors.ErrInternal("").Wrap(err)
	}
}
