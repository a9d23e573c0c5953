package services

import (
	"errors"
	"fmt"

	"sketchroom/internal/core/domain"
)

// storageErr passes domain sentinels through and marks everything else as a
// persistence failure so callers can map it to a retryable error.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrWhiteboardNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrPersistence):
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
