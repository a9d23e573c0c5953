package middleware

import (
	"errors"
	"net/http"

	"sketchroom/internal/core/domain"
	apperrors "sketchroom/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ToAppError maps domain errors onto application errors with HTTP status.
func ToAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return caused(apperrors.NewUnauthenticatedError(err.Error()), err)
	case errors.Is(err, domain.ErrForbidden):
		return caused(apperrors.NewForbiddenError("access to this whiteboard is not allowed"), err)
	case errors.Is(err, domain.ErrIdentityMismatch):
		return apperrors.WrapError(err, apperrors.ErrCodeIdentityMismatch, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrWhiteboardNotFound):
		return caused(apperrors.NewNotFoundError("whiteboard"), err)
	case errors.Is(err, domain.ErrUserNotFound):
		return caused(apperrors.NewNotFoundError("user"), err)
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return caused(apperrors.NewNotFoundError("snapshot"), err)
	case errors.Is(err, domain.ErrUserExists):
		return caused(apperrors.NewConflictError("username already taken"), err)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidEvent):
		return caused(apperrors.NewInvalidInputError(err.Error()), err)
	case errors.Is(err, domain.ErrSnapshotTooLarge):
		return apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, domain.ErrPersistence):
		return apperrors.NewPersistenceError("storage is temporarily unavailable, retry the request", err)
	}
	return caused(apperrors.NewInternalError("Internal server error"), err)
}

func caused(appErr *apperrors.AppError, err error) *apperrors.AppError {
	appErr.Cause = err
	return appErr
}

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		fields := []interface{}{
			"code", appErr.Code,
			"message", appErr.Message,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		}
		if appErr.Cause != nil {
			fields = append(fields, "cause", appErr.Cause.Error())
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw("application error", fields...)
		} else {
			logger.Debugw("request rejected", fields...)
		}

		if c.Writer.Written() {
			return
		}
		body := gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		}
		if len(appErr.Context) > 0 {
			body["details"] = appErr.Context
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(apperrors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
