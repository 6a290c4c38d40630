package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/app/types"
)

func writeError(ctx echo.Context, statusCode int, message, code string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message, Code: code})
}

func writeUnauthenticated(ctx echo.Context) error {
	return writeError(ctx, http.StatusUnauthorized, "unauthenticated", "UNAUTHENTICATED")
}

func writeBadRequest(ctx echo.Context, message string) error {
	return writeError(ctx, http.StatusBadRequest, message, "INVALID_REQUEST")
}

// writeServiceError maps a service error onto an HTTP status. Unknown errors are
// logged and hidden behind a generic 500.
func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, operation string, err error) error {
	code := service.ErrorCode(err)
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return writeError(ctx, http.StatusBadRequest, err.Error(), code)
	case errors.Is(err, service.ErrForbidden):
		return writeError(ctx, http.StatusForbidden, err.Error(), code)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrQueueEmpty):
		return writeError(ctx, http.StatusNotFound, err.Error(), code)
	case service.IsConflict(err):
		return writeError(ctx, http.StatusConflict, err.Error(), code)
	default:
		factory.LoggerWithContext(logger, ctx).WithError(err).Errorf("%s failed", operation)
		return writeError(ctx, http.StatusInternalServerError, "internal server error", code)
	}
}
