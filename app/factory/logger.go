package factory

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// NewModuleLogger returns the shared logger tagged with the module name.
func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.StandardLogger().WithField("module", module)
}

func LoggerWithContext(logger logrus.FieldLogger, ctx echo.Context) logrus.FieldLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if ctx == nil {
		return logger
	}

	requestID := ctx.Request().Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = ctx.Response().Header().Get(echo.HeaderXRequestID)
	}
	if requestID == "" {
		return logger
	}
	return logger.WithField("request_id", requestID)
}
