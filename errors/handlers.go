package errors

import (
	"go.uber.org/zap"
)

// LogError logs an error with its context. KotobaErrors are logged with
// their category and details, anything else as an unexpected error.
func LogError(logger *zap.Logger, err error, requestID string) {
	var kerr *KotobaError
	if As(err, &kerr) {
		fields := []zap.Field{
			zap.String("error_type", string(kerr.Type)),
			zap.String("message", kerr.Message),
			zap.Int("code", kerr.Code),
			zap.String("request_id", requestID),
		}
		if len(kerr.Details) > 0 {
			fields = append(fields, zap.Any("details", kerr.Details))
		}
		if kerr.err != nil {
			fields = append(fields, zap.NamedError("cause", kerr.err))
		}
		logger.Error("request error", fields...)
		return
	}

	logger.Error("unexpected error",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
}
