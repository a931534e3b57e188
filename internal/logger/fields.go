package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldStrategy is the structured log field key for a scoring strategy name.
	FieldStrategy = "strategy"
	// FieldMode is the structured log field key for the match direction.
	FieldMode = "mode"
	// FieldRequestID is the structured log field key for the request identifier.
	FieldRequestID = "request_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MatchFields returns the standard fields describing one match computation.
func MatchFields(mode, strategy, requestID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldMode, Value: mode},
		StringField{Key: FieldStrategy, Value: strategy},
		StringField{Key: FieldRequestID, Value: requestID},
	)
}
