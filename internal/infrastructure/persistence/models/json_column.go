package models

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var columnLogger = zap.L().Named("persistence.models")

// encodeColumn serializes v for a json column, falling back to empty
func encodeColumn(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil {
		columnLogger.Warn("failed to encode json column", zap.Error(err))
		return empty
	}
	return string(b)
}

// decodeColumn parses a json column into v and logs malformed content
func decodeColumn(raw string, v any, table string, id uuid.UUID) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		columnLogger.Warn("failed to parse json column",
			zap.String("table", table),
			zap.String("id", id.String()),
			zap.Error(err))
	}
}
