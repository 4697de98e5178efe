package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Structured log field keys shared across packages.
const (
	// FieldModelID identifies the discipline model a log line refers to.
	FieldModelID = "model_id"
	// FieldArtifact is the artifact file path behind a model.
	FieldArtifact = "artifact_path"
)

func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return logger, nil
}

// ModelFields returns the standard fields describing a model artifact,
// omitting empty values to keep log entries compact.
func ModelFields(modelID, artifactPath string) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if modelID = strings.TrimSpace(modelID); modelID != "" {
		fields = append(fields, zap.String(FieldModelID, modelID))
	}
	if artifactPath = strings.TrimSpace(artifactPath); artifactPath != "" {
		fields = append(fields, zap.String(FieldArtifact, artifactPath))
	}
	return fields
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
