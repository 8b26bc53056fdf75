package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON in production, console otherwise.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	return zap.NewDevelopment()
}

// Named returns the first non-nil logger, or the global one, scoped to name.
func Named(name string, logger ...*zap.Logger) *zap.Logger {
	if len(logger) > 0 && logger[0] != nil {
		return logger[0].Named(name)
	}
	return zap.L().Named(name)
}
