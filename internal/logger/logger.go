package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger; it is injected everywhere a component
// logs.
type Logger struct {
	*zap.SugaredLogger
}

// New builds a Logger for the given app mode. Dev mode gets the
// human-readable console encoder, everything else structured JSON.
func New(mode string) (*Logger, error) {
	config := zap.NewProductionConfig()
	if mode == "dev" {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
