// Package logging builds the zap logger shared by the server, the CLI and the
// persister. Production gets JSON lines; development gets a colored console.
package logging

import (
	"post-reorder-backend/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger for the configured environment.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		if !cfg.Debug {
			zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	if cfg.UsesDefaultSecret() && cfg.IsDevelopment() {
		logger.Warn("using default JWT secret (not recommended for production)")
	}
	return logger, nil
}

// NewOrNop is New for callers that would rather log nothing than fail.
func NewOrNop(cfg *config.Config) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
