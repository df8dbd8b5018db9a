// Package logging builds the process-wide zap.Logger, matching the
// teacher's cmd/zmux-server/main.go bootstrap: a colorized development
// config by default, switching to a JSON production config when
// QTABLE_ENV=production, with stack traces and caller info disabled
// either way (the data-log and index codepaths already wrap errors with
// cockroachdb/errors' stack capture, so zap's own caller/stacktrace
// would just be noise).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger, named "qtable".
func New() (*zap.Logger, error) {
	var cfg zap.Config
	if os.Getenv("QTABLE_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Named("qtable"), nil
}
