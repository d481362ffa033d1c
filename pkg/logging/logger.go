// Package logging builds the zap logger shared by the Lambda entrypoints
package logging

import (
	"go.uber.org/zap"
)

// New returns a development logger for local runs and a production JSON
// logger everywhere else
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Must is New for init() blocks, falling back to a no-op logger
func Must(appEnv string) *zap.Logger {
	logger, err := New(appEnv)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
