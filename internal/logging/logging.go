package logging

import (
	"fmt"

	"go.uber.org/zap"
)

const prodEnv = "production"

// New builds the process logger: JSON in production, console otherwise.
// Every entry carries service=deadticker.
func New(env, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if env == prodEnv {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = lvl
	}
	cfg.InitialFields = map[string]any{"service": "deadticker"}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
