package cmdlog

import (
	"time"

	"go.uber.org/zap"

	"deadticker/internal/metrics"
)

// Run executes one CLI command body, counting it and logging the result.
func Run(log *zap.Logger, cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		log.Error(cmd+"_error", zap.Error(err), zap.Duration("took", time.Since(start)))
	} else {
		log.Debug(cmd+"_ok", zap.Duration("took", time.Since(start)))
	}
	return err
}
