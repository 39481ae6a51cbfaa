package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cbzpress/internal/logging"
	"cbzpress/internal/services"
)

// Stage names, also recorded on failures.
const (
	StageMarker    = "marker"
	StagePrepare   = "prepare"
	StageExtract   = "extract"
	StageSanitize  = "sanitize"
	StageEnumerate = "enumerate"
	StageCompress  = "compress"
	StageSelect    = "select"
	StageAssemble  = "assemble"
	StageReconcile = "reconcile"
	StageLog       = "log"
	StagePack      = "pack"
	StageCommit    = "commit"
)

type stage struct {
	name string
	run  func(context.Context) error
}

// stageError remembers which stage produced err.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// FailedStage returns the stage recorded on err, if any.
func FailedStage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}

// runStage executes one stage with start/complete/failure logging. Critical
// failures (integrity, sanitization) are logged at the critical level.
func runStage(ctx context.Context, base *slog.Logger, s stage) error {
	stageCtx := services.WithStage(ctx, s.name)
	logger := logging.WithContext(stageCtx, base)

	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return &stageError{stage: s.name, err: err}
	}
	if err := s.run(stageCtx); err != nil {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.ErrorKind(err),
			logging.Duration("duration", time.Since(started)),
			logging.Error(err),
		}
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.Warn("stage cancelled", logging.Args(attrs...)...)
		case services.IsCritical(err):
			logging.Critical(logger, "stage failed", attrs...)
		default:
			logger.Error("stage failed", logging.Args(attrs...)...)
		}
		return &stageError{stage: s.name, err: err}
	}

	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}
