package core

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/JonMunkholm/inventory/internal/logging"
)

// BatchRunner feeds a row source through a RowProcessor, one row at a time
// and strictly in source order. There is no batch transaction: a failed row
// never rolls back earlier commits.
type BatchRunner struct {
	processor *RowProcessor
}

// NewBatchRunner creates a runner.
func NewBatchRunner(p *RowProcessor) *BatchRunner {
	return &BatchRunner{processor: p}
}

// Run consumes src until io.EOF. Context cancellation is honoured between
// rows only; a row that has started validating always reaches a terminal
// state. The returned error is reserved for source failures and
// cancellation; the result holds everything processed until then.
//
// Callers persist result.Abandoned through a FailureSink.
func (b *BatchRunner) Run(ctx context.Context, src RowSource, mode Mode) (BatchResult, error) {
	start := time.Now()
	result := BatchResult{
		RunID: uuid.NewString(),
		Mode:  mode,
	}
	if id := logging.RunIDFromContext(ctx); id != "" {
		result.RunID = id
	} else {
		ctx = logging.WithRunID(ctx, result.RunID)
	}
	logger := logging.WithFields(ctx, "mode", string(mode))
	logger.Info("batch started")

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = errors.Wrap(err, "batch interrupted")
			break
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = errors.Wrap(err, "read row")
			break
		}

		out := b.processor.Process(ctx, row, mode)
		result.Rows = append(result.Rows, out.Report())

		switch out.State {
		case StateCommitted:
			if out.Unchanged {
				result.Unchanged++
			} else {
				result.Committed++
			}
		case StateAbandoned:
			result.Failed++
			result.Abandoned = append(result.Abandoned, out.Failed())
			logger.Info("row abandoned",
				"row", row.Index,
				"violations", len(out.Violations),
				"error", errorTag(out.Violations, out.Err),
			)
		}
	}

	result.Duration = time.Since(start)
	logger.Info("batch finished",
		"committed", result.Committed,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, runErr
}
