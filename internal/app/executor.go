package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-generator/internal/platform/logging"
)

// Operations that touch both a remote source and the quote store run in five
// steps so a failing remote never corrupts local state:
//
//  1. VALIDATE - check inputs before anything changes
//  2. PERFORM  - do the work (fetch remote quotes, decode a payload)
//  3. VERIFY   - check the result independently of Perform
//  4. ARCHIVE  - persist the verified state
//  5. RESPOND  - shape the result for the caller
//
// Archive only runs after Verify succeeds; a failure in an earlier step leaves
// the store exactly as it was.

const tracerName = "github.com/jsamuelsen/quote-generator/app"

// ExecutionStep represents a step in the transactional pattern.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError wraps errors with the step where they occurred.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs operations step by step, logging and tracing each one.
type Executor struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewExecutor creates a new executor with the given logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Operation defines the functions for each step. Nil steps are skipped and
// pass the zero value along.
type Operation[I, P, V, O any] struct {
	// Name identifies this operation in logs and spans.
	Name string

	// Validate checks inputs and preconditions.
	Validate func(ctx context.Context, input I) error

	// Perform executes the main operation.
	Perform func(ctx context.Context, input I) (P, error)

	// Verify confirms the operation succeeded and decides what to persist.
	Verify func(ctx context.Context, input I, performed P) (V, error)

	// Archive persists the verified state.
	Archive func(ctx context.Context, input I, verified V) error

	// Respond transforms the result for the caller.
	Respond func(ctx context.Context, input I, verified V) (O, error)
}

// step runs fn as one named step, wrapping a failure in an ExecutionError.
// Respond failures are returned as-is since state is already persisted.
func step(ctx context.Context, logger *slog.Logger, name ExecutionStep, msg string, fn func() error) error {
	logger.Log(ctx, logging.LevelTrace, "step started", slog.String("step", string(name)))

	if err := fn(); err != nil {
		level := slog.LevelError
		if name == StepValidate || name == StepRespond {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "step failed",
			slog.String("step", string(name)),
			slog.Any("error", err),
		)

		if name == StepRespond {
			return err
		}

		return &ExecutionError{Step: name, Message: msg, Cause: err}
	}

	return nil
}

// Execute runs op against input through all five steps.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (result O, err error) {
	ctx, span := exec.tracer.Start(ctx, op.Name)
	defer func() {
		if err != nil {
			if st, ok := GetExecutionStep(err); ok {
				span.SetAttributes(attribute.String("quotegen.failed_step", string(st)))
			}

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	var (
		performed P
		verified  V
	)

	if op.Validate != nil {
		if err = step(ctx, logger, StepValidate, "input validation failed", func() error {
			return op.Validate(ctx, input)
		}); err != nil {
			return result, err
		}
	}

	if op.Perform != nil {
		if err = step(ctx, logger, StepPerform, "operation failed", func() (e error) {
			performed, e = op.Perform(ctx, input)
			return e
		}); err != nil {
			return result, err
		}
	}

	if op.Verify != nil {
		if err = step(ctx, logger, StepVerify, "verification failed", func() (e error) {
			verified, e = op.Verify(ctx, input, performed)
			return e
		}); err != nil {
			return result, err
		}
	}

	if op.Archive != nil {
		if err = step(ctx, logger, StepArchive, "state persistence failed", func() error {
			return op.Archive(ctx, input, verified)
		}); err != nil {
			return result, err
		}
	}

	if op.Respond != nil {
		if err = step(ctx, logger, StepRespond, "respond failed", func() (e error) {
			result, e = op.Respond(ctx, input, verified)
			return e
		}); err != nil {
			var zero O
			return zero, err
		}
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// IsExecutionError checks if an error occurred during execution.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep extracts the step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
