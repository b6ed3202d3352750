package fused

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means a lookup completed and the backend has no such app.
	ErrNotFound = errors.New("app not found")
	// ErrInvalidAuth means the backend rejected the configured credentials.
	ErrInvalidAuth = errors.New("invalid auth")
	// ErrSourceDisabled means the user turned the source off.
	ErrSourceDisabled = errors.New("source disabled")
	// ErrSourceUnavailable means no adapter is configured for the source.
	ErrSourceUnavailable = errors.New("source unavailable")

	errPanic = errors.New("source adapter panicked")
)

// StatusKind is the outcome class of a fetch.
type StatusKind int

const (
	ResultOK StatusKind = iota
	ResultTimeout
	ResultUnknown
)

func (k StatusKind) String() string {
	switch k {
	case ResultOK:
		return "OK"
	case ResultTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// ResultStatus travels alongside data so callers can tell "no results" from "call failed".
type ResultStatus struct {
	Kind StatusKind
	Err  error
}

func OK() ResultStatus { return ResultStatus{Kind: ResultOK} }

func Timeout(err error) ResultStatus { return ResultStatus{Kind: ResultTimeout, Err: err} }

func Unknown(err error) ResultStatus { return ResultStatus{Kind: ResultUnknown, Err: err} }

func (s ResultStatus) IsOK() bool { return s.Kind == ResultOK }

func (s ResultStatus) String() string {
	if s.Err == nil {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%v)", s.Kind, s.Err)
}

func (s ResultStatus) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind  string `json:"kind"`
		Error string `json:"error,omitempty"`
	}{Kind: s.Kind.String()}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}

// StatusFromError maps an adapter error to a ResultStatus.
func StatusFromError(err error) ResultStatus {
	switch {
	case err == nil:
		return OK()
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(err)
	default:
		return Unknown(err)
	}
}

// Run calls fn with a deadline of timeout and converts its failure into a ResultStatus.
// A panic inside fn is recovered and reported as ResultUnknown.
func Run[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, ResultStatus) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", errPanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, StatusFromError(ctx.Err())
	case out := <-done:
		if out.err != nil {
			return zero, StatusFromError(out.err)
		}
		return out.value, OK()
	}
}

// statusTracker keeps the most recent non-OK status seen while assembling one emission.
type statusTracker struct {
	status ResultStatus
	source string
}

func (t *statusTracker) observe(src Source, status ResultStatus) {
	if status.IsOK() {
		return
	}
	t.status = status
	t.source = src.String()
}
