package scoring

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region sentinels

var (
	// ErrTransient marks failures worth retrying: unavailable service, timeouts, overload.
	ErrTransient = errors.New("transient scoring failure")
	// ErrPermanent marks failures that will not go away on retry.
	ErrPermanent = errors.New("permanent scoring failure")
)

// #endregion sentinels

// #region classified-error

// Error carries a scoring failure together with its classification.
type Error struct {
	Kind error // ErrTransient or ErrPermanent
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func transient(err error) error {
	return &Error{Kind: ErrTransient, Err: err}
}

func permanent(err error) error {
	return &Error{Kind: ErrPermanent, Err: err}
}

// IsTransient reports whether err was classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// #endregion classified-error

// #region grpc-classification

// classifyRPC maps a gRPC error to a classified error. If the caller's context
// is done the context error is returned unclassified.
func classifyRPC(parent context.Context, err error) error {
	if cerr := parent.Err(); cerr != nil {
		return fmt.Errorf("score rpc: %w", cerr)
	}
	wrapped := fmt.Errorf("score rpc: %w", err)
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return transient(wrapped)
	default:
		return permanent(wrapped)
	}
}

// #endregion grpc-classification
