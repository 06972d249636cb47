package submit

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a terminal submission failure so the presentation layer
// can show a distinct message per failure mode.
type Kind int

const (
	KindServer Kind = iota
	KindTimeout
	KindUnreachable
)

// Error is a submission failure that exhausted its retries.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("submission failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	default:
		return "server error"
	}
}

// UserMessage maps the failure to the participant-facing text shown on the
// retry screen.
func (k Kind) UserMessage() string {
	switch k {
	case KindTimeout:
		return "Request timed out - the server may be slow to respond. Please try again."
	case KindUnreachable:
		return "Network error - unable to reach the server. Please check your internet connection and try again."
	default:
		return "The server reported an error while saving your data. Please try again."
	}
}

// ErrNoData means a finish was attempted with nothing recorded; this is a
// session integrity problem, not a network one, and is never retried.
var ErrNoData = errors.New("no trial data to save")

// classify buckets a transport error into a Kind.
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindUnreachable
	}
	return KindServer
}
