package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/onnwee/live-alerts/twitchapi"
)

// StoreError wraps a failure of the subscription store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("alert store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// ErrorKind maps err to a short label used in metrics and logs:
// transport, parse, store, canceled or other.
func ErrorKind(err error) string {
	var te *twitchapi.TransportError
	var pe *twitchapi.ParseError
	var se *StoreError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return "store"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &te):
		return "transport"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
