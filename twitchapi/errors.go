package twitchapi

import "fmt"

// TransportError is a failed round trip to Twitch: network failure or an
// unexpected HTTP status. Status is 0 when no response was received.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("twitch %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("twitch %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a response body that could not be decoded.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("twitch %s: decode response: %v", e.Op, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
