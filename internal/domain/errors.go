// internal/domain/errors.go
package domain

import "errors"

// ErrNotConnected is returned when a frame is sent while the channel is down.
// Callers can check for it using errors.Is to take the HTTP fallback path.
var ErrNotConnected = errors.New("channel not connected")

// ErrUnknownEvent is returned when an inbound frame carries a tag outside the known event set.
var ErrUnknownEvent = errors.New("unknown event type")

// ErrMalformedEvent is returned when an inbound frame cannot be decoded.
var ErrMalformedEvent = errors.New("malformed event")
