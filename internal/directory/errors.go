package directory

import "errors"

var (
	// ErrUnknownProvider is returned by Connect for an unsupported provider.
	ErrUnknownProvider = errors.New("unknown directory provider")

	// ErrMissingCredentials is returned when the provider's credential block is absent.
	ErrMissingCredentials = errors.New("missing directory credentials")

	// ErrCursorLoop is returned when upstream hands back a cursor it already returned.
	ErrCursorLoop = errors.New("directory returned a repeated page cursor")

	// ErrInvalidCursor is returned when a cursor cannot be decoded by the adapter.
	ErrInvalidCursor = errors.New("invalid page cursor")
)
