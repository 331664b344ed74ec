package reporter

import "errors"

// Sentinel errors. Use errors.Is for assertions.
var (
	// ErrMissingID is returned before any request is made when the launch
	// or item a call addresses is absent or the empty sentinel.
	ErrMissingID = errors.New("missing identifier")

	// ErrNotRunning is returned when finishing a level that has no open item.
	ErrNotRunning = errors.New("no item running at this level")

	// ErrNoIDList is returned when a conflict message carries no [..] list.
	ErrNoIDList = errors.New("no bracketed id list in message")

	// ErrMalformedIDList is returned for an unterminated or empty [..] list,
	// or one with an empty entry.
	ErrMalformedIDList = errors.New("malformed id list in message")
)
