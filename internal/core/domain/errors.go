package domain

import "errors"

var (
	// ErrHeaderMismatch is thrown when appending a header that does not
	// connect to the current chain tip.
	ErrHeaderMismatch = errors.New("header does not connect to the chain tip")
	// ErrNullScript ...
	ErrNullScript = errors.New("script must not be null")
	// ErrNotWatched is thrown when recording an output for a script that was
	// never registered with the tracker.
	ErrNotWatched = errors.New("script is not watched by the tracker")
)
