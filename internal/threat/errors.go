package threat

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when a feed is queried without an API key.
var ErrMissingCredential = errors.New("missing OTX API key")

// FetchError reports a feed that could not be reached, rejected the request,
// or returned a body that could not be decoded.
type FetchError struct {
	Source string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
