package types

import (
	"errors"
	"fmt"
)

// ErrNoResults means the search provider answered but had no match for the
// query. It is a normal outcome, not a provider failure.
var ErrNoResults = errors.New("no results found")

// ResolutionError wraps a search provider failure.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string { return fmt.Sprintf("resolution failed: %v", e.Err) }
func (e *ResolutionError) Unwrap() error { return e.Err }

// FetchError wraps a source stream failure during download.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch failed: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ConversionError wraps a conversion engine failure.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string { return fmt.Sprintf("conversion failed: %v", e.Err) }
func (e *ConversionError) Unwrap() error { return e.Err }
