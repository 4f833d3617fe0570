package crawler

import (
	"errors"
	"fmt"
)

// Sentinel classifications for per-page failures. Callers branch with
// errors.Is instead of matching message text.
var (
	// ErrTransient marks a network, timeout or HTTP-status failure for one
	// page. The page is skipped; the crawl continues.
	ErrTransient = errors.New("transient fetch failure")

	// ErrParse marks a response body that is not the expected JSON
	// envelope. The page is skipped; the crawl continues.
	ErrParse = errors.New("unparsable page payload")
)

// PageError wraps a classified failure with the page index it occurred on.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
