package scraper

import (
	"fmt"
	"strings"
)

// FetchError reports a failed page fetch: navigation timeout, a network
// error on the target request, or zero unit-list matches after scrolling.
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a page whose markup yielded no usable unit
// containers. Individual malformed containers are skipped, not raised.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

// ValidationError reports a unit record missing required fields. The
// record is dropped and logged; the scrape continues.
type ValidationError struct {
	UnitNumber string
	Missing    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unit %q missing required fields: %s", e.UnitNumber, strings.Join(e.Missing, ", "))
}
