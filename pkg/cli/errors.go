package cli

import "errors"

// ErrUnexpectedStatus is returned by scrape for non-200 responses.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")
