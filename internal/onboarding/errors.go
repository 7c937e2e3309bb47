package onboarding

import (
	"errors"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
)

// Code is the stable error code reported to API clients.
type Code string

// Error codes. An empty Code means success.
const (
	CodeInvalidURL         Code = "invalid_url"
	CodeBrowserUnavailable Code = "browser_unavailable"
	CodeFetchFailed        Code = "fetch_failed"
	CodeSaveFailed         Code = "save_failed"
	CodeInternal           Code = "internal"
)

var (
	// ErrInvalidURL is returned when the submitted website is not an http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNoPages is returned when the crawl rendered no page at all.
	ErrNoPages = errors.New("no pages crawled")
	// ErrSaveFailed is returned when the profile could not be loaded or saved.
	// The crawl itself may have succeeded.
	ErrSaveFailed = errors.New("save failed")
	// ErrQueueClosed is returned by Queue implementations after shutdown.
	ErrQueueClosed = errors.New("queue closed")
	// ErrJobNotFound is returned by JobStore implementations for unknown ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrBrowserUnavailable aliases the crawler sentinel so callers need one import.
	ErrBrowserUnavailable = crawler.ErrBrowserUnavailable
)

// CodeFor maps an Import error onto its stable code.
func CodeFor(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL), errors.Is(err, crawler.ErrInvalidBaseURL):
		return CodeInvalidURL
	case errors.Is(err, ErrBrowserUnavailable):
		return CodeBrowserUnavailable
	case errors.Is(err, ErrNoPages):
		return CodeFetchFailed
	case errors.Is(err, ErrSaveFailed):
		return CodeSaveFailed
	default:
		return CodeInternal
	}
}
