package feed

import (
	"fmt"
	"time"
)

// Entry is one feed entry flattened to the fields the pipeline needs.
type Entry struct {
	Title       string
	Summary     string // markup stripped, whitespace collapsed
	Link        string
	PublishedAt *time.Time // nil when no date field could be resolved
}

// DateFields carries the date representations of a feed entry in
// preference order: published, updated, created.
type DateFields struct {
	Structured [3]*time.Time
	Text       [3]string
}

// FetchError reports a source that could not be fetched or parsed.
type FetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch source %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
