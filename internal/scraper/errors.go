package scraper

import "fmt"

// FetchError is a network or parse failure inside a source call. It is scoped to
// the order being researched and is not retried by the caller.
type FetchError struct {
	Site    string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scraper %s: %s: %v", e.Site, e.Message, e.Cause)
	}
	return fmt.Sprintf("scraper %s: %s", e.Site, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
