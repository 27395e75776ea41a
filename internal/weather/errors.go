package weather

import "fmt"

// Error represents a failed weather lookup
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("weather error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("weather error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
