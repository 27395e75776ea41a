package research

import (
	"errors"
	"fmt"
)

// Validation and workflow errors. Callers classify with errors.Is; the
// returned errors wrap these with the order number.
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrRaceEditionNotFound = errors.New("race edition not found")
	ErrMissingRunnerName   = errors.New("order has no runner name")
	ErrMissingRaceYear     = errors.New("order has no race year")
	ErrNoResearchToAccept  = errors.New("no prior research to accept a match against")
	ErrAlreadyFound        = errors.New("runner result already found")
	ErrInvalidCandidate    = errors.New("invalid candidate")
	ErrInvalidOverride     = errors.New("invalid override")
)

// SearchError wraps a failure from a race source for one order.
type SearchError struct {
	OrderNumber string
	RaceName    string
	Year        int
	Stage       string
	Cause       error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s failed for order %s (%s %d): %v", e.Stage, e.OrderNumber, e.RaceName, e.Year, e.Cause)
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

func orderErr(orderNumber string, err error) error {
	return fmt.Errorf("order %s: %w", orderNumber, err)
}
