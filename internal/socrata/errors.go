package socrata

import (
	"errors"
	"fmt"
)

// ErrNoParsableTimestamp is returned when none of a dataset's records carries a usable timestamp.
var ErrNoParsableTimestamp = errors.New("socrata dataset did not include parsable timestamps")

// FetchError represents a failed or malformed response from a Socrata endpoint
type FetchError struct {
	StationID  string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("socrata fetch for station %s: %s: %v", e.StationID, e.Message, e.Err)
	}
	return fmt.Sprintf("socrata fetch for station %s: %s", e.StationID, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new Socrata fetch error
func NewFetchError(stationID, message string, err error) *FetchError {
	return &FetchError{
		StationID: stationID,
		Message:   message,
		Err:       err,
	}
}
