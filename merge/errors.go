package merge

import (
	"fmt"
)

// indicates that a tabular dataset could not be merged with the boundary
// layer
type Error struct {
	Dataset string
	Cause   error
}

func (e Error) Error() string {
	return fmt.Sprintf("Couldn't merge dataset '%s': %s", e.Dataset, e.Cause.Error())
}

func (e Error) Unwrap() error {
	return e.Cause
}

// indicates that a tabular dataset carried more than one row for a country
// at merge time, which makes the join's row multiplicity undefined
type JoinIntegrityError struct {
	Dataset, Code string
}

func (e JoinIntegrityError) Error() string {
	return fmt.Sprintf("Dataset '%s' has more than one row for country '%s'",
		e.Dataset, e.Code)
}
