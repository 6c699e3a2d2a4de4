package catalog

import (
	"fmt"
)

// This error type is returned when a dataset is sought but not found.
type NotFoundError struct {
	Dataset string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("The dataset '%s' is not in the catalog", e.Dataset)
}
