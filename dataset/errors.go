package dataset

import (
	"fmt"
)

// indicates that a file could not be interpreted as a tabular dataset
type FormatError struct {
	Path, Message string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("Couldn't read %s as a tabular dataset: %s", e.Path, e.Message)
}

// indicates that a table lacks a column it is required to carry
type MissingColumnError struct {
	Column string
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("The table has no '%s' column", e.Column)
}
