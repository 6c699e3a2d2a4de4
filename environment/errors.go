package environment

import "fmt"

// indicates that a catalog entry had no corresponding local file or merge
// result when the data was assembled
type MissingDatasetError struct {
	Dataset string
}

func (e MissingDatasetError) Error() string {
	return fmt.Sprintf("No merged data was produced for the dataset %s", e.Dataset)
}
