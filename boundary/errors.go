package boundary

import (
	"fmt"
)

// indicates that an archive lacks expected shapefile components or holds a
// layer we can't interpret
type FormatError struct {
	Archive, Message string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("Couldn't load a boundary layer from %s: %s", e.Archive, e.Message)
}

// indicates that the archive could not be extracted
type ExtractionError struct {
	Archive string
	Cause   error
}

func (e ExtractionError) Error() string {
	return fmt.Sprintf("Couldn't extract %s: %s", e.Archive, e.Cause.Error())
}

func (e ExtractionError) Unwrap() error {
	return e.Cause
}
