package services

// indicates an attempt to serve environment data that hasn't been built
type NotBuiltError struct{}

func (e NotBuiltError) Error() string {
	return "The environment data hasn't been built, so there's nothing to serve"
}
