package skills

import "fmt"

// ManifestParseError reports a manifest that cannot be used for matching
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid skill manifest: %v", e.Err)
	}
	return fmt.Sprintf("invalid skill manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// Cause makes the error compatible with errors.Cause from github.com/pkg/errors
func (e *ManifestParseError) Cause() error {
	return e.Err
}

// InvalidTopNError is returned when a match is requested with a non-positive limit
type InvalidTopNError struct {
	TopN int
}

func (e *InvalidTopNError) Error() string {
	return fmt.Sprintf("top must be a positive integer, got %d", e.TopN)
}
