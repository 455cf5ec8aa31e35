package tree

import "fmt"

// ListingError is returned when listing any page of a remote folder fails.
// A tree build never returns a partial tree.
type ListingError struct {
	FolderID string
	Err      error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("remote listing failed for folder %s: %v", e.FolderID, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}
