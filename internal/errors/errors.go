// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ErrTokenMissing is returned when a user has no stored GitHub token. The
// caller must re-initiate the OAuth flow.
var ErrTokenMissing = errors.New("github token not found")

// ErrAccessDenied is returned when a record exists but does not belong to the
// calling user. Deliberately indistinguishable from not-found in responses.
type ErrAccessDenied struct {
	Resource string
}

func (e *ErrAccessDenied) Error() string {
	return fmt.Sprintf("%s not found or access denied", e.Resource)
}
