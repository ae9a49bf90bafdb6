package blob

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyObject is returned when putting an object without content.
	ErrEmptyObject = errors.New("blob: empty object")

	// ErrInvalidPrefix is returned when a prefix does not end in "/".
	ErrInvalidPrefix = errors.New("blob: prefix must end with /")
)

// DeleteError reports the keys a bulk delete could not remove.
type DeleteError struct {
	Keys []string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("blob: %d objects not deleted: %v", len(e.Keys), e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

// FailedKeys returns the keys named by a *DeleteError in err, or nil.
func FailedKeys(err error) []string {
	var de *DeleteError
	if errors.As(err, &de) {
		return de.Keys
	}
	return nil
}
