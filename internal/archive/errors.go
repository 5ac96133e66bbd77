// internal/archive/errors.go
package archive

import (
	"errors"
	"fmt"
)

// Kind classifies why an archive call failed.
type Kind string

const (
	KindTransport    Kind = "transport"     // dial, TLS, timeout, cancelled
	KindStatus       Kind = "status"        // unexpected status code
	KindDecode       Kind = "decode"        // body is not the expected JSON
	KindMissingField Kind = "missing_field" // JSON parsed but a required field is absent
)

// FetchError is returned by every Client method on failure.
type FetchError struct {
	Op     string
	Kind   Kind
	Status int
	Field  string
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	case KindMissingField:
		return fmt.Sprintf("%s: response missing %s", e.Op, e.Field)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsKind reports whether err is a FetchError of kind k.
func IsKind(err error, k Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == k
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
