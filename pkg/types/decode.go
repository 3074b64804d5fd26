package types

import "fmt"

// DecodeError reports a stored value that could not be mapped onto its
// entity field.
type DecodeError struct {
	Store  string
	Column string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s.%s: %v", e.Store, e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
