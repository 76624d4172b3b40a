package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrInvalidOutputSize = errors.New("invalid output size")
	ErrSessionLocked     = errors.New("output size is locked while results exist")
	ErrDecode            = errors.New("image could not be decoded")
	ErrEncode            = errors.New("image could not be encoded")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindDecode     ErrorKind = "decode"
	KindEncode     ErrorKind = "encode"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Name string // Optional: source image name
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Name != "" {
		base += fmt.Sprintf(" (name=%s)", e.Name)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind lets shells pick a corrective message without inspecting error text.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
