package integrity

import (
	"errors"
	"fmt"
)

// Failure reasons carried by IntegrityError.
const (
	ReasonMissing     = "missing"
	ReasonEmpty       = "empty"
	ReasonCorrupt     = "corrupt"
	ReasonDecrypt     = "decrypt_failed"
	ReasonUnsupported = "unsupported_format"
)

// ErrPasswordRequired is matched by PasswordRequiredError.
var ErrPasswordRequired = errors.New("document is encrypted and needs a password")

// IntegrityError means the input cannot be processed at all.
type IntegrityError struct {
	Reason string
	Path   string
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("integrity check failed (%s) for %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("integrity check failed (%s) for %s", e.Reason, e.Path)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// PasswordRequiredError is returned for an encrypted document when no
// password was supplied. The caller may retry with one.
type PasswordRequiredError struct {
	Path string
}

func (e *PasswordRequiredError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrPasswordRequired)
}

func (e *PasswordRequiredError) Is(target error) bool {
	return target == ErrPasswordRequired
}
