package promptpay

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIdentifier = errors.New("invalid promptpay identifier")
	ErrValueTooLong      = errors.New("field value exceeds 99 bytes")
	ErrInvalidTag        = errors.New("tag must be two ASCII digits")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimal places")

	ErrMalformedPayload = errors.New("malformed payload")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// FieldError ties an encoding or decoding failure to the tag it happened on.
type FieldError struct {
	Tag string
	Err error
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("tag %s: %v", fe.Tag, fe.Err)
}

func (fe *FieldError) Unwrap() error {
	return fe.Err
}
