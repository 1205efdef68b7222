package promptpay

import (
	"fmt"
	"strings"
)

const maxValueLen = 99

// EncodeField renders a single tag-length-value field: the two-digit tag,
// the value's byte length as two zero-padded decimal digits, then the value.
func EncodeField(tag, value string) (string, error) {
	if !validTag(tag) {
		return "", &FieldError{Tag: tag, Err: ErrInvalidTag}
	}
	if len(value) > maxValueLen {
		return "", &FieldError{Tag: tag, Err: fmt.Errorf("%w: got %d", ErrValueTooLong, len(value))}
	}
	return fmt.Sprintf("%s%02d%s", tag, len(value), value), nil
}

// EncodeComposite encodes the concatenation of already-encoded children as
// the value of tag.
func EncodeComposite(tag string, children ...string) (string, error) {
	return EncodeField(tag, strings.Join(children, ""))
}

func validTag(tag string) bool {
	return len(tag) == 2 && isDigit(tag[0]) && isDigit(tag[1])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
