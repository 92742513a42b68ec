package mil1553

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFieldValue     = errors.New("mil1553: invalid field value")
	ErrParityMismatch        = errors.New("mil1553: parity mismatch")
	ErrMissingHeader         = errors.New("mil1553: message has no header word")
	ErrDuplicateHeader       = errors.New("mil1553: message header already set")
	ErrCapacityExceeded      = errors.New("mil1553: message capacity exceeded")
	ErrBufferTooShort        = errors.New("mil1553: buffer too short")
	ErrInvalidStringEncoding = errors.New("mil1553: invalid string encoding")
)

// FieldError reports the first out-of-range field seen by a word builder.
type FieldError struct {
	Field string
	Value int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("mil1553: invalid value %d for field %s", e.Value, e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidFieldValue
}

// ParityError reports a decoded word whose parity bit disagrees with its data.
// Index is the word position within the buffer, header included.
type ParityError struct {
	Index int
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("mil1553: parity error in word %d", e.Index)
}

func (e *ParityError) Unwrap() error {
	return ErrParityMismatch
}
