package errors

import (
	"errors"
	"fmt"
)

var (
	ErrRecoverable = errors.New("recoverable err occoured")

	// ErrOutOfBounds reports a field or byte range that does not fit in the
	// underlying buffer.
	ErrOutOfBounds = errors.New("buffer access out of bounds")

	// ErrMalformedHeader reports an IHL nibble below the minimum header size
	// or a header claiming more bytes than the packet carries.
	ErrMalformedHeader = errors.New("malformed ipv4 header")

	ErrTTLExpired  = errors.New("ttl expired in transit")
	ErrBadChecksum = errors.New("ipv4 header checksum mismatch")
)

// BoundsError describes the range that failed the bounds check.
type BoundsError struct {
	Offset int
	Width  int
	Size   int
}

func (err *BoundsError) Error() string {
	return fmt.Sprintf(
		"%s: range [%d, %d) exceeds buffer size %d",
		ErrOutOfBounds, err.Offset, err.Offset+err.Width, err.Size,
	)
}

func (err *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// CheckBounds returns a *BoundsError if [offset, offset+width) is not
// inside a buffer of the given size.
func CheckBounds(offset, width, size int) error {
	if offset < 0 || width < 0 || offset > size || width > size-offset {
		return &BoundsError{Offset: offset, Width: width, Size: size}
	}

	return nil
}

func New(msg string) error {
	return errors.New(msg)
}

func Join(err ...error) error {
	return errors.Join(err...)
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func NewRecoverable(msg string) error {
	return errors.Join(ErrRecoverable, New(msg))
}

// MarkRecoverable joins err with ErrRecoverable, nil stays nil.
func MarkRecoverable(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(ErrRecoverable, err)
}

func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRecoverable)
}
