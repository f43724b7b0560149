package ip4view

import (
	"github.com/pkg/errors"

	ierrors "github.com/frozenpine/ip4view/errors"
)

// Sum adds up length bytes of buf starting at offset as big endian 16 bit
// words. An odd trailing byte counts as the high byte of a zero padded word.
// The result is not folded, partial sums can be added before Fold.
func Sum(buf []byte, offset, length int) (uint64, error) {
	if err := ierrors.CheckBounds(offset, length, len(buf)); err != nil {
		return 0, errors.WithStack(err)
	}

	var sum uint64

	for length > 1 {
		sum += uint64(getUint16(buf, offset))
		offset += 2
		length -= 2
	}

	if length > 0 {
		sum += uint64(buf[offset]) << 8
	}

	return sum, nil
}

// Fold folds the carries of sum back into 16 bits and returns the ones'
// complement, as described in RFC 791 section 3.1.
func Fold(sum uint64) uint16 {
	for (sum >> 16) != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	return ^uint16(sum)
}

// Checksum returns the Internet checksum of buf[offset:offset+length] with
// sum as the initial accumulator.
func Checksum(sum uint64, buf []byte, offset, length int) (uint16, error) {
	partial, err := Sum(buf, offset, length)
	if err != nil {
		return 0, err
	}

	return Fold(sum + partial), nil
}

// RecomputeChecksum zeroes the checksum field, computes the checksum over
// HeaderLength bytes (options included, payload excluded) and stores it.
// It reports whether the stored value was already correct. A mismatch is
// not an error, the field is overwritten either way.
//
// The field is left untouched when the header length runs past the buffer.
func (h HeaderView) RecomputeChecksum() (bool, error) {
	hl := h.HeaderLength()

	if err := ierrors.CheckBounds(h.offset, hl, len(h.buf)); err != nil {
		return false, errors.WithStack(err)
	}

	oldCRC := h.CRC()
	h.SetCRC(0)

	newCRC, err := Checksum(0, h.buf, h.offset, hl)
	if err != nil {
		h.SetCRC(oldCRC)
		return false, err
	}

	h.SetCRC(newCRC)

	return oldCRC == newCRC, nil
}

// VerifyChecksum reports whether the stored checksum matches the header
// without modifying the buffer.
func (h HeaderView) VerifyChecksum() (bool, error) {
	hl := h.HeaderLength()

	sum, err := Sum(h.buf, h.offset, hl)
	if err != nil {
		return false, err
	}

	return Fold(sum) == 0, nil
}
