package ip4view

import (
	"encoding/binary"

	"github.com/pkg/errors"

	ierrors "github.com/frozenpine/ip4view/errors"
)

// cursor resolves the read/write index and advances offset by width.
// A nil offset means index 0 without advancing.
func cursor(buffer []byte, offset *int, width int) (int, error) {
	idx := 0

	if offset != nil {
		idx = *offset
	}

	if err := ierrors.CheckBounds(idx, width, len(buffer)); err != nil {
		return 0, errors.WithStack(err)
	}

	if offset != nil {
		(*offset) += width
	}

	return idx, nil
}

func NByte(buffer []byte, offset *int) (uint8, error) {
	idx, err := cursor(buffer, offset, 1)
	if err != nil {
		return 0, err
	}

	return buffer[idx], nil
}

func N2HShort(buffer []byte, offset *int) (uint16, error) {
	idx, err := cursor(buffer, offset, 2)
	if err != nil {
		return 0, err
	}

	return getUint16(buffer, idx), nil
}

func N2HLong(buffer []byte, offset *int) (uint32, error) {
	idx, err := cursor(buffer, offset, 4)
	if err != nil {
		return 0, err
	}

	return getUint32(buffer, idx), nil
}

func PutByte(buffer []byte, offset *int, v uint8) error {
	idx, err := cursor(buffer, offset, 1)
	if err != nil {
		return err
	}

	buffer[idx] = v

	return nil
}

func H2NShort(buffer []byte, offset *int, v uint16) error {
	idx, err := cursor(buffer, offset, 2)
	if err != nil {
		return err
	}

	putUint16(buffer, idx, v)

	return nil
}

func H2NLong(buffer []byte, offset *int, v uint32) error {
	idx, err := cursor(buffer, offset, 4)
	if err != nil {
		return err
	}

	putUint32(buffer, idx, v)

	return nil
}

// Unchecked network order helpers, callers guarantee idx+width <= len(buffer).

func getUint16(buffer []byte, idx int) uint16 {
	return binary.BigEndian.Uint16(buffer[idx : idx+2])
}

func putUint16(buffer []byte, idx int, v uint16) {
	binary.BigEndian.PutUint16(buffer[idx:idx+2], v)
}

func getUint32(buffer []byte, idx int) uint32 {
	return binary.BigEndian.Uint32(buffer[idx : idx+4])
}

func putUint32(buffer []byte, idx int, v uint32) {
	binary.BigEndian.PutUint32(buffer[idx:idx+4], v)
}
