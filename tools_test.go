package ip4view

import (
	"testing"

	ierrors "github.com/frozenpine/ip4view/errors"
)

func TestOffset(t *testing.T) {
	offset := 0

	buffer := []byte{0, 1, 2, 3, 4, 5, 6}

	if v, err := NByte(buffer, &offset); err != nil || v != 0 || offset != 1 {
		t.Fatal("nbyte error")
	}

	if v, err := N2HShort(buffer, &offset); err != nil || v != 0x0102 || offset != 3 {
		t.Fatal("ntohs error")
	}

	if v, err := N2HLong(buffer, &offset); err != nil || v != 0x03040506 || offset != 7 {
		t.Fatal("ntohl error")
	}

	if _, err := NByte(buffer, &offset); !ierrors.Is(err, ierrors.ErrOutOfBounds) {
		t.Fatalf("read past end should fail, got %v", err)
	}

	if offset != 7 {
		t.Fatal("failed read must not advance offset")
	}
}

func TestNilOffset(t *testing.T) {
	buffer := []byte{0xde, 0xad, 0xbe, 0xef}

	if v, _ := N2HShort(buffer, nil); v != 0xdead {
		t.Fatalf("ntohs without cursor: %#04x", v)
	}

	if v, _ := N2HLong(buffer, nil); v != 0xdeadbeef {
		t.Fatalf("ntohl without cursor: %#08x", v)
	}
}

func TestWriteOffset(t *testing.T) {
	buffer := make([]byte, 7)
	offset := 0

	if err := PutByte(buffer, &offset, 0xaa); err != nil {
		t.Fatal(err)
	}

	if err := H2NShort(buffer, &offset, 0x1234); err != nil {
		t.Fatal(err)
	}

	if err := H2NLong(buffer, &offset, 0x0a000001); err != nil {
		t.Fatal(err)
	}

	expect := []byte{0xaa, 0x12, 0x34, 0x0a, 0x00, 0x00, 0x01}
	for idx := range expect {
		if buffer[idx] != expect[idx] {
			t.Fatalf("byte %d: want %#02x got %#02x", idx, expect[idx], buffer[idx])
		}
	}

	offset = 6
	if err := H2NShort(buffer, &offset, 0xffff); !ierrors.Is(err, ierrors.ErrOutOfBounds) {
		t.Fatalf("short write past end should fail, got %v", err)
	}

	if buffer[6] != 0x01 {
		t.Fatal("failed write touched the buffer")
	}
}
