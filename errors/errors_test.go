package errors_test

import (
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/frozenpine/ip4view/errors"
)

func TestCheckBounds(t *testing.T) {
	cases := []struct {
		offset, width, size int
		ok                  bool
	}{
		{0, 20, 20, true},
		{4, 16, 20, true},
		{20, 0, 20, true},
		{1, 20, 20, false},
		{-1, 2, 20, false},
		{0, -1, 20, false},
		{21, 0, 20, false},
		{10, 1 << 62, 20, false},
	}

	for _, c := range cases {
		err := errors.CheckBounds(c.offset, c.width, c.size)

		if c.ok && err != nil {
			t.Fatalf("[%d +%d / %d] unexpected err: %v", c.offset, c.width, c.size, err)
		}

		if !c.ok {
			if !errors.Is(err, errors.ErrOutOfBounds) {
				t.Fatalf("[%d +%d / %d] want ErrOutOfBounds, got %v", c.offset, c.width, c.size, err)
			}

			var bErr *errors.BoundsError
			if !errors.As(err, &bErr) || bErr.Offset != c.offset || bErr.Size != c.size {
				t.Fatalf("bounds detail mismatch: %+v", bErr)
			}
		}
	}
}

func TestBoundsErrorThroughStack(t *testing.T) {
	err := pkgerrors.WithStack(errors.CheckBounds(12, 8, 16))

	if !errors.Is(err, errors.ErrOutOfBounds) {
		t.Fatal("wrapped bounds error lost its sentinel")
	}

	t.Log(err)
}

func TestRecoverable(t *testing.T) {
	if errors.MarkRecoverable(nil) != nil {
		t.Fatal("nil must stay nil")
	}

	err := errors.MarkRecoverable(errors.ErrTTLExpired)
	if !errors.IsRecoverable(err) || !errors.Is(err, errors.ErrTTLExpired) {
		t.Fatal("recoverable mark lost")
	}

	if errors.IsRecoverable(errors.ErrMalformedHeader) {
		t.Fatal("plain error reported recoverable")
	}

	if !errors.IsRecoverable(errors.NewRecoverable("skip")) {
		t.Fatal("NewRecoverable not recoverable")
	}
}
