package pcap

import (
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
)

const defaultSnapLen = 65535

// Writer dumps frames in classic pcap format.
type Writer struct {
	w      *pcapgo.Writer
	closer io.Closer
}

func NewWriter(out io.Writer, linkType layers.LinkType, snapLen uint32) (*Writer, error) {
	if snapLen == 0 {
		snapLen = defaultSnapLen
	}

	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(snapLen, linkType); err != nil {
		return nil, errors.WithStack(err)
	}

	writer := Writer{w: w}

	if c, ok := out.(io.Closer); ok {
		writer.closer = c
	}

	return &writer, nil
}

func CreateWriter(path string, linkType layers.LinkType, snapLen uint32) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	writer, err := NewWriter(f, linkType, snapLen)
	if err != nil {
		f.Close()
		return nil, err
	}

	return writer, nil
}

// WritePacket writes data with the timestamp and wire length of ci.
func (w *Writer) WritePacket(ci gopacket.CaptureInfo, data []byte) error {
	ci.CaptureLength = len(data)
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}

	return errors.WithStack(w.w.WritePacket(ci, data))
}

func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}

	return w.closer.Close()
}
