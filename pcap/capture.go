package pcap

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"

	"github.com/frozenpine/ip4view"
	"github.com/frozenpine/ip4view/cache"
	ierrors "github.com/frozenpine/ip4view/errors"
	"github.com/frozenpine/ip4view/log"
)

var (
	dataSourcePattern = regexp.MustCompile(`^(?P<proto>file)://(?P<source>.*)$`)
)

// PacketSource is satisfied by pcapgo readers and libpcap handles.
type PacketSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Handler receives a view over a private, mutable copy of the frame. The
// view's RawData is frame, valid only until Handler returns.
type Handler func(ci gopacket.CaptureInfo, hdr ip4view.HeaderView) error

// Handle a packet source opened from a data source string.
type Handle struct {
	PacketSource

	closer io.Closer
}

func (h *Handle) Close() error {
	if h.closer == nil {
		return nil
	}

	return h.closer.Close()
}

// NewHandle reads a pcap or pcapng stream.
func NewHandle(r io.Reader, ng bool) (*Handle, error) {
	var (
		src PacketSource
		err error
	)

	if ng {
		src, err = pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(r)
	}

	if err != nil {
		return nil, errors.WithStack(err)
	}

	handle := Handle{PacketSource: src}

	if c, ok := r.(io.Closer); ok {
		handle.closer = c
	}

	return &handle, nil
}

// CreateHandler opens "file://<path>", .pcapng files are read as pcapng.
func CreateHandler(dataSrc string) (*Handle, error) {
	srcMatch := dataSourcePattern.FindStringSubmatch(dataSrc)
	if srcMatch == nil {
		return nil, errors.New("invalid data source: " + dataSrc)
	}

	var source string

	for idx, name := range dataSourcePattern.SubexpNames() {
		if name == "source" {
			source = srcMatch[idx]
		}
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	handle, err := NewHandle(f, strings.HasSuffix(source, ".pcapng"))
	if err != nil {
		f.Close()
		return nil, err
	}

	return handle, nil
}

// ipv4Offset returns where the IPv4 header starts inside the decoded frame.
func ipv4Offset(pkt gopacket.Packet) (int, bool) {
	offset := 0

	for _, layer := range pkt.Layers() {
		if layer.LayerType() == layers.LayerTypeIPv4 {
			return offset, true
		}

		offset += len(layer.LayerContents())
	}

	return 0, false
}

// StartCapture feeds every IPv4 frame of src to fn until src is exhausted
// or ctx is done. Non IPv4 frames are skipped. Recoverable handler errors
// are logged and the capture continues, any other error stops it.
func StartCapture(ctx context.Context, src PacketSource, fn Handler) error {
	if fn == nil {
		return errors.New("data handler can not be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		pool    = cache.NewBytesPool(0)
		logger  = log.GetLogger().WithField("link", src.LinkType())
		decoder = src.LinkType()
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			data, ci, err := src.ReadPacketData()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}

				return errors.WithStack(err)
			}

			frame := pool.Copy(data)

			err = handleFrame(frame, ci, decoder, fn)

			pool.PutSlice(frame)

			if err == nil {
				continue
			}

			if errors.Is(err, io.EOF) {
				return nil
			}

			if ierrors.IsRecoverable(err) {
				logger.WithError(err).Warnf("[%s] frame dropped", ci.Timestamp)
				continue
			}

			return errors.Wrapf(err, "[%s] data handler failed", ci.Timestamp)
		}
	}
}

func handleFrame(frame []byte, ci gopacket.CaptureInfo, decoder gopacket.Decoder, fn Handler) error {
	pkt := gopacket.NewPacket(frame, decoder, gopacket.NoCopy)

	offset, ok := ipv4Offset(pkt)
	if !ok {
		return nil
	}

	hdr, err := ip4view.NewHeaderView(frame, offset)
	if err != nil {
		return ierrors.MarkRecoverable(err)
	}

	return fn(ci, hdr)
}
