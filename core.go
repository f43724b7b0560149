package ip4view

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	ierrors "github.com/frozenpine/ip4view/errors"
)

// IPv4 header layout (RFC 791, section 3.1), offsets relative to the view:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|Version|  IHL  |Type of Service|          Total Length         |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|         Identification        |Flags|      Fragment Offset    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|  Time to Live |    Protocol   |         Header Checksum       |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                       Source Address                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Destination Address                        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Options                    |    Padding    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
const (
	OffsetVerIHL  = 0
	OffsetTOS     = 1
	OffsetTotLen  = 2
	OffsetID      = 4
	OffsetFlagsFO = 6
	OffsetTTL     = 8
	OffsetProto   = 9
	OffsetCRC     = 10
	OffsetSrcAddr = 12
	OffsetDstAddr = 16
	OffsetOptions = 20
)

const (
	IPv4Version        = 4
	IPv4HeaderBaseSize = 20
	IPv4HeaderMaxSize  = 60

	DefaultTTL = 64
)

// Flags (3 bits) + Fragment offset (13 bits)
const (
	FlagReserved     uint16 = 0x8000
	FlagDontFragment uint16 = 0x4000
	FlagMoreFragment uint16 = 0x2000
	FragOffsetMask   uint16 = 0x1fff
)

// IPv4Addr ip v4 address
type IPv4Addr [4]byte

func (addr IPv4Addr) String() string {
	return fmt.Sprintf(
		"%d.%d.%d.%d",
		addr[0], addr[1], addr[2], addr[3],
	)
}

// Uint32 returns the address in host order.
func (addr IPv4Addr) Uint32() uint32 {
	return getUint32(addr[:], 0)
}

func (addr IPv4Addr) Addr() netip.Addr {
	return netip.AddrFrom4(addr)
}

// IPv4AddrFrom converts a host order integer into an address.
func IPv4AddrFrom(v uint32) (addr IPv4Addr) {
	putUint32(addr[:], 0, v)
	return
}

// ParseIPv4Addr parses a dotted quad, IPv4-mapped IPv6 addresses are unmapped.
func ParseIPv4Addr(s string) (IPv4Addr, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4Addr{}, errors.WithStack(err)
	}

	ip = ip.Unmap()
	if !ip.Is4() {
		return IPv4Addr{}, errors.Errorf("not an ipv4 address: %s", s)
	}

	return ip.As4(), nil
}

// TransProto transport protocol
type TransProto byte

//go:generate stringer -type TransProto -linecomment
const (
	ICMP TransProto = 0x01 // icmp
	TCP  TransProto = 0x06 // tcp
	UDP  TransProto = 0x11 // udp
)

// HeaderView binds an externally owned buffer and an offset to the IPv4
// header layout. It never copies or owns the buffer: every setter writes
// straight into it.
//
// The fixed 20 byte part is bounds checked once by NewHeaderView, so the
// fixed field accessors cannot leave the buffer. Regions sized by the IHL
// nibble (options, checksum range, payload) are checked on every call.
// The zero HeaderView is not usable, its accessors panic.
//
// The IHL nibble itself is not validated, call Validate for untrusted input.
// HeaderView does no locking, concurrent access to one buffer must be
// synchronized by the caller.
type HeaderView struct {
	buf    []byte
	offset int
}

// NewHeaderView creates a view over buf starting at offset.
func NewHeaderView(buf []byte, offset int) (HeaderView, error) {
	if err := ierrors.CheckBounds(offset, IPv4HeaderBaseSize, len(buf)); err != nil {
		return HeaderView{}, errors.WithStack(err)
	}

	return HeaderView{buf: buf, offset: offset}, nil
}

// Default blanks the header: no options, TOS 0, total length 0,
// identification 0, flags/offset 0 and TTL 64.
// Protocol, addresses and checksum are left for the caller to set.
func (h HeaderView) Default() {
	h.SetHeaderLength(IPv4HeaderBaseSize)
	h.SetTOS(0)
	h.SetTotalLength(0)
	h.SetIdentification(0)
	h.SetFlagsAndOffset(0)
	h.SetTTL(DefaultTTL)
}

// RawData returns the underlying buffer the view was created with.
func (h HeaderView) RawData() []byte { return h.buf }

// Offset returns the header start inside RawData.
func (h HeaderView) Offset() int { return h.offset }

func (h HeaderView) at(field int) int {
	return h.offset + field
}

func (h HeaderView) Version() uint8 {
	return h.buf[h.at(OffsetVerIHL)] >> 4
}

// HeaderLength returns the IHL nibble in bytes, a multiple of 4 in [0, 60].
func (h HeaderView) HeaderLength() int {
	return int(h.buf[h.at(OffsetVerIHL)]&0x0f) * 4
}

// SetHeaderLength stores value/4 in the IHL nibble, the version nibble is
// always written as 4.
func (h HeaderView) SetHeaderLength(value int) {
	h.buf[h.at(OffsetVerIHL)] = byte(IPv4Version<<4) | byte(value/4)&0x0f
}

func (h HeaderView) TOS() uint8 {
	return h.buf[h.at(OffsetTOS)]
}

func (h HeaderView) SetTOS(value uint8) {
	h.buf[h.at(OffsetTOS)] = value
}

// TotalLength is header plus data length.
func (h HeaderView) TotalLength() uint16 {
	return getUint16(h.buf, h.at(OffsetTotLen))
}

func (h HeaderView) SetTotalLength(value uint16) {
	putUint16(h.buf, h.at(OffsetTotLen), value)
}

// DataLength returns TotalLength - HeaderLength, negative for broken headers.
func (h HeaderView) DataLength() int {
	return int(h.TotalLength()) - h.HeaderLength()
}

func (h HeaderView) Identification() uint16 {
	return getUint16(h.buf, h.at(OffsetID))
}

func (h HeaderView) SetIdentification(value uint16) {
	putUint16(h.buf, h.at(OffsetID), value)
}

// FlagsAndOffset returns the combined flags and fragment offset field.
func (h HeaderView) FlagsAndOffset() uint16 {
	return getUint16(h.buf, h.at(OffsetFlagsFO))
}

func (h HeaderView) SetFlagsAndOffset(value uint16) {
	putUint16(h.buf, h.at(OffsetFlagsFO), value)
}

func (h HeaderView) DontFragment() bool {
	return h.FlagsAndOffset()&FlagDontFragment != 0
}

func (h HeaderView) MoreFragments() bool {
	return h.FlagsAndOffset()&FlagMoreFragment != 0
}

// FragmentOffset returns the fragment offset in bytes.
func (h HeaderView) FragmentOffset() int {
	return int(h.FlagsAndOffset()&FragOffsetMask) * 8
}

func (h HeaderView) IsFragment() bool {
	return h.MoreFragments() || h.FragmentOffset() != 0
}

func (h HeaderView) TTL() uint8 {
	return h.buf[h.at(OffsetTTL)]
}

func (h HeaderView) SetTTL(value uint8) {
	h.buf[h.at(OffsetTTL)] = value
}

func (h HeaderView) Protocol() TransProto {
	return TransProto(h.buf[h.at(OffsetProto)])
}

func (h HeaderView) SetProtocol(value TransProto) {
	h.buf[h.at(OffsetProto)] = byte(value)
}

// CRC returns the stored header checksum.
func (h HeaderView) CRC() uint16 {
	return getUint16(h.buf, h.at(OffsetCRC))
}

func (h HeaderView) SetCRC(value uint16) {
	putUint16(h.buf, h.at(OffsetCRC), value)
}

func (h HeaderView) SrcIP() uint32 {
	return getUint32(h.buf, h.at(OffsetSrcAddr))
}

func (h HeaderView) SetSrcIP(value uint32) {
	putUint32(h.buf, h.at(OffsetSrcAddr), value)
}

func (h HeaderView) DstIP() uint32 {
	return getUint32(h.buf, h.at(OffsetDstAddr))
}

func (h HeaderView) SetDstIP(value uint32) {
	putUint32(h.buf, h.at(OffsetDstAddr), value)
}

func (h HeaderView) SrcAddr() (addr IPv4Addr) {
	copy(addr[:], h.buf[h.at(OffsetSrcAddr):])
	return
}

func (h HeaderView) SetSrcAddr(addr IPv4Addr) {
	copy(h.buf[h.at(OffsetSrcAddr):], addr[:])
}

func (h HeaderView) DstAddr() (addr IPv4Addr) {
	copy(addr[:], h.buf[h.at(OffsetDstAddr):])
	return
}

func (h HeaderView) SetDstAddr(addr IPv4Addr) {
	copy(h.buf[h.at(OffsetDstAddr):], addr[:])
}

// region returns [offset+from, offset+to) of the underlying buffer.
func (h HeaderView) region(from, to int) ([]byte, error) {
	start := h.at(from)

	if err := ierrors.CheckBounds(start, to-from, len(h.buf)); err != nil {
		return nil, errors.WithStack(err)
	}

	return h.buf[start : start+to-from], nil
}

// Header returns the header bytes including options.
func (h HeaderView) Header() ([]byte, error) {
	return h.region(0, h.HeaderLength())
}

// Options returns the options and padding bytes, empty for a 20 byte header.
func (h HeaderView) Options() ([]byte, error) {
	hl := h.HeaderLength()
	if hl <= IPv4HeaderBaseSize {
		return nil, nil
	}

	return h.region(OffsetOptions, hl)
}

// Payload returns the data following the header up to TotalLength.
func (h HeaderView) Payload() ([]byte, error) {
	hl, tl := h.HeaderLength(), int(h.TotalLength())
	if tl < hl {
		return nil, errors.Wrapf(
			ierrors.ErrMalformedHeader,
			"total length %d shorter than header length %d", tl, hl,
		)
	}

	return h.region(hl, tl)
}

// Validate checks the version nibble, the minimum IHL and that header and
// total length fit in the buffer.
func (h HeaderView) Validate() error {
	if v := h.Version(); v != IPv4Version {
		return errors.Wrapf(ierrors.ErrMalformedHeader, "version %d", v)
	}

	hl := h.HeaderLength()
	if hl < IPv4HeaderBaseSize {
		return errors.Wrapf(ierrors.ErrMalformedHeader, "header length %d", hl)
	}

	tl := int(h.TotalLength())
	if tl < hl {
		return errors.Wrapf(
			ierrors.ErrMalformedHeader,
			"total length %d shorter than header length %d", tl, hl,
		)
	}

	if remain := len(h.buf) - h.offset; tl > remain {
		return errors.Wrapf(
			ierrors.ErrMalformedHeader,
			"total length %d exceeds %d buffered bytes", tl, remain,
		)
	}

	return nil
}

func (h HeaderView) String() string {
	buff := bytebufferpool.Get()
	defer bytebufferpool.Put(buff)

	proto := h.Protocol()

	buff.WriteString(h.SrcAddr().String())
	buff.WriteString(" -> ")
	buff.WriteString(h.DstAddr().String())
	buff.WriteString(" Pro=")
	buff.WriteString(strconv.Itoa(int(proto)))
	buff.WriteByte('(')
	buff.WriteString(proto.String())
	buff.WriteString("), HLen=")
	buff.WriteString(strconv.Itoa(h.HeaderLength()))

	return buff.String()
}
