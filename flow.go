package ip4view

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/valyala/bytebufferpool"
)

// Flow identifies the network level conversation a header belongs to.
type Flow struct {
	Proto   TransProto
	SrcAddr IPv4Addr
	DstAddr IPv4Addr
}

// Flow snapshots protocol and addresses, later writes to the buffer do not
// change the returned value.
func (h HeaderView) Flow() Flow {
	return Flow{
		Proto:   h.Protocol(),
		SrcAddr: h.SrcAddr(),
		DstAddr: h.DstAddr(),
	}
}

func (f Flow) Reverse() Flow {
	return Flow{
		Proto:   f.Proto,
		SrcAddr: f.DstAddr,
		DstAddr: f.SrcAddr,
	}
}

// NetworkFlow converts the addresses into a gopacket flow.
func (f Flow) NetworkFlow() gopacket.Flow {
	return gopacket.NewFlow(layers.EndpointIPv4, f.SrcAddr[:], f.DstAddr[:])
}

// FastHash is symmetric: a flow and its Reverse hash equally.
func (f Flow) FastHash() uint64 {
	return f.NetworkFlow().FastHash() ^ (uint64(f.Proto) * 0x100000001b3)
}

func (f Flow) String() string {
	buff := bytebufferpool.Get()
	defer bytebufferpool.Put(buff)

	buff.WriteByte('[')
	buff.WriteString(f.Proto.String())
	buff.WriteString("] ")
	buff.WriteString(f.SrcAddr.String())
	buff.WriteString(" -> ")
	buff.WriteString(f.DstAddr.String())

	return buff.String()
}
