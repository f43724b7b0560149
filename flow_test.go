package ip4view_test

import (
	"testing"

	"github.com/frozenpine/ip4view"
)

func TestFlow(t *testing.T) {
	hdr, _ := knownHeader(t, ethOffset)

	flow := hdr.Flow()

	if flow.Proto != ip4view.TCP || flow.SrcAddr.String() != "10.0.0.1" || flow.DstAddr.String() != "10.0.0.2" {
		t.Fatalf("unexpected flow: %s", flow)
	}

	if s := flow.String(); s != "[tcp] 10.0.0.1 -> 10.0.0.2" {
		t.Fatalf("flow rendering: %s", s)
	}

	hdr.SetSrcAddr(ip4view.IPv4Addr{1, 1, 1, 1})
	if flow.SrcAddr.String() != "10.0.0.1" {
		t.Fatal("flow must not alias the buffer")
	}

	rev := flow.Reverse()
	if rev.SrcAddr != flow.DstAddr || rev.DstAddr != flow.SrcAddr || rev.Proto != flow.Proto {
		t.Fatalf("reverse: %s", rev)
	}

	if rev.FastHash() != flow.FastHash() {
		t.Fatal("fast hash must be symmetric")
	}

	udp := flow
	udp.Proto = ip4view.UDP
	if udp.FastHash() == flow.FastHash() {
		t.Fatal("protocol ignored by fast hash")
	}

	t.Log(flow.NetworkFlow())
}
