package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frozenpine/ip4view"
	ierrors "github.com/frozenpine/ip4view/errors"
)

const linkOffset = 14

var (
	client  = ip4view.IPv4Addr{10, 0, 0, 1}
	server  = ip4view.IPv4Addr{10, 0, 0, 2}
	public  = ip4view.IPv4Addr{100, 64, 0, 1}
	backend = ip4view.IPv4Addr{192, 168, 7, 7}
)

func stampedHeader(t *testing.T, ttl uint8) (ip4view.HeaderView, []byte) {
	t.Helper()

	buf := make([]byte, linkOffset+40)
	hdr, err := ip4view.NewHeaderView(buf, linkOffset)
	require.NoError(t, err)

	hdr.Default()
	hdr.SetTotalLength(40)
	hdr.SetTTL(ttl)
	hdr.SetProtocol(ip4view.TCP)
	hdr.SetSrcAddr(client)
	hdr.SetDstAddr(server)

	_, err = hdr.RecomputeChecksum()
	require.NoError(t, err)

	return hdr, buf
}

func TestApplyDefault(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	hdr, _ := stampedHeader(t, 64)

	result, err := r.Apply(hdr)
	require.NoError(t, err)

	assert.True(t, result.WasIntact)
	assert.True(t, result.Changed)
	assert.True(t, result.Restamped, "ttl change needs a new checksum")
	assert.EqualValues(t, 63, result.TTL)
	assert.Equal(t, result.Before, result.After)

	ok, err := hdr.VerifyChecksum()
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, Stats{Processed: 1, Rewritten: 1}, r.Stats())
}

func TestApplyNAT(t *testing.T) {
	r, err := New(&Config{
		VerifyChecksum: true,
		SNAT:           []AddrMapping{{From: client, To: public}},
		DNAT:           []AddrMapping{{From: server, To: backend}},
	})
	require.NoError(t, err)

	hdr, _ := stampedHeader(t, 64)

	result, err := r.Apply(hdr)
	require.NoError(t, err)

	assert.Equal(t, public, hdr.SrcAddr())
	assert.Equal(t, backend, hdr.DstAddr())
	assert.Equal(t, client, result.Before.SrcAddr)
	assert.Equal(t, public, result.After.SrcAddr)
	assert.EqualValues(t, 64, hdr.TTL(), "ttl untouched without DecrementTTL")

	ok, _ := hdr.VerifyChecksum()
	assert.True(t, ok)
}

func TestApplyNoChange(t *testing.T) {
	r, err := New(&Config{})
	require.NoError(t, err)

	hdr, _ := stampedHeader(t, 64)

	result, err := r.Apply(hdr)
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.False(t, result.Restamped)
	assert.Zero(t, r.Stats().Rewritten)
}

func TestApplyTTLExpired(t *testing.T) {
	r, err := New(&Config{DecrementTTL: true, MinTTL: 3})
	require.NoError(t, err)

	for _, ttl := range []uint8{0, 1, 2, 3} {
		hdr, buf := stampedHeader(t, ttl)
		before := append([]byte(nil), buf...)

		_, err := r.Apply(hdr)
		assert.ErrorIs(t, err, ierrors.ErrTTLExpired)
		assert.True(t, ierrors.IsRecoverable(err))
		assert.Equal(t, before, buf, "rejected header must stay untouched")
	}

	hdr, _ := stampedHeader(t, 4)
	result, err := r.Apply(hdr)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.TTL)

	assert.EqualValues(t, 4, r.Stats().Expired)
}

func TestApplyCorrupt(t *testing.T) {
	hdr, _ := stampedHeader(t, 64)
	hdr.SetCRC(hdr.CRC() ^ 0x0101)

	lenient, err := New(&Config{VerifyChecksum: true})
	require.NoError(t, err)

	result, err := lenient.Apply(hdr)
	require.NoError(t, err)
	assert.False(t, result.WasIntact)
	assert.True(t, result.Restamped)

	ok, _ := hdr.VerifyChecksum()
	assert.True(t, ok, "lenient stage repairs the checksum")

	hdr.SetCRC(hdr.CRC() ^ 0x0101)

	strict, err := New(&Config{VerifyChecksum: true, DropCorrupt: true})
	require.NoError(t, err)

	_, err = strict.Apply(hdr)
	assert.ErrorIs(t, err, ierrors.ErrBadChecksum)
	assert.True(t, ierrors.IsRecoverable(err))
	assert.EqualValues(t, 1, strict.Stats().Corrupt)
}

func TestApplyMalformed(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	hdr, buf := stampedHeader(t, 64)
	buf[linkOffset] = 0x43

	_, err = r.Apply(hdr)
	assert.ErrorIs(t, err, ierrors.ErrMalformedHeader)

	unchecked, err := New(&Config{DecrementTTL: true})
	require.NoError(t, err)

	hdr.SetHeaderLength(60)
	before := append([]byte(nil), buf...)

	_, err = unchecked.Apply(hdr)
	assert.ErrorIs(t, err, ierrors.ErrOutOfBounds)
	assert.Equal(t, before, buf)
	assert.EqualValues(t, 1, unchecked.Stats().Malformed)
}

func TestNewDuplicateMapping(t *testing.T) {
	_, err := New(&Config{SNAT: []AddrMapping{
		{From: client, To: public},
		{From: client, To: backend},
	}})
	assert.Error(t, err)

	_, err = New(&Config{DNAT: []AddrMapping{
		{From: server, To: backend},
		{From: server, To: backend},
	}})
	assert.NoError(t, err)
}
