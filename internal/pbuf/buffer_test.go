package pbuf_test

import (
	"testing"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/stretchr/testify/require"
)

func TestNewAndData(t *testing.T) {
	b := pbuf.New(20)
	require.Equal(t, 20, b.Len())
	require.GreaterOrEqual(t, b.Cap(), 20)
	require.Len(t, b.Data(), 20)
}

func TestPrependPreservesExistingBytes(t *testing.T) {
	b := pbuf.New(4)
	copy(b.Data(), []byte{0xAA, 0xBB, 0xCC, 0xDD})

	hdr := b.Prepend(14)
	require.Len(t, hdr, 14)
	require.Equal(t, 18, b.Len())

	// the original 4 bytes must still be the tail of Data().
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, b.Data()[14:])
}

func TestPrependGrowsBackingArray(t *testing.T) {
	b := pbuf.New(4)
	initialCap := b.Cap()
	payload := b.Data()
	copy(payload, []byte{1, 2, 3, 4})

	// Force growth past the backing array's capacity.
	for b.Len() < initialCap+1 {
		b.Prepend(64)
	}

	require.Greater(t, b.Cap(), initialCap)
	require.Equal(t, []byte{1, 2, 3, 4}, b.Data()[b.Len()-4:])
}

func TestTruncate(t *testing.T) {
	b := pbuf.New(10)
	copy(b.Data(), []byte("0123456789"))
	b.Truncate(4)
	require.Equal(t, []byte("6789"), b.Data())
}

func TestCloneIsIndependent(t *testing.T) {
	b := pbuf.New(4)
	copy(b.Data(), []byte{1, 2, 3, 4})
	clone := b.Clone()
	clone.Data()[0] = 0xFF
	require.Equal(t, byte(1), b.Data()[0])
	require.Equal(t, byte(0xFF), clone.Data()[0])
}

func TestFromBytes(t *testing.T) {
	orig := []byte{9, 8, 7, 6, 5}
	b := pbuf.FromBytes(orig)
	require.Equal(t, orig, b.Data())
}
