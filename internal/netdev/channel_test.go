package netdev_test

import (
	"testing"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netdev"
	"github.com/stretchr/testify/require"
)

func TestChannelDriverLinkSendRecv(t *testing.T) {
	aToB := make(chan []byte, 4)
	bToA := make(chan []byte, 4)

	a := netdev.NewChannelDriver()
	a.Link("eth0", aToB, bToA)
	b := netdev.NewChannelDriver()
	b.Link("eth0", bToA, aToB)

	require.NoError(t, a.Send("eth0", []byte{1, 2, 3}))

	done := make(chan struct{})
	var gotIface string
	var gotFrame []byte
	go func() {
		gotIface, gotFrame, _ = b.Recv()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}

	require.Equal(t, "eth0", gotIface)
	require.Equal(t, []byte{1, 2, 3}, gotFrame)
}

func TestChannelDriverSendUnknownInterface(t *testing.T) {
	d := netdev.NewChannelDriver()
	err := d.Send("nope", []byte{1})
	require.Error(t, err)
}
