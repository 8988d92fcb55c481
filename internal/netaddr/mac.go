package netaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// MACBroadcast is the Ethernet broadcast address ff:ff:ff:ff:ff:ff.
var MACBroadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MACZero is the all-zero address, used as a "not yet resolved" sentinel.
var MACZero = MAC{}

// ParseMAC parses a colon-separated hex address such as "aa:bb:cc:dd:ee:ff".
func ParseMAC(s string) (MAC, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return MAC{}, fmt.Errorf("netaddr: invalid MAC address %q", s)
	}
	var m MAC
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return MAC{}, fmt.Errorf("netaddr: invalid MAC address %q: %w", s, err)
		}
		m[i] = byte(n)
	}
	return m, nil
}

// MustParseMAC is ParseMAC but panics on error; used for constants in tests.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MACFromBytes copies a 6-byte slice into a MAC value.
func MACFromBytes(b []byte) MAC {
	var m MAC
	copy(m[:], b[:6])
	return m
}

// String renders the address in colon-separated hex form.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Equal reports whether m and other denote the same address.
func (m MAC) Equal(other MAC) bool {
	return m == other
}

// IsBroadcast reports whether m is the all-ones broadcast address.
func (m MAC) IsBroadcast() bool {
	return m == MACBroadcast
}

// IsZero reports whether m is the all-zero sentinel.
func (m MAC) IsZero() bool {
	return m == MACZero
}
