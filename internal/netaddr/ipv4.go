// Package netaddr implements the fixed-width address types shared by every
// layer of the packet pipeline: IPv4 addresses and Ethernet MAC addresses.
package netaddr

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// IPv4 is a 32-bit IPv4 address held in host-independent (numeric) form.
// Conversion to and from network byte order happens only at the wire
// boundary, in the packet package.
type IPv4 uint32

// Zero is the unspecified address 0.0.0.0.
const Zero IPv4 = 0

// Broadcast is the limited broadcast address 255.255.255.255.
const Broadcast IPv4 = 0xFFFFFFFF

// ParseIPv4 parses a dotted-quad string such as "10.0.0.1".
func ParseIPv4(s string) (IPv4, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("netaddr: invalid IPv4 address %q", s)
	}
	var v uint32
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("netaddr: invalid IPv4 address %q: %w", s, err)
		}
		v = (v << 8) | uint32(n)
	}
	return IPv4(v), nil
}

// MustParseIPv4 is ParseIPv4 but panics on error; used for constants in tests.
func MustParseIPv4(s string) IPv4 {
	v, err := ParseIPv4(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IPv4FromBytes reads a 4-byte big-endian slice into an IPv4 address.
func IPv4FromBytes(b []byte) IPv4 {
	return IPv4(binary.BigEndian.Uint32(b[:4]))
}

// PutBytes writes a the address in network byte order into b[:4].
func (a IPv4) PutBytes(b []byte) {
	binary.BigEndian.PutUint32(b[:4], uint32(a))
}

// Bytes returns the address as a freshly allocated 4-byte big-endian slice.
func (a IPv4) Bytes() []byte {
	b := make([]byte, 4)
	a.PutBytes(b)
	return b
}

// String renders the address in dotted-quad form.
func (a IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// Mask returns a & m.
func (a IPv4) Mask(m IPv4) IPv4 {
	return a & m
}

// PrefixLen computes the CIDR prefix length of a contiguous mask, e.g.
// 255.255.255.0 -> 24. Non-contiguous masks return the count of leading
// one-bits (this router never builds a discontiguous mask itself).
func (a IPv4) PrefixLen() int {
	n := 0
	v := uint32(a)
	for v&0x80000000 != 0 {
		n++
		v <<= 1
	}
	return n
}

// CIDRMask builds the IPv4 mask for a given prefix length (0-32).
func CIDRMask(prefixLen int) IPv4 {
	if prefixLen <= 0 {
		return 0
	}
	if prefixLen >= 32 {
		return Broadcast
	}
	return IPv4(^uint32(0) << uint(32-prefixLen))
}

// Equal reports whether a and b denote the same address.
func (a IPv4) Equal(b IPv4) bool {
	return a == b
}

// IsZero reports whether a is the unspecified address.
func (a IPv4) IsZero() bool {
	return a == Zero
}
