// Package packet implements the layered parse/serialize views over a shared
// pbuf.Buffer: Ethernet, ARP, IPv4, ICMP, GRE, and PWOSPF (HELLO/LSU), plus
// the double-dispatch Visit mechanism used to route a parsed frame to a
// handler set.
package packet

import "github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"

// Kind tags the dynamic variant of a View, standing in for the source's
// class hierarchy as a plain enumerated tag (see design notes: double
// dispatch as a tagged union, not dynamic inheritance).
type Kind int

const (
	KindUnknown Kind = iota
	KindEthernet
	KindARP
	KindIPv4
	KindICMP
	KindGRE
	KindOSPF
)

func (k Kind) String() string {
	switch k {
	case KindEthernet:
		return "Ethernet"
	case KindARP:
		return "ARP"
	case KindIPv4:
		return "IPv4"
	case KindICMP:
		return "ICMP"
	case KindGRE:
		return "GRE"
	case KindOSPF:
		return "OSPF"
	default:
		return "Unknown"
	}
}

// View is a typed cursor over a shared buffer: it owns no bytes of its own,
// only a position within buf.Data() and (optionally) a back-reference to
// the view that enclosed it. Field accessors on the concrete types
// read/write through Buf() in place.
type View interface {
	Kind() Kind
	Buf() *pbuf.Buffer
	// Offset returns the view's start, counted from the front of the
	// buffer's CURRENT logical window. It is recomputed from the
	// view's tail on every call, so it stays correct across a Prepend
	// that grows the same buffer in front of this view.
	Offset() int
	Enclosing() View
	// Valid reports whether the view's length, version, and (where
	// present) checksum are well formed. Invalid views are dropped by
	// the caller with a debug log; Valid itself never logs or mutates.
	Valid() bool
	// Bytes returns the view's bytes, from its own offset to the end of
	// the logical buffer (i.e. this view plus everything nested in it).
	Bytes() []byte
}

// base is embedded by every concrete view and implements the
// offset/enclosing-reference bookkeeping common to all of them.
//
// Position is stored as "tail": the number of bytes from the END of the
// buffer's logical window to this view's start, exactly mirroring
// pbuf.Buffer's own reverse-offset invariant. That is deliberate: a
// Prepend on the SAME buffer only ever adds bytes in front of the whole
// window, so a view's distance from the end never changes when an outer
// header grows in front of it (e.g. GRE-wrapping an already-parsed IPv4
// view, or building an ICMP error around the offending packet). Offsets
// measured from the front would go stale the moment anything upstream of
// them grew; offsets measured from the end do not.
type base struct {
	buf       *pbuf.Buffer
	tail      int
	enclosing View
}

func (b *base) Buf() *pbuf.Buffer { return b.buf }
func (b *base) Offset() int       { return b.buf.Len() - b.tail }
func (b *base) Enclosing() View   { return b.enclosing }
func (b *base) Bytes() []byte     { return b.buf.Data()[b.Offset():] }

// setEnclosing is used by Payload() implementations to stitch the
// back-reference that lets a handler rewrite an outer header (e.g. the
// Ethernet source/destination MAC) after mutating an inner one (e.g.
// swapping an ARP request into a reply).
func (b *base) setEnclosing(v View) { b.enclosing = v }

// newBase constructs a base positioned at forward offset off within buf's
// CURRENT window, deriving and freezing the equivalent tail distance.
func newBase(buf *pbuf.Buffer, off int, enclosing View) base {
	return base{buf: buf, tail: buf.Len() - off, enclosing: enclosing}
}

// Unknown wraps any payload packet.dispatch cannot further classify (e.g.
// an Ethernet frame whose ethertype isn't IPv4 or ARP, or an IP packet
// whose protocol isn't one this router terminates or forwards specially).
type Unknown struct{ base }

func (u *Unknown) Kind() Kind  { return KindUnknown }
func (u *Unknown) Valid() bool { return true }

// newUnknown builds an Unknown view at off within buf, enclosed by parent.
func newUnknown(buf *pbuf.Buffer, off int, parent View) *Unknown {
	return &Unknown{newBase(buf, off, parent)}
}

// Handler is the visitor invoked by Dispatch; it has one entry per variant,
// expressing double dispatch as a plain tagged switch rather than dynamic
// inheritance (see design notes).
type Handler interface {
	HandleEthernet(v *Ethernet)
	HandleARP(v *ARP)
	HandleIPv4(v *IPv4)
	HandleICMP(v *ICMP)
	HandleGRE(v *GRE)
	HandleOSPF(v *OSPF)
	HandleUnknown(v *Unknown)
}

// Dispatch invokes the Handler method matching view's dynamic Kind.
func Dispatch(v View, h Handler) {
	switch t := v.(type) {
	case *Ethernet:
		h.HandleEthernet(t)
	case *ARP:
		h.HandleARP(t)
	case *IPv4:
		h.HandleIPv4(t)
	case *ICMP:
		h.HandleICMP(t)
	case *GRE:
		h.HandleGRE(t)
	case *OSPF:
		h.HandleOSPF(t)
	case *Unknown:
		h.HandleUnknown(t)
	default:
		h.HandleUnknown(newUnknown(v.Buf(), v.Offset(), v.Enclosing()))
	}
}

// ParseEthernet is the pipeline's entry point: it wraps a raw frame just
// read off an interface in a Buffer and returns the outermost Ethernet
// view over it.
func ParseEthernet(frame []byte) *Ethernet {
	buf := pbuf.FromBytes(frame)
	return &Ethernet{base: newBase(buf, 0, nil)}
}
