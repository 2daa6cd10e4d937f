package treekem

import (
	"encoding/binary"
	"fmt"

	"sealedstate/internal/domain"
)

// Op is the handshake operation tag.
type Op uint8

const (
	OpAdd    Op = 1
	OpUpdate Op = 2
	OpRemove Op = 3
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// maxPathLen bounds the direct path length accepted from the wire.
const maxPathLen = 32

// Share is a path secret sealed to the public key of one resolution node.
type Share struct {
	Node       uint32
	Ciphertext []byte
}

// Handshake moves the group to a new tree. The sender refreshes its leaf and
// every node on its direct path; Shares carry the new path secrets to the
// copath. For Add, Target is the new leaf index and AddedLeaf its key; a
// sender equal to Target is a self-add. For Remove, Target is the removed leaf.
// For Update, Target equals Sender.
type Handshake struct {
	Op        Op
	Sender    domain.RosterIndex
	Target    domain.RosterIndex
	AddedLeaf domain.X25519Public
	LeafPub   domain.X25519Public
	PathPubs  []domain.X25519Public
	Shares    []Share
}

// shareAAD binds a sealed path secret to the handshake and recipient node.
func shareAAD(op Op, sender, target domain.RosterIndex, node uint32) []byte {
	b := make([]byte, 0, 16)
	b = append(b, []byte("tk|share")...)
	b = append(b, byte(op))
	b = binary.BigEndian.AppendUint32(b, uint32(sender))
	b = binary.BigEndian.AppendUint32(b, uint32(target))
	return binary.BigEndian.AppendUint32(b, node)
}

// Marshal encodes h:
//
//	op u8 ‖ sender u32 ‖ target u32 ‖ [added leaf 32, Add only] ‖ leaf pub 32 ‖
//	u16 n ‖ path pub 32 * n ‖ u16 m ‖ (node u32 ‖ u16 len ‖ sealed secret) * m
func (h *Handshake) Marshal() []byte {
	size := 1 + 4 + 4 + 32 + 2 + 32*len(h.PathPubs) + 2
	if h.Op == OpAdd {
		size += 32
	}
	for _, s := range h.Shares {
		size += 4 + 2 + len(s.Ciphertext)
	}
	b := make([]byte, 0, size)
	b = append(b, byte(h.Op))
	b = binary.BigEndian.AppendUint32(b, uint32(h.Sender))
	b = binary.BigEndian.AppendUint32(b, uint32(h.Target))
	if h.Op == OpAdd {
		b = append(b, h.AddedLeaf[:]...)
	}
	b = append(b, h.LeafPub[:]...)
	b = binary.BigEndian.AppendUint16(b, uint16(len(h.PathPubs)))
	for _, p := range h.PathPubs {
		b = append(b, p[:]...)
	}
	b = binary.BigEndian.AppendUint16(b, uint16(len(h.Shares)))
	for _, s := range h.Shares {
		b = binary.BigEndian.AppendUint32(b, s.Node)
		b = binary.BigEndian.AppendUint16(b, uint16(len(s.Ciphertext)))
		b = append(b, s.Ciphertext...)
	}
	return b
}

// UnmarshalHandshake decodes a handshake. Any structural problem, including
// trailing bytes, is a codec error.
func UnmarshalHandshake(b []byte) (*Handshake, error) {
	r := reader{buf: b}
	h := &Handshake{}
	h.Op = Op(r.u8())
	switch h.Op {
	case OpAdd, OpUpdate, OpRemove:
	default:
		if r.err == nil {
			return nil, fmt.Errorf("%w: unknown handshake op %d", domain.ErrCodec, uint8(h.Op))
		}
	}
	h.Sender = domain.RosterIndex(r.u32())
	h.Target = domain.RosterIndex(r.u32())
	if h.Op == OpAdd {
		r.key(&h.AddedLeaf)
	}
	r.key(&h.LeafPub)

	n := int(r.u16())
	if n > maxPathLen {
		return nil, fmt.Errorf("%w: path of %d nodes", domain.ErrCodec, n)
	}
	if n > 0 && r.err == nil {
		h.PathPubs = make([]domain.X25519Public, n)
		for i := range h.PathPubs {
			r.key(&h.PathPubs[i])
		}
	}

	m := int(r.u16())
	for i := 0; i < m && r.err == nil; i++ {
		var s Share
		s.Node = r.u32()
		s.Ciphertext = r.bytes(int(r.u16()))
		h.Shares = append(h.Shares, s)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing handshake bytes", domain.ErrCodec, len(r.buf))
	}
	return h, nil
}

// reader consumes big-endian fields and latches the first short read.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("%w: short handshake, need %d bytes, have %d", domain.ErrCodec, n, len(r.buf))
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) key(dst *domain.X25519Public) {
	if b := r.take(32); b != nil {
		copy(dst[:], b)
	}
}

func (r *reader) bytes(n int) []byte {
	if b := r.take(n); b != nil {
		return append([]byte(nil), b...)
	}
	return nil
}
