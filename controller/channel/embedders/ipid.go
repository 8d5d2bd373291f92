package embedders

import (
	"math/rand"
	"time"

	"golang.org/x/net/ipv4"
)

// FieldEncoder hides one message byte in an IPv4 header field and
// recovers it on the far side. Implementations must leave every other
// header attribute untouched so the carrier stays indistinguishable
// from default traffic.
type FieldEncoder interface {
	GetByte(ipv4h ipv4.Header) (byte, error)
	SetByte(ipv4h ipv4.Header, b byte) (ipv4.Header, error)
	// FieldWidth is the usable capacity of the field in bits.
	FieldWidth() int
}

// IDEncoder stores the covert byte in the low byte of the IPv4
// Identification field. The high byte is randomized so that
// consecutive units carrying the same message byte still produce
// distinct IDs, which lets the receiver drop raw socket duplicates.
type IDEncoder struct{}

func (id *IDEncoder) GetByte(ipv4h ipv4.Header) (byte, error) {
	return byte(ipv4h.ID & 0xFF), nil
}

func (id *IDEncoder) SetByte(ipv4h ipv4.Header, b byte) (ipv4.Header, error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	ipv4h.ID = (r.Int() & 0xFF00) | int(b)
	// The raw socket overrides an IP ID of zero, so keep drawing
	// until the ID is nonzero.
	for ipv4h.ID == 0 {
		ipv4h.ID = (r.Int() & 0xFF00) | int(b)
	}
	return ipv4h, nil
}

func (id *IDEncoder) FieldWidth() int {
	// 16 bit field, but only the low byte carries data.
	return 8
}
