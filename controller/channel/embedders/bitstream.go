package embedders

import (
	"strconv"
)

// FramingError indicates a symbol stream that cannot be reassembled
// into whole message bytes, or a message that does not fit the
// fixed-width length prefix.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "framing error: " + e.Reason
}

// LengthPrefixSize is the number of bytes prepended to every message
// to carry its byte count. The prefix travels through the same channel
// as the payload, so a receiver needs no out-of-band length agreement.
const LengthPrefixSize = 2

// MaxMessageSize is the largest message the 16 bit length prefix can
// describe.
const MaxMessageSize = 0xFFFF

// ExpandBits converts a byte sequence into its bit symbols, most
// significant bit first within each byte. Each returned element is 0 or 1.
// A message of n bytes always yields exactly 8n symbols.
func ExpandBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for j := 7; j >= 0; j-- {
			bits = append(bits, (b>>uint(j))&0x01)
		}
	}
	return bits
}

// CollapseBits is the inverse of ExpandBits. Any nonzero symbol is
// treated as a 1. The symbol count must be a multiple of 8 or the
// stream cannot align to byte boundaries.
func CollapseBits(bits []byte) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, &FramingError{"bit count " + strconv.Itoa(len(bits)) + " is not a multiple of 8"}
	}
	data := make([]byte, len(bits)/8)
	for i, b := range bits {
		if b != 0 {
			data[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return data, nil
}

// Frame prepends the big endian byte count to a message.
// The framed form is what actually travels over a channel.
func Frame(data []byte) ([]byte, error) {
	if len(data) > MaxMessageSize {
		return nil, &FramingError{"message of " + strconv.Itoa(len(data)) + " bytes exceeds the 16 bit length prefix"}
	}
	framed := make([]byte, 0, LengthPrefixSize+len(data))
	framed = append(framed, byte(len(data)>>8), byte(len(data)))
	return append(framed, data...), nil
}

// ParseLength reads the byte count from a received length prefix.
func ParseLength(prefix []byte) (int, error) {
	if len(prefix) != LengthPrefixSize {
		return 0, &FramingError{"length prefix must be " + strconv.Itoa(LengthPrefixSize) + " bytes, got " + strconv.Itoa(len(prefix))}
	}
	return int(prefix[0])<<8 | int(prefix[1]), nil
}
