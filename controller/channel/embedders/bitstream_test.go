package embedders

import (
	"bytes"
	"testing"
)

func TestExpandBits(t *testing.T) {
	runBitTest(t, []byte{0x48}, []byte{0, 1, 0, 0, 1, 0, 0, 0})
	runBitTest(t, []byte{0x48, 0x49},
		[]byte{0, 1, 0, 0, 1, 0, 0, 0,
			0, 1, 0, 0, 1, 0, 0, 1})
	runBitTest(t, []byte{0x00}, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	runBitTest(t, []byte{0xFF}, []byte{1, 1, 1, 1, 1, 1, 1, 1})
	runBitTest(t, []byte{}, []byte{})
}

func runBitTest(t *testing.T, input []byte, expected []byte) {
	bits := ExpandBits(input)
	if bytes.Compare(expected, bits) != 0 {
		t.Errorf("Expanding expected = %v; got %v", expected, bits)
	}
	output, err := CollapseBits(bits)
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if bytes.Compare(input, output) != 0 {
		t.Errorf("Collapsing expected = %v; got %v", input, output)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("Hello world!"),
		[]byte(""),
		[]byte{0x00, 0xFF, 0x80, 0x01},
		bytes.Repeat([]byte{0xAA}, 300),
	}
	for _, input := range inputs {
		output, err := CollapseBits(ExpandBits(input))
		if err != nil {
			t.Errorf("err = '%s'; want nil", err.Error())
		}
		if bytes.Compare(input, output) != 0 {
			t.Errorf("Round trip expected = %v; got %v", input, output)
		}
	}
}

func TestCollapseRaggedLength(t *testing.T) {
	for _, n := range []int{1, 7, 9, 15} {
		if _, err := CollapseBits(make([]byte, n)); err == nil {
			t.Errorf("err = nil for %d bits; want framing error", n)
		} else if _, ok := err.(*FramingError); !ok {
			t.Errorf("err = '%s'; want FramingError", err.Error())
		}
	}
}

func TestFrame(t *testing.T) {
	framed, err := Frame([]byte("HI"))
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if bytes.Compare(framed, []byte{0x00, 0x02, 'H', 'I'}) != 0 {
		t.Errorf("framed = %v; want [0 2 72 73]", framed)
	}
	n, err := ParseLength(framed[:LengthPrefixSize])
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if n != 2 {
		t.Errorf("length = %d; want 2", n)
	}
}

func TestFrameEmpty(t *testing.T) {
	framed, err := Frame(nil)
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if bytes.Compare(framed, []byte{0x00, 0x00}) != 0 {
		t.Errorf("framed = %v; want [0 0]", framed)
	}
}

func TestFrameTooLong(t *testing.T) {
	if _, err := Frame(make([]byte, MaxMessageSize+1)); err == nil {
		t.Errorf("err = nil; want framing error")
	}
}
