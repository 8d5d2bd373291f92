package embedders

import (
	"time"
)

// TemporalEncoder maps single bits to inter packet delays and back.
// The sender side waits Bit0Delay or Bit1Delay before emitting each
// carrier unit; the receiver side classifies each observed arrival gap
// against Threshold. The decision is a single hard boundary with no
// hysteresis or voting, so decode reliability is purely a function of
// how well the two delay populations separate under jitter.
type TemporalEncoder struct {
	Bit0Delay time.Duration
	Bit1Delay time.Duration
	Threshold time.Duration
}

// GetBit classifies an observed gap. A gap exactly at the threshold
// decodes to 1.
func (e *TemporalEncoder) GetBit(gap time.Duration) (byte, error) {
	if gap >= e.Threshold {
		return 1, nil
	}
	return 0, nil
}

// SetBit returns the delay to wait before emitting the unit
// carrying bit b.
func (e *TemporalEncoder) SetBit(b byte) (time.Duration, error) {
	if b != 0 {
		return e.Bit1Delay, nil
	}
	return e.Bit0Delay, nil
}

// Validate rejects delay sets that cannot possibly decode. The
// threshold must sit strictly between the two delays and the delays
// must be separated by at least minSeparation, the caller's expected
// jitter margin.
func (e *TemporalEncoder) Validate(minSeparation time.Duration) error {
	if e.Bit0Delay <= 0 {
		return &validationError{"bit0 delay must be positive"}
	}
	if e.Bit0Delay >= e.Threshold {
		return &validationError{"bit0 delay must be below the threshold"}
	}
	if e.Threshold >= e.Bit1Delay {
		return &validationError{"threshold must be below the bit1 delay"}
	}
	if e.Bit1Delay-e.Bit0Delay < minSeparation {
		return &validationError{"delay separation is below the jitter margin"}
	}
	return nil
}

type validationError struct {
	reason string
}

func (e *validationError) Error() string {
	return e.reason
}
