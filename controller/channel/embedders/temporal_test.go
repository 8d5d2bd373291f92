package embedders

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

var tenc TemporalEncoder = TemporalEncoder{
	Bit0Delay: 30 * time.Millisecond,
	Bit1Delay: 60 * time.Millisecond,
	Threshold: 45 * time.Millisecond,
}

func TestThresholdDecision(t *testing.T) {
	cases := []struct {
		gap time.Duration
		bit byte
	}{
		{32 * time.Millisecond, 0},
		{58 * time.Millisecond, 1},
		// A gap exactly at the threshold decodes to 1
		{45 * time.Millisecond, 1},
		{0, 0},
		{time.Second, 1},
	}
	for _, cs := range cases {
		b, err := tenc.GetBit(cs.gap)
		if err != nil {
			t.Errorf("err = '%s'; want nil", err.Error())
		}
		if b != cs.bit {
			t.Errorf("gap %v decoded to %d; want %d", cs.gap, b, cs.bit)
		}
	}
}

func TestSetBit(t *testing.T) {
	if d, _ := tenc.SetBit(0); d != tenc.Bit0Delay {
		t.Errorf("bit 0 delay = %v; want %v", d, tenc.Bit0Delay)
	}
	if d, _ := tenc.SetBit(1); d != tenc.Bit1Delay {
		t.Errorf("bit 1 delay = %v; want %v", d, tenc.Bit1Delay)
	}
	// Any nonzero symbol is a 1
	if d, _ := tenc.SetBit(7); d != tenc.Bit1Delay {
		t.Errorf("bit 7 delay = %v; want %v", d, tenc.Bit1Delay)
	}
}

func TestValidate(t *testing.T) {
	good := TemporalEncoder{30 * time.Millisecond, 60 * time.Millisecond, 45 * time.Millisecond}
	if err := good.Validate(10 * time.Millisecond); err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}

	bad := []TemporalEncoder{
		// Inverted delays
		{80 * time.Millisecond, 70 * time.Millisecond, 75 * time.Millisecond},
		// Threshold outside the delay interval
		{30 * time.Millisecond, 60 * time.Millisecond, 20 * time.Millisecond},
		{30 * time.Millisecond, 60 * time.Millisecond, 70 * time.Millisecond},
		// Zero bit0 delay
		{0, 60 * time.Millisecond, 45 * time.Millisecond},
	}
	for i, enc := range bad {
		if err := enc.Validate(0); err == nil {
			t.Errorf("case %d: err = nil; want validation error", i)
		}
	}

	// Separation below the jitter margin
	tight := TemporalEncoder{30 * time.Millisecond, 40 * time.Millisecond, 35 * time.Millisecond}
	if err := tight.Validate(20 * time.Millisecond); err == nil {
		t.Errorf("err = nil; want separation error")
	}
}

// Decoding gaps with jitter well beyond half the delay separation must
// produce more bit errors than decoding clean gaps. This checks the
// reliability model, not a specific error rate.
func TestJitterSensitivity(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	const trials = 4000

	sep := float64(tenc.Bit1Delay - tenc.Bit0Delay)
	sigma := sep * 1.5

	clean, noisy := 0, 0
	for i := 0; i < trials; i++ {
		bit := byte(r.Intn(2))
		nominal, _ := tenc.SetBit(bit)

		if b, _ := tenc.GetBit(nominal); b != bit {
			clean++
		}

		jittered := time.Duration(float64(nominal) + r.NormFloat64()*sigma)
		if jittered < 0 {
			jittered = 0
		}
		if b, _ := tenc.GetBit(jittered); b != bit {
			noisy++
		}
	}

	if clean != 0 {
		t.Errorf("clean error count = %d; want 0", clean)
	}
	if noisy == 0 {
		t.Errorf("noisy error count = 0; want elevated error rate with sigma %v", time.Duration(math.Round(sigma)))
	}
}
