package audio

import (
	"math"
	"testing"
)

func TestLevel_Silence(t *testing.T) {
	t.Parallel()
	if got := Level(make([]byte, 640)); got != 0 {
		t.Errorf("Level(silence) = %v, want 0", got)
	}
	if got := Level(nil); got != 0 {
		t.Errorf("Level(nil) = %v, want 0", got)
	}
}

func TestLevel_FullScale(t *testing.T) {
	t.Parallel()
	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = 32767
	}
	got := Level(Bytes(samples))
	if math.Abs(got-1.0) > 0.001 {
		t.Errorf("Level(full scale) = %v, want ~1.0", got)
	}
}

func TestMeter_Smooths(t *testing.T) {
	t.Parallel()
	loud := make([]int16, 320)
	for i := range loud {
		loud[i] = 16000
	}
	quiet := make([]byte, 640)

	var m Meter
	first := m.Observe(Bytes(loud))
	if first <= 0 {
		t.Fatalf("first observation = %v, want > 0", first)
	}

	// One quiet frame must not drop the meter straight to zero.
	after := m.Observe(quiet)
	if after <= 0 || after >= first {
		t.Errorf("smoothed level = %v, want between 0 and %v", after, first)
	}
	if m.Value() != after {
		t.Errorf("Value() = %v, want %v", m.Value(), after)
	}
}
