package audio

import (
	"testing"
	"time"
)

func TestForTranscription_PassThrough(t *testing.T) {
	t.Parallel()
	in := Frame{PCM: Bytes([]int16{100, -100, 300}), SampleRate: 16000, Channels: 1}
	out := ForTranscription(in, 16000)
	if &out.PCM[0] != &in.PCM[0] {
		t.Error("matching format should not reallocate")
	}
}

func TestForTranscription_OddByteCountDropped(t *testing.T) {
	t.Parallel()
	out := ForTranscription(Frame{PCM: []byte{1, 2, 3}, SampleRate: 48000, Channels: 1}, 16000)
	if len(out.PCM) != 0 {
		t.Errorf("torn frame should come back empty, got %d bytes", len(out.PCM))
	}
}

func TestForTranscription_DownmixAndResample(t *testing.T) {
	t.Parallel()
	// 48 kHz stereo in, 16 kHz mono out: sample count shrinks by 6x.
	stereo := make([]int16, 9600*2) // 200 ms at 48 kHz
	for i := range stereo {
		stereo[i] = int16(i % 1000)
	}
	in := Frame{PCM: Bytes(stereo), SampleRate: 48000, Channels: 2, Timestamp: 40 * time.Millisecond}

	out := ForTranscription(in, 16000)
	if out.SampleRate != 16000 || out.Channels != 1 {
		t.Fatalf("format = %d Hz / %d ch", out.SampleRate, out.Channels)
	}
	if got := len(out.PCM) / 2; got != 3200 {
		t.Errorf("sample count = %d, want 3200", got)
	}
	if out.Timestamp != in.Timestamp {
		t.Errorf("timestamp not preserved: %v", out.Timestamp)
	}
}

func TestDownmix_AveragesAndSurvivesFullScale(t *testing.T) {
	t.Parallel()
	mono := downmix([]int16{1000, 2000, -32768, -32768, 32767, 32767})
	want := []int16{1500, -32768, 32767}
	for i, w := range want {
		if mono[i] != w {
			t.Errorf("mono[%d] = %d, want %d", i, mono[i], w)
		}
	}
}

func TestResample_Identity(t *testing.T) {
	t.Parallel()
	in := []int16{1, 2, 3}
	if out := resample(in, 16000, 16000); len(out) != 3 {
		t.Errorf("identity resample changed length to %d", len(out))
	}
}

func TestResample_Interpolates(t *testing.T) {
	t.Parallel()
	// Doubling the rate of a ramp keeps it monotonic.
	in := []int16{0, 100, 200, 300}
	out := resample(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("len = %d, want 8", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("output not monotonic at %d: %v", i, out)
		}
	}
}

func TestFrame_Duration(t *testing.T) {
	t.Parallel()
	f := Frame{PCM: make([]byte, 16000*2), SampleRate: 16000, Channels: 1}
	if got := f.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
	if got := (Frame{}).Duration(); got != 0 {
		t.Errorf("zero frame Duration = %v, want 0", got)
	}
}
