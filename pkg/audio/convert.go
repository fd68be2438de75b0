package audio

// STTFormat is the layout transcription backends expect: mono 16 kHz.
const (
	STTSampleRate = 16000
	STTChannels   = 1
)

// ForTranscription converts a frame to mono at targetRate. Frames already in
// the target layout pass through unchanged. Frames with an odd byte count
// (torn int16 samples) come back empty and should be dropped by the caller.
func ForTranscription(f Frame, targetRate int) Frame {
	if len(f.PCM)%2 != 0 {
		return Frame{SampleRate: targetRate, Channels: 1, Timestamp: f.Timestamp}
	}
	if f.SampleRate == targetRate && f.Channels == 1 {
		return f
	}

	samples := Int16s(f.PCM)
	if f.Channels == 2 {
		samples = downmix(samples)
	}
	if f.SampleRate != targetRate {
		samples = resample(samples, f.SampleRate, targetRate)
	}
	return Frame{
		PCM:        Bytes(samples),
		SampleRate: targetRate,
		Channels:   1,
		Timestamp:  f.Timestamp,
	}
}

// downmix averages interleaved stereo samples into mono. int32 arithmetic
// avoids overflow on full-scale inputs.
func downmix(stereo []int16) []int16 {
	mono := make([]int16, len(stereo)/2)
	for i := range mono {
		sum := int32(stereo[i*2]) + int32(stereo[i*2+1])
		mono[i] = int16(sum / 2)
	}
	return mono
}

// resample converts mono samples from srcRate to dstRate by linear
// interpolation. Good enough for speech; transcription models are tolerant
// of interpolation artifacts.
func resample(mono []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(mono) == 0 {
		return mono
	}
	n := int(int64(len(mono)) * int64(dstRate) / int64(srcRate))
	if n == 0 {
		return nil
	}

	out := make([]int16, n)
	step := float64(srcRate) / float64(dstRate)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)

		s0 := mono[idx]
		s1 := s0
		if idx+1 < len(mono) {
			s1 = mono[idx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}
