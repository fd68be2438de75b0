package audio

import "math"

// maxInt16 is the full-scale amplitude of 16-bit PCM.
const maxInt16 = 32768.0

// Level computes the normalized RMS level of a PCM chunk in [0, 1].
// Silence is 0; a full-scale square wave is 1.
func Level(pcm []byte) float64 {
	samples := Int16s(pcm)
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum/float64(len(samples))) / maxInt16
}

// Meter smooths instantaneous RMS levels with an exponential moving average
// so UI indicators don't flicker on every frame. The zero value uses the
// default smoothing factor. Not safe for concurrent use; feed it from the
// audio goroutine and publish the result elsewhere.
type Meter struct {
	// Alpha is the EMA weight of the newest sample, in (0, 1]. Higher is
	// jumpier. Defaults to 0.3 when zero.
	Alpha float64

	level  float64
	primed bool
}

// Observe folds one PCM chunk into the running level and returns the
// smoothed value.
func (m *Meter) Observe(pcm []byte) float64 {
	alpha := m.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	raw := Level(pcm)
	if !m.primed {
		m.level = raw
		m.primed = true
		return m.level
	}
	m.level = alpha*raw + (1-alpha)*m.level
	return m.level
}

// Value returns the current smoothed level without observing new audio.
func (m *Meter) Value() float64 { return m.level }
