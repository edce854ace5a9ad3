package metrics

import "math"

const nanosPerSec = int64(1e9)

// Duration is elapsed wall time as reported by the compiler: a seconds plus
// nanoseconds pair, mirroring the wire format of its timing messages.
type Duration struct {
	Secs  int64 `json:"secs" mapstructure:"secs"`
	Nanos int64 `json:"nanos" mapstructure:"nanos"`
}

// normalize carries or borrows so that Nanos always lands in [0, 1e9).
func (d Duration) normalize() Duration {
	d.Secs += d.Nanos / nanosPerSec
	d.Nanos %= nanosPerSec
	if d.Nanos < 0 {
		d.Secs--
		d.Nanos += nanosPerSec
	}
	return d
}

func (d Duration) Add(other Duration) Duration {
	return Duration{Secs: d.Secs + other.Secs, Nanos: d.Nanos + other.Nanos}.normalize()
}

func (d Duration) Sub(other Duration) Duration {
	return Duration{Secs: d.Secs - other.Secs, Nanos: d.Nanos - other.Nanos}.normalize()
}

// ToMilliseconds converts the pair into a single floating-point millisecond value.
func (d Duration) ToMilliseconds() float64 {
	return float64(d.Secs)*1e3 + float64(d.Nanos)*1e-6
}

// DurationFromMilliseconds is the inverse of ToMilliseconds, up to
// floating-point precision of the millisecond value.
func DurationFromMilliseconds(ms float64) Duration {
	secs := int64(ms / 1e3)
	rem := ms - float64(secs)*1e3
	return Duration{Secs: secs, Nanos: int64(math.Round(rem * 1e6))}.normalize()
}
