// Package clock gates the fixed-rate sub-loops of an agent (turning, firing,
// threat scans) on a per-agent frame counter rather than on wall time, so command
// volume stays bounded whatever the server tick rate or network jitter.
package clock

// Frame counts received snapshots. The zero value is ready to use; the first
// Tick moves it to 1. It is never reset and is owned by a single agent.
type Frame struct {
	n int64
}

// Tick advances the counter by one and returns the new value.
func (f *Frame) Tick() int64 {
	f.n++
	return f.n
}

func (f *Frame) Count() int64 { return f.n }

// Due reports whether the current frame falls on rate. A non-positive rate is never due.
func (f *Frame) Due(rate int) bool {
	if rate <= 0 {
		return false
	}
	return f.n%int64(rate) == 0
}
