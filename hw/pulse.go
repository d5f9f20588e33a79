// Package hw provides the output lines an rf.Transmitter can drive.
package hw

// Pulse is a period during which the line holds one level.
type Pulse struct {
	High   bool
	Micros uint32
}

// pulseBuffer collects the Set/Delay calls of one transmission. Consecutive
// delays are kept apart so chunked waits stay visible.
type pulseBuffer struct {
	level  bool
	pulses []Pulse
}

func (b *pulseBuffer) reset() {
	b.level = false
	b.pulses = b.pulses[:0]
}

func (b *pulseBuffer) set(high bool) {
	b.level = high
}

func (b *pulseBuffer) delay(us uint32) {
	if us == 0 {
		return
	}
	b.pulses = append(b.pulses, Pulse{High: b.level, Micros: us})
}

func (b *pulseBuffer) snapshot() []Pulse {
	out := make([]Pulse, len(b.pulses))
	copy(out, b.pulses)
	return out
}

// Duration sums the pulses in microseconds.
func Duration(pulses []Pulse) uint64 {
	var us uint64
	for _, p := range pulses {
		us += uint64(p.Micros)
	}
	return us
}
