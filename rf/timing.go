package rf

import (
	"errors"
	"fmt"
	"time"
)

// Timing holds every duration of the protocol in microseconds.
type Timing struct {
	One                uint32 // HIGH length of a 1 bit
	Zero               uint32 // HIGH length of a 0 bit
	HeaderBitPause     uint32 // LOW after each header bit
	HeaderSegmentPause uint32 // extra LOW after the header
	BodyBitPause       uint32 // LOW after each body bit
	BodySegmentPause   uint32 // extra LOW after each body segment
	MessagePause       uint32 // idle between repetitions
	Repeat             int    // repetitions per button press
	MaxDelay           uint32 // longest single wait the line accepts
}

// DefaultTiming reproduces the captured remote. The header gap totals 1250us
// and the body gap 1520us once combined with the last bit's LOW.
var DefaultTiming = Timing{
	One:                880,
	Zero:               380,
	HeaderBitPause:     420,
	HeaderSegmentPause: 830,
	BodyBitPause:       700,
	BodySegmentPause:   820,
	MessagePause:       90900,
	Repeat:             10,
	MaxDelay:           16383,
}

var ErrInvalidTiming = errors.New("invalid timing")

// Validate reports whether the timing can be transmitted.
func (t Timing) Validate() error {
	switch {
	case t.Zero == 0:
		return fmt.Errorf("%w: zero bit length must be positive", ErrInvalidTiming)
	case t.One <= t.Zero:
		return fmt.Errorf("%w: one bit (%dus) must be longer than zero bit (%dus)", ErrInvalidTiming, t.One, t.Zero)
	case t.Repeat < 1:
		return fmt.Errorf("%w: repeat must be at least 1, got %d", ErrInvalidTiming, t.Repeat)
	case t.MaxDelay == 0:
		return fmt.Errorf("%w: max delay must be positive", ErrInvalidTiming)
	}
	return nil
}

// SplitDelay breaks a wait of us microseconds into chunks no longer than
// limit: as many full chunks as needed and a final remainder. The chunks
// always sum to us.
func SplitDelay(us, limit uint32) []uint32 {
	if limit == 0 {
		return []uint32{us}
	}

	chunks := make([]uint32, 0, us/limit+1)
	for us > limit {
		chunks = append(chunks, limit)
		us -= limit
	}
	return append(chunks, us)
}

// FrameDuration is the on-air length of one repetition of f.
func (t Timing) FrameDuration(f Frame) time.Duration {
	var us uint64
	for _, s := range f {
		bitPause, segPause := t.pauses(s.Kind)
		for i := 0; i < s.Bits; i++ {
			if s.Bit(i) {
				us += uint64(t.One)
			} else {
				us += uint64(t.Zero)
			}
			us += uint64(bitPause)
		}
		us += uint64(segPause)
	}
	return time.Duration(us) * time.Microsecond
}

// TransmitDuration is the length of a full button press: every repetition of
// f plus the idle periods between them.
func (t Timing) TransmitDuration(f Frame) time.Duration {
	if t.Repeat < 1 {
		return 0
	}
	idle := time.Duration(t.Repeat-1) * time.Duration(t.MessagePause) * time.Microsecond
	return time.Duration(t.Repeat)*t.FrameDuration(f) + idle
}

func (t Timing) pauses(k SegmentKind) (bit, segment uint32) {
	if k == HeaderSegment {
		return t.HeaderBitPause, t.HeaderSegmentPause
	}
	return t.BodyBitPause, t.BodySegmentPause
}
