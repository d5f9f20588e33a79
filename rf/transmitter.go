package rf

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Line is the single digital output a Transmitter drives.
//
// Begin and End bracket one complete button press. Between them the line
// owner must not be preempted: implementations enter whatever uninterruptible
// context the platform offers in Begin and leave it in End. Delay blocks for
// us microseconds and is never asked to wait longer than Timing.MaxDelay.
type Line interface {
	Begin() error
	Set(high bool)
	Delay(us uint32)
	End() error
}

// Transmitter turns commands into frames on a Line. It owns the line
// exclusively; concurrent callers are serialised.
type Transmitter struct {
	mu     sync.Mutex
	line   Line
	cal    Calibration
	timing Timing
}

// NewTransmitter returns a Transmitter for line. The timing must already be
// valid; see Timing.Validate.
func NewTransmitter(line Line, cal Calibration, timing Timing) *Transmitter {
	return &Transmitter{
		line:   line,
		cal:    cal,
		timing: timing,
	}
}

func (t *Transmitter) Calibration() Calibration { return t.cal }

func (t *Transmitter) Timing() Timing { return t.timing }

// Send resolves name and transmits it. Unknown names are a silent no-op.
func (t *Transmitter) Send(name string) error {
	cmd, ok := Resolve(name)
	if !ok {
		return nil
	}
	return t.Transmit(cmd)
}

// SendValue resolves prefix followed by value, e.g. ("Fan", 2), and
// transmits it. Unknown combinations are a silent no-op.
func (t *Transmitter) SendValue(prefix string, value int) error {
	cmd, ok := ResolveWithValue(prefix, value)
	if !ok {
		return nil
	}
	return t.Transmit(cmd)
}

// Transmit sends cmd Timing.Repeat times. It blocks until the last frame has
// left the line and cannot be cancelled once started.
func (t *Transmitter) Transmit(cmd Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	frame := BuildFrame(t.cal, cmd)
	log.Debugf("rf: transmitting 0x%02X as % X", byte(cmd), frame.Function())

	if err := t.line.Begin(); err != nil {
		return fmt.Errorf("rf: begin transmission: %w", err)
	}

	for x := 1; x <= t.timing.Repeat; x++ {
		t.emitFrame(frame)

		if x < t.timing.Repeat {
			t.delay(t.timing.MessagePause)
		}
	}

	if err := t.line.End(); err != nil {
		return fmt.Errorf("rf: end transmission: %w", err)
	}
	return nil
}

func (t *Transmitter) emitFrame(f Frame) {
	for _, s := range f {
		bitPause, segPause := t.timing.pauses(s.Kind)
		t.emitSegment(s, bitPause, segPause)
	}
}

// emitSegment sends the segment MSB first. segPause is added on top of the
// LOW that follows the last bit.
func (t *Transmitter) emitSegment(s Segment, bitPause, segPause uint32) {
	for i := 0; i < s.Bits; i++ {
		t.emitBit(s.Bit(i), bitPause)
	}
	t.delay(segPause)
}

func (t *Transmitter) emitBit(one bool, bitPause uint32) {
	t.line.Set(true)
	if one {
		t.delay(t.timing.One)
	} else {
		t.delay(t.timing.Zero)
	}
	t.line.Set(false)
	t.delay(bitPause)
}

// delay waits us microseconds in waits no longer than MaxDelay. Bit-level
// waits fit in one call and take no allocation.
func (t *Transmitter) delay(us uint32) {
	if us <= t.timing.MaxDelay || t.timing.MaxDelay == 0 {
		t.line.Delay(us)
		return
	}
	for _, chunk := range SplitDelay(us, t.timing.MaxDelay) {
		t.line.Delay(chunk)
	}
}
