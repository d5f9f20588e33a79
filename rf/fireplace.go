package rf

import "time"

// SequenceStep is the wait between the commands of a start or stop sequence.
const SequenceStep = time.Second

// Fireplace exposes the remote's buttons. Every operation blocks until the
// button press has been transmitted. A press that does not resolve to a known
// command transmits nothing and returns nil, exactly like a successful one:
// the RF link has no return channel. Errors only report a failing line.
type Fireplace struct {
	tx    *Transmitter
	pause func(time.Duration)
}

type Option func(*Fireplace)

// WithPause replaces the wait used between sequence steps.
func WithPause(pause func(time.Duration)) Option {
	return func(f *Fireplace) { f.pause = pause }
}

func NewFireplace(tx *Transmitter, opts ...Option) *Fireplace {
	f := &Fireplace{tx: tx, pause: time.Sleep}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fireplace) Transmitter() *Transmitter { return f.tx }

func (f *Fireplace) PowerOn() error  { return f.tx.Send("PowerOn") }
func (f *Fireplace) PowerOff() error { return f.tx.Send("PowerOff") }
func (f *Fireplace) PilotOn() error  { return f.tx.Send("PilotOn") }
func (f *Fireplace) PilotOff() error { return f.tx.Send("PilotOff") }

// SetFan selects fan speed 0..3.
func (f *Fireplace) SetFan(speed int) error { return f.tx.SendValue("Fan", speed) }

// SetFlame selects flame height 1..5.
func (f *Fireplace) SetFlame(level int) error { return f.tx.SendValue("Flame", level) }

// SetAux1 selects auxiliary channel 1 (usually the light) level 0..3.
func (f *Fireplace) SetAux1(level int) error { return f.tx.SendValue("AUX1", level) }

// SetAux2 selects auxiliary channel 2 level 0..1.
func (f *Fireplace) SetAux2(level int) error { return f.tx.SendValue("AUX2", level) }

// StartSequence powers on, stops the fan and settles on the lowest flame.
func (f *Fireplace) StartSequence() error {
	return f.sequence(
		f.PowerOn,
		func() error { return f.SetFan(0) },
		func() error { return f.SetFlame(1) },
	)
}

// StopSequence stops the fan and powers off.
func (f *Fireplace) StopSequence() error {
	return f.sequence(
		func() error { return f.SetFan(0) },
		f.PowerOff,
	)
}

func (f *Fireplace) sequence(steps ...func() error) error {
	for i, step := range steps {
		if i > 0 {
			f.pause(SequenceStep)
		}
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
