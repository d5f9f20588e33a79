package rf

import (
	"testing"
	"time"
)

// sentCommands decodes the command byte of every transmission on the line.
func sentCommands(t *testing.T, line *mockLine, timing Timing) []Command {
	t.Helper()

	var (
		out     []Command
		current []event
	)
	for _, e := range line.Events() {
		switch e.kind {
		case evBegin:
			current = current[:0]
		case evEnd:
			bits := decodeBits(t, pulses(current), timing)
			if len(bits) != 52*timing.Repeat {
				t.Fatalf("transmission carried %d bits, want %d", len(bits), 52*timing.Repeat)
			}
			var b byte
			for _, bit := range bits[28:36] {
				b <<= 1
				if bit {
					b |= 1
				}
			}
			out = append(out, Command(b))
		default:
			current = append(current, e)
		}
	}
	return out
}

func newTestFireplace() (*Fireplace, *mockLine, *[]time.Duration) {
	line := &mockLine{}
	timing := DefaultTiming
	timing.Repeat = 1
	var pauses []time.Duration
	f := NewFireplace(
		NewTransmitter(line, DefaultCalibration, timing),
		WithPause(func(d time.Duration) { pauses = append(pauses, d) }),
	)
	return f, line, &pauses
}

func TestFireplaceButtons(t *testing.T) {
	tests := []struct {
		name string
		call func(*Fireplace) error
		want []Command
	}{
		{"power on", (*Fireplace).PowerOn, []Command{PowerOn}},
		{"power off", (*Fireplace).PowerOff, []Command{PowerOff}},
		{"pilot on", (*Fireplace).PilotOn, []Command{PilotOn}},
		{"pilot off", (*Fireplace).PilotOff, []Command{PilotOff}},
		{"fan 2", func(f *Fireplace) error { return f.SetFan(2) }, []Command{Fan2}},
		{"flame 5", func(f *Fireplace) error { return f.SetFlame(5) }, []Command{Flame5}},
		{"aux1 3", func(f *Fireplace) error { return f.SetAux1(3) }, []Command{Aux13}},
		{"aux2 0", func(f *Fireplace) error { return f.SetAux2(0) }, []Command{Aux20}},
		{"flame 0 ignored", func(f *Fireplace) error { return f.SetFlame(0) }, nil},
		{"fan 4 ignored", func(f *Fireplace) error { return f.SetFan(4) }, nil},
		{"aux2 3 ignored", func(f *Fireplace) error { return f.SetAux2(3) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, line, _ := newTestFireplace()
			if err := tt.call(f); err != nil {
				t.Fatalf("call = %v", err)
			}
			got := sentCommands(t, line, f.Transmitter().Timing())
			if len(got) != len(tt.want) {
				t.Fatalf("sent %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("sent %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestStartSequence(t *testing.T) {
	f, line, pauses := newTestFireplace()
	if err := f.StartSequence(); err != nil {
		t.Fatalf("StartSequence() = %v", err)
	}

	got := sentCommands(t, line, f.Transmitter().Timing())
	want := []Command{PowerOn, Fan0, Flame1}
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent %v, want %v", got, want)
		}
	}
	if len(*pauses) != 2 || (*pauses)[0] != time.Second || (*pauses)[1] != time.Second {
		t.Errorf("pauses = %v, want [1s 1s]", *pauses)
	}
}

func TestStopSequence(t *testing.T) {
	f, line, pauses := newTestFireplace()
	if err := f.StopSequence(); err != nil {
		t.Fatalf("StopSequence() = %v", err)
	}

	got := sentCommands(t, line, f.Transmitter().Timing())
	if len(got) != 2 || got[0] != Fan0 || got[1] != PowerOff {
		t.Fatalf("sent %v, want [Fan0 PowerOff]", got)
	}
	if len(*pauses) != 1 || (*pauses)[0] != time.Second {
		t.Errorf("pauses = %v, want [1s]", *pauses)
	}
}
