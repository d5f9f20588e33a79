package rf

import (
	"errors"
	"sync"
	"testing"
)

type eventKind int

const (
	evBegin eventKind = iota
	evSet
	evDelay
	evEnd
)

type event struct {
	kind eventKind
	high bool
	us   uint32
}

// mockLine records every call made by a Transmitter.
type mockLine struct {
	mu       sync.Mutex
	events   []event
	active   bool
	overlaps int
	beginErr error
	endErr   error
}

func (l *mockLine) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.beginErr != nil {
		return l.beginErr
	}
	if l.active {
		l.overlaps++
	}
	l.active = true
	l.events = append(l.events, event{kind: evBegin})
	return nil
}

func (l *mockLine) Set(high bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{kind: evSet, high: high})
}

func (l *mockLine) Delay(us uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{kind: evDelay, us: us})
}

func (l *mockLine) End() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
	l.events = append(l.events, event{kind: evEnd})
	return l.endErr
}

func (l *mockLine) Events() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event, len(l.events))
	copy(out, l.events)
	return out
}

type pulse struct {
	high bool
	us   uint32
}

// pulses folds the recorded events into alternating HIGH/LOW periods.
func pulses(events []event) []pulse {
	var out []pulse
	level := false
	for _, e := range events {
		switch e.kind {
		case evSet:
			level = e.high
			out = append(out, pulse{high: level})
		case evDelay:
			if len(out) == 0 {
				out = append(out, pulse{high: level})
			}
			out[len(out)-1].us += e.us
		}
	}
	return out
}

// decodeBits classifies every HIGH period as a 1 or 0.
func decodeBits(t *testing.T, ps []pulse, timing Timing) []bool {
	t.Helper()
	var bits []bool
	for _, p := range ps {
		if !p.high {
			continue
		}
		switch p.us {
		case timing.One:
			bits = append(bits, true)
		case timing.Zero:
			bits = append(bits, false)
		default:
			t.Fatalf("HIGH period of %dus is neither a 1 nor a 0", p.us)
		}
	}
	return bits
}

func frameBits(f Frame) []bool {
	var bits []bool
	for _, s := range f {
		for i := 0; i < s.Bits; i++ {
			bits = append(bits, s.Bit(i))
		}
	}
	return bits
}

func TestTransmitFlame5(t *testing.T) {
	line := &mockLine{}
	tx := NewTransmitter(line, DefaultCalibration, DefaultTiming)

	if err := tx.Transmit(Flame5); err != nil {
		t.Fatalf("Transmit() = %v", err)
	}

	events := line.Events()
	if events[0].kind != evBegin || events[len(events)-1].kind != evEnd {
		t.Fatalf("transmission not bracketed by Begin/End")
	}
	for i, e := range events[1 : len(events)-1] {
		if e.kind == evBegin || e.kind == evEnd {
			t.Fatalf("unexpected Begin/End at event %d", i+1)
		}
		if e.kind == evDelay && e.us > DefaultTiming.MaxDelay {
			t.Fatalf("Delay(%d) exceeds max delay %d", e.us, DefaultTiming.MaxDelay)
		}
	}

	ps := pulses(events)
	bits := decodeBits(t, ps, DefaultTiming)
	if len(bits) != 52*10 {
		t.Fatalf("decoded %d bits, want %d", len(bits), 52*10)
	}

	want := frameBits(BuildFrame(DefaultCalibration, Flame5))
	for rep := 0; rep < 10; rep++ {
		for i, b := range want {
			if bits[rep*52+i] != b {
				t.Fatalf("repetition %d bit %d = %v, want %v", rep, i, bits[rep*52+i], b)
			}
		}
	}

	var total uint64
	for _, p := range ps {
		total += uint64(p.us)
	}
	wantTotal := uint64(DefaultTiming.TransmitDuration(BuildFrame(DefaultCalibration, Flame5)).Microseconds())
	if total != wantTotal {
		t.Errorf("line busy for %dus, want %dus", total, wantTotal)
	}
}

func TestTransmitLowPeriods(t *testing.T) {
	line := &mockLine{}
	tx := NewTransmitter(line, DefaultCalibration, DefaultTiming)
	if err := tx.Transmit(PowerOn); err != nil {
		t.Fatalf("Transmit() = %v", err)
	}

	var lows []uint32
	for _, p := range pulses(line.Events()) {
		if !p.high {
			lows = append(lows, p.us)
		}
	}
	if len(lows) != 520 {
		t.Fatalf("got %d LOW periods, want 520", len(lows))
	}

	var pauses int
	for rep := 0; rep < 10; rep++ {
		frame := lows[rep*52 : (rep+1)*52]
		for i, us := range frame {
			var want uint32
			switch {
			case i < 3:
				want = 420
			case i == 3:
				want = 420 + 830
			case (i-3)%8 == 0 && i == 51 && rep < 9:
				want = 700 + 820 + 90900
				pauses++
			case (i-3)%8 == 0:
				want = 700 + 820
			default:
				want = 700
			}
			if us != want {
				t.Fatalf("repetition %d LOW %d = %dus, want %dus", rep, i, us, want)
			}
		}
	}
	if pauses != 9 {
		t.Errorf("saw %d message pauses, want 9", pauses)
	}
}

func TestTransmitChunksMessagePause(t *testing.T) {
	line := &mockLine{}
	tx := NewTransmitter(line, DefaultCalibration, DefaultTiming)
	if err := tx.Transmit(Fan1); err != nil {
		t.Fatalf("Transmit() = %v", err)
	}

	var full, rest int
	for _, e := range line.Events() {
		if e.kind != evDelay {
			continue
		}
		switch e.us {
		case 16383:
			full++
		case 8985:
			rest++
		}
	}
	if full != 9*5 || rest != 9 {
		t.Errorf("got %d full and %d remainder chunks, want 45 and 9", full, rest)
	}
}

func TestSendUnknownIsNoop(t *testing.T) {
	line := &mockLine{}
	tx := NewTransmitter(line, DefaultCalibration, DefaultTiming)

	for i := 0; i < 3; i++ {
		if err := tx.Send("Flame9"); err != nil {
			t.Fatalf("Send() = %v", err)
		}
		if err := tx.SendValue("Fan", 7); err != nil {
			t.Fatalf("SendValue() = %v", err)
		}
		if err := tx.Send("poweron"); err != nil {
			t.Fatalf("Send() = %v", err)
		}
	}
	if n := len(line.Events()); n != 0 {
		t.Errorf("unknown commands produced %d line events", n)
	}
}

func TestTransmitBeginError(t *testing.T) {
	boom := errors.New("boom")
	line := &mockLine{beginErr: boom}
	tx := NewTransmitter(line, DefaultCalibration, DefaultTiming)

	if err := tx.Transmit(PowerOn); !errors.Is(err, boom) {
		t.Fatalf("Transmit() = %v, want %v", err, boom)
	}
	if n := len(line.Events()); n != 0 {
		t.Errorf("failed Begin still produced %d line events", n)
	}
}

func TestTransmitEndError(t *testing.T) {
	boom := errors.New("no ack")
	line := &mockLine{endErr: boom}
	tx := NewTransmitter(line, DefaultCalibration, DefaultTiming)

	if err := tx.Send("PowerOff"); !errors.Is(err, boom) {
		t.Fatalf("Send() = %v, want %v", err, boom)
	}
}

func TestTransmitSerialisesCallers(t *testing.T) {
	timing := DefaultTiming
	timing.Repeat = 2
	line := &mockLine{}
	tx := NewTransmitter(line, DefaultCalibration, timing)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			_ = tx.SendValue("Fan", level%4)
		}(i)
	}
	wg.Wait()

	if line.overlaps != 0 {
		t.Errorf("%d transmissions overlapped", line.overlaps)
	}

	var begins int
	for _, e := range line.Events() {
		if e.kind == evBegin {
			begins++
		}
	}
	if begins != 8 {
		t.Errorf("got %d transmissions, want 8", begins)
	}
}

// nopLine discards everything.
type nopLine struct{}

func (nopLine) Begin() error { return nil }
func (nopLine) Set(bool)     {}
func (nopLine) Delay(uint32) {}
func (nopLine) End() error   { return nil }

func TestEmitFrameDoesNotAllocate(t *testing.T) {
	tx := NewTransmitter(nopLine{}, DefaultCalibration, DefaultTiming)
	frame := BuildFrame(DefaultCalibration, Flame5)

	allocs := testing.AllocsPerRun(20, func() {
		tx.emitFrame(frame)
	})
	if allocs != 0 {
		t.Errorf("emitFrame allocates %v times per frame", allocs)
	}
}
