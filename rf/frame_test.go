package rf

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		cmd       Command
		k         byte
		wantEnc   byte
		wantCheck byte
	}{
		{"power on", PowerOn, 0xFE, 0xFE, 0x01},
		{"flame 5", Flame5, 0xFE, 0x32, 0xCD},
		{"wraps", Aux21, 0xFE, 0x5E, 0xA1},
		{"k of zero wraps below", PowerOn, 0x00, 0x00, 0xFF},
		{"k of one is identity", Fan2, 0x01, 0x42, 0xBD},
		{"zero command", 0x00, 0x00, 0xFF, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Encode(tt.cmd, tt.k)
			if e.Command != tt.cmd {
				t.Errorf("Command = 0x%02X, want 0x%02X", e.Command, tt.cmd)
			}
			if e.Enc != tt.wantEnc {
				t.Errorf("Enc = 0x%02X, want 0x%02X", e.Enc, tt.wantEnc)
			}
			if e.Check() != tt.wantCheck {
				t.Errorf("Check() = 0x%02X, want 0x%02X", e.Check(), tt.wantCheck)
			}
		})
	}
}

func TestEncodeMatchesModularFormula(t *testing.T) {
	for k := 0; k < 256; k++ {
		for c := 0; c < 256; c++ {
			want := byte((c + k - 1 + 256) % 256)
			e := Encode(Command(c), byte(k))
			if e.Enc != want {
				t.Fatalf("Encode(0x%02X, 0x%02X).Enc = 0x%02X, want 0x%02X", c, k, e.Enc, want)
			}
			if e.Check()^e.Enc != 0xFF {
				t.Fatalf("Check() is not the complement of Enc for 0x%02X/0x%02X", c, k)
			}
		}
	}
}

func TestBuildFrame(t *testing.T) {
	f := BuildFrame(DefaultCalibration, Flame5)

	want := [SegmentCount]struct {
		value byte
		bits  int
		kind  SegmentKind
	}{
		{0b1010, 4, HeaderSegment},
		{0xC4, 8, BodySegment},
		{0xB1, 8, BodySegment},
		{0x33, 8, BodySegment},
		{0x35, 8, BodySegment},
		{0x32, 8, BodySegment},
		{0xCD, 8, BodySegment},
	}
	for i, w := range want {
		s := f[i]
		if s.Value != w.value || s.Bits != w.bits || s.Kind != w.kind {
			t.Errorf("segment %d = {0x%02X %d %d}, want {0x%02X %d %d}", i, s.Value, s.Bits, s.Kind, w.value, w.bits, w.kind)
		}
	}

	if got := f.Function(); got != [3]byte{0x35, 0x32, 0xCD} {
		t.Errorf("Function() = % X, want 35 32 CD", got)
	}
}

func TestFrameBitsIsConstant(t *testing.T) {
	for _, name := range Names() {
		cmd, _ := Resolve(name)
		if got := BuildFrame(DefaultCalibration, cmd).Bits(); got != 52 {
			t.Errorf("%s: Bits() = %d, want 52", name, got)
		}
	}
}

func TestSegmentBitOrder(t *testing.T) {
	s := Segment{Value: 0b1010, Bits: 4}
	want := []bool{true, false, true, false}
	for i, w := range want {
		if s.Bit(i) != w {
			t.Errorf("header Bit(%d) = %v, want %v", i, s.Bit(i), w)
		}
	}

	s = Segment{Value: 0x80, Bits: 8}
	if !s.Bit(0) || s.Bit(7) {
		t.Errorf("0x80 must start with a 1 and end with a 0")
	}
}

func TestCustomCalibration(t *testing.T) {
	cal := Calibration{Start: [3]byte{0x11, 0x22, 0x33}, K: 0x10}
	f := BuildFrame(cal, PowerOff)

	if f[1].Value != 0x11 || f[2].Value != 0x22 || f[3].Value != 0x33 {
		t.Errorf("start segments = % X % X % X, want 11 22 33", f[1].Value, f[2].Value, f[3].Value)
	}
	if got := f.Function(); got != [3]byte{0x02, 0x11, 0xEE} {
		t.Errorf("Function() = % X, want 02 11 EE", got)
	}
}
