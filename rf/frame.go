package rf

// Frame layout on air, one segment per cell, most significant bit first:
//
//	[Header] [Start1] [Start2] [Start3] [Command] [Enc] [^Enc]
//	 4 bits   8 bits   8 bits   8 bits   8 bits   8 bits 8 bits
//
// A 1 bit is a long HIGH, a 0 bit a short HIGH, each followed by a fixed LOW.
// Start1, Start2 and K differ between remotes and must be captured from a real
// transmission of the paired remote.

const (
	// HeaderValue is the fixed 1010 pattern opening every frame.
	HeaderValue byte = 0b1010

	HeaderBits = 4
	BodyBits   = 8

	// SegmentCount is the header plus three start and three function segments.
	SegmentCount = 7
)

// Calibration holds the constants that pair the transmitter with one receiver.
type Calibration struct {
	Start [3]byte
	K     byte
}

// DefaultCalibration matches the remote the protocol was first captured from.
var DefaultCalibration = Calibration{
	Start: [3]byte{0xC4, 0xB1, 0x33},
	K:     0xFE,
}

// EncodedCommand is a command together with its derived check byte.
type EncodedCommand struct {
	Command Command
	Enc     byte
}

// Encode derives the second function segment: (command + k - 1) mod 256.
func Encode(cmd Command, k byte) EncodedCommand {
	return EncodedCommand{
		Command: cmd,
		Enc:     byte(cmd) + k - 1,
	}
}

// Check is the third function segment, the bitwise complement of Enc.
func (e EncodedCommand) Check() byte {
	return ^e.Enc
}

// SegmentKind selects the timing a segment is emitted with.
type SegmentKind int

const (
	HeaderSegment SegmentKind = iota
	BodySegment
)

// Segment is one fixed width slice of a frame.
type Segment struct {
	Value byte
	Bits  int
	Kind  SegmentKind
}

// Bit returns bit i of the segment counting from the most significant
// transmitted bit, i in [0, Bits).
func (s Segment) Bit(i int) bool {
	return s.Value&(1<<uint(s.Bits-1-i)) != 0
}

// Frame is one complete repetition of a button press.
type Frame [SegmentCount]Segment

// BuildFrame assembles the frame for cmd under the given calibration.
func BuildFrame(cal Calibration, cmd Command) Frame {
	enc := Encode(cmd, cal.K)

	return Frame{
		{Value: HeaderValue, Bits: HeaderBits, Kind: HeaderSegment},
		{Value: cal.Start[0], Bits: BodyBits, Kind: BodySegment},
		{Value: cal.Start[1], Bits: BodyBits, Kind: BodySegment},
		{Value: cal.Start[2], Bits: BodyBits, Kind: BodySegment},
		{Value: byte(enc.Command), Bits: BodyBits, Kind: BodySegment},
		{Value: enc.Enc, Bits: BodyBits, Kind: BodySegment},
		{Value: enc.Check(), Bits: BodyBits, Kind: BodySegment},
	}
}

// Function returns the three function segment values.
func (f Frame) Function() [3]byte {
	return [3]byte{f[4].Value, f[5].Value, f[6].Value}
}

// Bits is the number of data bits in the frame.
func (f Frame) Bits() int {
	n := 0
	for _, s := range f {
		n += s.Bits
	}
	return n
}
