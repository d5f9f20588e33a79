package hw

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/npat-efault/crc16"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"fireplacerf/rf"
)

// Coprocessor frame:
//
//	'F' 'R' | count (2, BE) | count words (2 each, BE) | crc16 (2, BE)
//
// Bit 15 of a word is the line level, bits 0-14 the duration in
// microseconds. The CRC covers the count and the words. The coprocessor
// replays the train with interrupts disabled and answers ACK once done.
const (
	frameMagic0 = 'F'
	frameMagic1 = 'R'

	ackByte = 0x06
	nakByte = 0x15

	// MaxPulses is the largest train the coprocessor buffers.
	MaxPulses = 4096

	maxWordMicros = 0x7FFF
	levelBit      = 0x8000
)

var crcConfig = &crc16.Conf{
	Poly: 0x8005, BitRev: true,
	IniVal: 0x0, FinVal: 0x0,
	BigEnd: false,
}

// EncodeFrame serialises a pulse train for the coprocessor.
func EncodeFrame(pulses []Pulse) ([]byte, error) {
	if len(pulses) > MaxPulses {
		return nil, fmt.Errorf("%w: %d pulses, max %d", ErrTooManyPulses, len(pulses), MaxPulses)
	}

	buf := make([]byte, 4+2*len(pulses)+2)
	buf[0] = frameMagic0
	buf[1] = frameMagic1
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(pulses)))

	for i, p := range pulses {
		if p.Micros > maxWordMicros {
			return nil, fmt.Errorf("%w: %dus", ErrPulseTooLong, p.Micros)
		}
		w := uint16(p.Micros)
		if p.High {
			w |= levelBit
		}
		binary.BigEndian.PutUint16(buf[4+2*i:], w)
	}

	crcPos := len(buf) - 2
	binary.BigEndian.PutUint16(buf[crcPos:], crc16.Checksum(crcConfig, buf[2:crcPos]))
	return buf, nil
}

// Check reports whether a button press sent with timing fits in one
// coprocessor frame.
func (s *Serial) Check(timing rf.Timing) error {
	if timing.MaxDelay > maxWordMicros {
		return fmt.Errorf("%w: max delay %dus, a word holds %dus", ErrPulseTooLong, timing.MaxDelay, maxWordMicros)
	}
	if n := pulseCount(timing); n > MaxPulses {
		return fmt.Errorf("%w: %d repeats need up to %d pulses, max %d", ErrTooManyPulses, timing.Repeat, n, MaxPulses)
	}
	return nil
}

// pulseCount is an upper bound on the pulses of one button press.
func pulseCount(t rf.Timing) int {
	chunks := func(us uint32) int {
		n := 0
		for _, c := range rf.SplitDelay(us, t.MaxDelay) {
			if c > 0 {
				n++
			}
		}
		return n
	}

	high := chunks(t.One)
	if z := chunks(t.Zero); z > high {
		high = z
	}

	header := rf.HeaderBits*(high+chunks(t.HeaderBitPause)) + chunks(t.HeaderSegmentPause)
	body := rf.BodyBits*(high+chunks(t.BodyBitPause)) + chunks(t.BodySegmentPause)
	frame := header + (rf.SegmentCount-1)*body

	return t.Repeat*frame + (t.Repeat-1)*chunks(t.MessagePause)
}

// Serial drives the line through a pulse coprocessor on a serial port. The
// whole button press is buffered and handed over in End, which returns once
// the coprocessor has finished playing it.
type Serial struct {
	mu   sync.Mutex
	port io.ReadWriter
	buf  pulseBuffer
}

// OpenSerial opens the coprocessor port. The read timeout must cover the
// longest transmission, since the ACK only arrives after playback.
func OpenSerial(name string, baud int, timeout time.Duration) (*Serial, error) {
	c := &serial.Config{Name: name, Baud: baud, ReadTimeout: timeout}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	log.Infof("serial: coprocessor on %s at %d baud", name, baud)
	return NewSerial(p), nil
}

// NewSerial wraps an already open port.
func NewSerial(port io.ReadWriter) *Serial {
	return &Serial{port: port}
}

func (s *Serial) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.reset()
	return nil
}

func (s *Serial) Set(high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.set(high)
}

func (s *Serial) Delay(us uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.delay(us)
}

func (s *Serial) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, err := EncodeFrame(s.buf.pulses)
	if err != nil {
		return err
	}

	if f, ok := s.port.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}

	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	log.Debugf("serial: sent %d pulses (%d bytes)", len(s.buf.pulses), len(frame))

	reply := make([]byte, 1)
	n, err := s.port.Read(reply)
	if n == 0 {
		if err != nil && err != io.EOF {
			return fmt.Errorf("%w: %v", ErrNoAck, err)
		}
		return ErrNoAck
	}

	switch reply[0] {
	case ackByte:
		return nil
	case nakByte:
		return ErrNak
	default:
		return fmt.Errorf("%w: unexpected reply 0x%02X", ErrNoAck, reply[0])
	}
}

func (s *Serial) Close() error {
	if c, ok := s.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
