package hw

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const recorderCapacity = 64

// Recorder is a line without hardware. It keeps the pulse trains of the last
// transmissions and, when paced, takes as long as the real line would.
type Recorder struct {
	mu            sync.Mutex
	buf           pulseBuffer
	transmissions [][]Pulse
	pace          bool
}

func NewRecorder(pace bool) *Recorder {
	return &Recorder{pace: pace}
}

func (r *Recorder) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.reset()
	return nil
}

func (r *Recorder) Set(high bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.set(high)
}

func (r *Recorder) Delay(us uint32) {
	r.mu.Lock()
	r.buf.delay(us)
	r.mu.Unlock()

	if r.pace {
		time.Sleep(time.Duration(us) * time.Microsecond)
	}
}

func (r *Recorder) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.buf.snapshot()
	if len(r.transmissions) == recorderCapacity {
		// drop the oldest to keep memory bounded
		copy(r.transmissions, r.transmissions[1:])
		r.transmissions = r.transmissions[:recorderCapacity-1]
	}
	r.transmissions = append(r.transmissions, p)

	log.Debugf("dryrun: recorded %d pulses over %dus", len(p), Duration(p))
	return nil
}

// Transmissions returns a copy of the recorded pulse trains, oldest first.
func (r *Recorder) Transmissions() [][]Pulse {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]Pulse, len(r.transmissions))
	for i, p := range r.transmissions {
		out[i] = make([]Pulse, len(p))
		copy(out[i], p)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transmissions = nil
}
