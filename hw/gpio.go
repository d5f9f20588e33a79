package hw

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Realtime configures the critical section a GPIO transmission runs in.
type Realtime struct {
	Priority int // SCHED_FIFO priority 1-99, 0 leaves the scheduler alone
	CPU      int // CPU to pin the thread to, -1 for none
}

// GPIO bit-bangs a pin directly. Each button press runs on a locked OS thread
// with the garbage collector stopped and, where permitted, at real-time
// priority; waits spin on the monotonic clock instead of sleeping.
//
// The critical section is best effort. The kernel throttles SCHED_FIFO
// threads once they use sched_rt_runtime_us of each second, and the Go
// runtime may still preempt the goroutine briefly. A press lasts up to 1.6s,
// so expect a few damaged frames; the receiver needs only one of the ten.
type GPIO struct {
	pin     gpio.PinOut
	rt      Realtime
	section *section
	next    time.Time
	err     error
}

// OpenGPIO initialises the host drivers and drives the named pin low.
func OpenGPIO(name string, rt Realtime) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Infof("gpio: transmitter on %s", p.Name())
	return &GPIO{pin: p, rt: rt}, nil
}

func (g *GPIO) Begin() error {
	g.err = nil
	g.section = enterRealtime(g.rt)
	g.next = time.Now()
	return nil
}

func (g *GPIO) Set(high bool) {
	if err := g.pin.Out(gpio.Level(high)); err != nil && g.err == nil {
		g.err = err
	}
}

// Delay waits until the running schedule reaches the end of this period, so
// the time spent writing the pin does not accumulate.
func (g *GPIO) Delay(us uint32) {
	g.next = g.next.Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(g.next) {
	}
}

func (g *GPIO) End() error {
	if err := g.pin.Out(gpio.Low); err != nil && g.err == nil {
		g.err = err
	}
	g.section.exit()
	g.section = nil

	if g.err != nil {
		return fmt.Errorf("gpio write: %w", g.err)
	}
	return nil
}
