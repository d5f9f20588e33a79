package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fireplacerf/rf"
)

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("transmit queue full")
)

// Job is one queued request for the transmitter: either a channel value or,
// when Channel is empty, a raw command name.
type Job struct {
	ID      uuid.UUID `json:"id"`
	Channel string    `json:"channel,omitempty"`
	Value   int       `json:"value"`
	Command string    `json:"command,omitempty"`
	Source  string    `json:"source"`
	Queued  time.Time `json:"queued"`
}

func (j Job) label() string {
	if j.Channel != "" {
		return j.Channel
	}
	return "raw"
}

// State is what the fireplace was last told. The RF link has no return
// channel, so this is an assumption, not a reading. Raw presses update the
// channel they belong to; a raw PowerOn does not imply the start sequence.
type State struct {
	Power       bool      `json:"power"`
	Pilot       bool      `json:"pilot"`
	Flame       int       `json:"flame"`
	Light       int       `json:"light"`
	Fan         int       `json:"fan"`
	Aux2        int       `json:"aux2"`
	LastCommand string    `json:"last_command,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type jobResult struct {
	Job      Job    `json:"job"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// eventSink receives everything the controller announces. Sources starting
// with "mqtt/" name a topic to publish to.
type eventSink interface {
	broadcastEvent(source string, data interface{})
}

// Controller owns the fireplace. Jobs are queued from any goroutine and
// executed one at a time by Run.
type Controller struct {
	fp       *rf.Fireplace
	instance string
	jobs     chan Job
	events   eventSink
	metrics  *Metrics

	mu    sync.Mutex
	state State
}

func NewController(fp *rf.Fireplace, instance string, queue int, events eventSink, metrics *Metrics) *Controller {
	return &Controller{
		fp:       fp,
		instance: instance,
		jobs:     make(chan Job, queue),
		events:   events,
		metrics:  metrics,
	}
}

func (c *Controller) Calibration() rf.Calibration { return c.fp.Transmitter().Calibration() }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitPayload routes a channel payload as received over MQTT or HTTP.
func (c *Controller) SubmitPayload(channel, payload, source string) (Job, error) {
	ch, ok := lookupChannel(channel)
	if !ok {
		c.metrics.rejected.WithLabelValues("unknown_channel").Inc()
		return Job{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	v, err := parsePayload(ch, payload)
	if err != nil {
		reason := "invalid_payload"
		if errors.Is(err, ErrOutOfRange) {
			reason = "out_of_range"
		}
		c.metrics.rejected.WithLabelValues(reason).Inc()
		return Job{}, err
	}

	return c.Submit(Job{Channel: ch.Name, Value: v, Source: source})
}

// SubmitCommand queues a raw button press by its table name.
func (c *Controller) SubmitCommand(name, source string) (Job, error) {
	if _, ok := rf.Resolve(name); !ok {
		c.metrics.rejected.WithLabelValues("unknown_command").Inc()
		return Job{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return c.Submit(Job{Command: name, Source: source})
}

// Submit queues j without blocking. A full queue drops the job.
func (c *Controller) Submit(j Job) (Job, error) {
	j.ID = uuid.New()
	j.Queued = time.Now()

	select {
	case c.jobs <- j:
		c.metrics.queueDepth.Set(float64(len(c.jobs)))
		log.Debugf("queued %s job %s from %s", j.label(), j.ID, j.Source)
		return j, nil
	default:
		c.metrics.rejected.WithLabelValues("queue_full").Inc()
		log.Warnf("dropping %s job from %s: queue full", j.label(), j.Source)
		return Job{}, ErrQueueFull
	}
}

// Run executes queued jobs until ctx is done. A job already on air is
// always finished.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.jobs:
			c.metrics.queueDepth.Set(float64(len(c.jobs)))
			c.execute(j)
		}
	}
}

func (c *Controller) execute(j Job) {
	start := time.Now()

	var err error
	if ch, ok := lookupChannel(j.Channel); ok {
		err = ch.apply(c.fp, j.Value)
	} else {
		err = c.fp.Transmitter().Send(j.Command)
	}

	elapsed := time.Since(start)
	c.metrics.duration.Observe(elapsed.Seconds())

	res := jobResult{Job: j, Duration: elapsed.String()}
	if err != nil {
		c.metrics.transmissions.WithLabelValues(j.label(), "error").Inc()
		log.Errorf("%s job %s failed: %v", j.label(), j.ID, err)
		res.Error = err.Error()
		c.events.broadcastEvent("job", res)
		return
	}

	c.metrics.transmissions.WithLabelValues(j.label(), "ok").Inc()
	log.Infof("%s job %s done in %v", j.label(), j.ID, elapsed)
	c.events.broadcastEvent("job", res)

	c.record(j)
}

// record updates the assumed state and announces every value that changed
// hands, including the ones implied by the power sequences.
func (c *Controller) record(j Job) {
	c.mu.Lock()
	var changed []setting
	if j.Channel != "" {
		changed = effects(j.Channel, j.Value)
		for _, s := range changed {
			c.state.set(s)
		}
		c.state.LastCommand = j.Channel
	} else {
		if ch, v, ok := commandChannel(j.Command); ok {
			changed = []setting{{ch.Name, v}}
			c.state.set(changed[0])
		}
		c.state.LastCommand = j.Command
	}
	c.state.UpdatedAt = time.Now()
	st := c.state
	c.mu.Unlock()

	for _, s := range changed {
		ch, _ := lookupChannel(s.channel)
		c.events.broadcastEvent(c.statTopic(ch.Name), formatValue(ch, s.value))
	}
	c.events.broadcastEvent("state", st)
}

func (c *Controller) statTopic(channel string) string {
	return "mqtt/" + c.instance + "/" + channel + "/stat"
}

type setting struct {
	channel string
	value   int
}

// effects lists the channel values a job leaves behind. The power sequences
// also touch the fan and the flame.
func effects(channel string, value int) []setting {
	if channel != "power" {
		return []setting{{channel, value}}
	}
	if value != 0 {
		return []setting{{"power", 1}, {"fan", 0}, {"flame", 1}}
	}
	return []setting{{"fan", 0}, {"power", 0}}
}

func (s *State) set(v setting) {
	switch v.channel {
	case "power":
		s.Power = v.value != 0
	case "pilot":
		s.Pilot = v.value != 0
	case "flame":
		s.Flame = v.value
	case "light":
		s.Light = v.value
	case "fan":
		s.Fan = v.value
	case "aux2":
		s.Aux2 = v.value
	}
}
