package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"fireplacerf/hw"
	"fireplacerf/rf"
)

type lineConfig struct {
	kind       string
	pin        string
	serialPort string
	baud       int
	ackTimeout time.Duration
	rt         hw.Realtime
	pace       bool
}

// openLine returns the configured output line and a function releasing it.
func openLine(cfg lineConfig) (rf.Line, func(), error) {
	switch cfg.kind {
	case "gpio":
		g, err := hw.OpenGPIO(cfg.pin, cfg.rt)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {}, nil
	case "serial":
		s, err := hw.OpenSerial(cfg.serialPort, cfg.baud, cfg.ackTimeout)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "dryrun":
		return hw.NewRecorder(cfg.pace), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown line %q, want gpio, serial or dryrun", cfg.kind)
	}
}

// checkLine rejects a timing the line cannot transmit.
func checkLine(line rf.Line, timing rf.Timing) error {
	if c, ok := line.(interface{ Check(rf.Timing) error }); ok {
		return c.Check(timing)
	}
	return nil
}

type options struct {
	httpPort     int
	line         lineConfig
	calibration  string
	mqttURL      string
	mqttUser     string
	mqttPass     string
	instanceName string
	queue        int
}

func main() {
	var o options
	flag.IntVar(&o.httpPort, "httpport", 8080, "HTTP port to listen on")
	flag.StringVar(&o.line.kind, "line", "gpio", "output line: gpio, serial or dryrun")
	flag.StringVar(&o.line.pin, "pin", "GPIO17", "GPIO pin driving the 433MHz transmitter")
	flag.StringVar(&o.line.serialPort, "serial", "/dev/ttyUSB0", "serial port of the pulse coprocessor")
	flag.IntVar(&o.line.baud, "baud", 115200, "coprocessor baud rate")
	flag.DurationVar(&o.line.ackTimeout, "acktimeout", 3*time.Second, "how long to wait for the coprocessor to acknowledge a transmission")
	flag.StringVar(&o.calibration, "calibration", "", "YAML file overriding the start bytes, K and timing")
	flag.IntVar(&o.line.rt.Priority, "rtprio", 50, "SCHED_FIFO priority while transmitting on gpio, 0 to disable. "+
		"The kernel still throttles real-time threads to sched_rt_runtime_us per second (950ms by default); "+
		"write -1 to /proc/sys/kernel/sched_rt_runtime_us to lift it")
	flag.IntVar(&o.line.rt.CPU, "cpu", -1, "CPU to pin the transmitting thread to, -1 for any")
	flag.StringVar(&o.mqttURL, "mqtt", "", "url for mqtt broker, e.g. tcp://host:1883")
	flag.StringVar(&o.mqttUser, "mqttuser", "", "mqtt user name")
	flag.StringVar(&o.mqttPass, "mqttpass", "", "mqtt password, or $MQTTPASS")
	flag.StringVar(&o.instanceName, "instance", "fireplace", "mqtt topic prefix and Home Assistant id")
	flag.IntVar(&o.queue, "queue", 16, "jobs allowed to wait for the transmitter")
	flag.BoolVar(&o.line.pace, "pace", false, "dryrun line takes as long as a real transmission")
	doDebug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *doDebug {
		log.SetLevel(log.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if o.mqttPass == "" {
		o.mqttPass = os.Getenv("MQTTPASS")
	}

	// run returns only after its deferred cleanup, so the line and the
	// broker connection are released on every exit path
	if err := run(o); err != nil {
		log.Fatal(err)
	}
}

func run(o options) error {
	cal, timing, err := loadCalibration(o.calibration)
	if err != nil {
		return fmt.Errorf("loading calibration: %w", err)
	}

	line, closeLine, err := openLine(o.line)
	if err != nil {
		return fmt.Errorf("opening line: %w", err)
	}
	defer closeLine()

	if err := checkLine(line, timing); err != nil {
		return fmt.Errorf("%s line cannot use this calibration: %w", o.line.kind, err)
	}

	tx := rf.NewTransmitter(line, cal, timing)
	fp := rf.NewFireplace(tx)

	metrics := newMetrics()
	dispatcher := newEventDispatcher()
	go dispatcher.run()

	ctrl := NewController(fp, o.instanceName, o.queue, dispatcher, metrics)

	if len(o.mqttURL) > 0 {
		bridge := ConnectMqtt(o.mqttURL, o.mqttUser, o.mqttPass, o.instanceName, ctrl, dispatcher)
		defer bridge.Disconnect()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()

	api := &apiServer{ctrl: ctrl, events: dispatcher, metrics: metrics}
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(o.httpPort),
		Handler: api.router(),
	}
	httpErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	log.Infof("fireplacerf on %s line, http port %d, K=0x%02X start % X", o.line.kind, o.httpPort, cal.K, cal.Start)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-httpErr:
		runErr = fmt.Errorf("http: %w", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// the job on air, if any, runs to completion
	<-done
	return runErr
}
