// Command test-input runs synthetic game controllers that feed random stick
// and button events onto an MQTT input bus.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/test-input/internal/gpio"
	"github.com/sweeney/test-input/internal/logic"
	"github.com/sweeney/test-input/internal/mqtt"
	"github.com/sweeney/test-input/internal/observability"
	"github.com/sweeney/test-input/internal/status"
	"github.com/sweeney/test-input/internal/web"
)

type options struct {
	tick       time.Duration
	devices    int
	resetEvery time.Duration
	seed       int64
	broker     string
	clientID   string
	prefix     string
	heartbeat  time.Duration
	pinReset   int
	noGPIO     bool
	debounce   time.Duration
	httpAddr   string
	buffer     int
}

func main() {
	var opts options
	flag.DurationVar(&opts.tick, "tick", 16*time.Millisecond, "Simulation tick interval")
	flag.IntVar(&opts.devices, "devices", 1, "Number of simulated controllers")
	flag.DurationVar(&opts.resetEvery, "reset-every", 0, "Reset the join window this often (0 to disable)")
	flag.Int64Var(&opts.seed, "seed", 0, "Random seed (0 seeds from the clock)")
	flag.StringVar(&opts.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.StringVar(&opts.clientID, "client-id", "test-input", "MQTT client ID")
	flag.StringVar(&opts.prefix, "topic-prefix", mqtt.DefaultTopicPrefix, "MQTT topic prefix")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&opts.pinReset, "pin-reset", gpio.DefaultPinReset, "BCM pin number for the reset button")
	flag.BoolVar(&opts.noGPIO, "no-gpio", false, "Run without the GPIO reset button")
	flag.DurationVar(&opts.debounce, "debounce", 50*time.Millisecond, "Reset button debounce duration")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.IntVar(&opts.buffer, "buffer", 1000, "Messages buffered while the broker is unreachable")

	flag.Parse()

	if opts.devices < 1 {
		log.Fatalf("fatal: -devices must be at least 1, got %d", opts.devices)
	}
	if opts.tick <= 0 {
		log.Fatalf("fatal: -tick must be positive, got %v", opts.tick)
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	var closers []io.Closer
	defer func() {
		if err := closeAll(closers); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	// Initialize GPIO
	var resetReader gpio.Reader
	resetPin := 0
	if !opts.noGPIO {
		r, err := gpio.NewRealReader(opts.pinReset)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		closers = append(closers, r)
		resetReader = r
		resetPin = opts.pinReset
	}

	// Initialize MQTT
	bus, err := mqtt.NewRealBus(mqtt.Options{
		Broker:      opts.broker,
		ClientID:    opts.clientID,
		TopicPrefix: opts.prefix,
		BufferSize:  opts.buffer,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	closers = append(closers, bus)

	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:       opts.tick.Milliseconds(),
		ResetEveryMs: opts.resetEvery.Milliseconds(),
		HeartbeatMs:  opts.heartbeat.Milliseconds(),
		Devices:      opts.devices,
		Broker:       opts.broker,
		TopicPrefix:  opts.prefix,
		HTTPAddr:     opts.httpAddr,
		ResetPin:     resetPin,
	})
	tracker.SetMQTTConnected(bus.IsConnected())

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	hub := web.NewHub()
	input := logic.ObservedBus(bus, metrics, hub)

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sims := make([]*logic.Simulator, opts.devices)
	for i := range sims {
		sim := logic.NewSimulator(input, logic.NewRandomSource(seed+int64(i)))
		sim.SetHooks(simulatorHooks(sim.Handle(), metrics))
		sims[i] = sim
		log.Printf("registered device %s", sim.Handle())
	}
	tracker.Update(snapshots(sims))

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := bus.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, metrics.Handler(), hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: devices=%d tick=%v reset-every=%v seed=%d broker=%s heartbeat=%v",
		opts.devices, opts.tick, opts.resetEvery, seed, opts.broker, opts.heartbeat)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	cfg := loopConfig{
		resetEvery: opts.resetEvery,
		heartbeat:  opts.heartbeat,
		debounce:   opts.debounce,
	}
	return runLoop(sims, resetReader, bus, bus, tracker, metrics, cfg, time.Now, ticker.C, sigCh)
}

// closeAll closes in reverse order and joins the errors.
func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// simulatorHooks logs join-window transitions for one device and feeds the
// metrics that the bus cannot see.
func simulatorHooks(h logic.DeviceHandle, metrics *observability.Collector) logic.Hooks {
	return logic.Hooks{
		Reset: func(now uint64) {
			metrics.RecordReset()
			log.Printf("%s: join window reset at %dms", h, now)
		},
		JoinWindowClosed: func(now uint64) {
			log.Printf("%s: join window closed at %dms", h, now)
		},
		PressSuppressed: func(now uint64, b logic.Button, first bool) {
			metrics.RecordSuppressed(b)
			if first {
				log.Printf("%s: suppressing %s press at %dms, join presses capped", h, b, now)
			}
		},
	}
}

type loopConfig struct {
	resetEvery time.Duration // 0 disables periodic resets
	heartbeat  time.Duration // 0 disables heartbeats
	debounce   time.Duration // reset button
}

func runLoop(sims []*logic.Simulator, resetReader gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, metrics *observability.Collector, cfg loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	trigger := logic.NewTrigger(cfg.debounce)
	heartbeat := logic.NewHeartbeat(startTime)
	lastReset := startTime

	// Exercise the join flow straight away.
	requestResetAll(sims)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			for _, sim := range sims {
				sim.Close()
			}

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				updateTracker(tracker, sims, trigger, mqttStatus)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()

			if resetReader != nil {
				pressed, err := resetReader.Read()
				if err != nil {
					log.Printf("gpio read error: %v", err)
				} else if trigger.Process(pressed, t) {
					log.Printf("reset button pressed, resetting %d devices", len(sims))
					requestResetAll(sims)
				}
			}

			if cfg.resetEvery > 0 && t.Sub(lastReset) >= cfg.resetEvery {
				lastReset = t
				requestResetAll(sims)
			}

			var ms uint64
			if t.After(startTime) {
				ms = uint64(t.Sub(startTime).Milliseconds())
			}
			began := time.Now()
			for _, sim := range sims {
				sim.Tick(ms)
			}
			metrics.ObserveTick(time.Since(began))

			// Update status tracker for HTTP consumers
			if tracker != nil {
				updateTracker(tracker, sims, trigger, mqttStatus)
			}

			if hbData := heartbeat.Check(t, cfg.heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v devices=%d", hbData.Uptime, len(sims))

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func requestResetAll(sims []*logic.Simulator) {
	for _, sim := range sims {
		sim.RequestReset()
	}
}

func snapshots(sims []*logic.Simulator) []logic.Snapshot {
	out := make([]logic.Snapshot, len(sims))
	for i, sim := range sims {
		out[i] = sim.Snapshot()
	}
	return out
}

func updateTracker(tracker *status.Tracker, sims []*logic.Simulator, trigger *logic.Trigger, mqttStatus mqtt.ConnectionStatus) {
	tracker.Update(snapshots(sims))
	tracker.SetTriggerPresses(trigger.Presses())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}
