// Package observability exposes simulator activity as Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/test-input/internal/logic"
)

// Collector bundles the simulator metrics. It implements logic.Observer so
// it can sit behind logic.ObservedBus.
type Collector struct {
	gatherer prometheus.Gatherer

	AxisEvents   *prometheus.CounterVec
	ButtonEvents *prometheus.CounterVec
	Suppressed   *prometheus.CounterVec
	Resets       prometheus.Counter
	Devices      prometheus.Gauge
	TickDuration prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	axis, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testinput_axis_events_total",
		Help: "Axis events emitted on the input bus, labeled by axis.",
	}, []string{"axis"}), "testinput_axis_events_total")
	if err != nil {
		return nil, err
	}

	buttons, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testinput_button_events_total",
		Help: "Button events emitted on the input bus, labeled by button and state (down/up).",
	}, []string{"button", "state"}), "testinput_button_events_total")
	if err != nil {
		return nil, err
	}

	suppressed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testinput_suppressed_presses_total",
		Help: "Button presses withheld during an open join window, labeled by button.",
	}, []string{"button"}), "testinput_suppressed_presses_total")
	if err != nil {
		return nil, err
	}

	resets, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "testinput_resets_total",
		Help: "Join-window resets performed across all simulated devices.",
	}), "testinput_resets_total")
	if err != nil {
		return nil, err
	}

	devices, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testinput_devices",
		Help: "Simulated devices currently registered on the input bus.",
	}), "testinput_devices")
	if err != nil {
		return nil, err
	}

	tick, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "testinput_tick_duration_seconds",
		Help:    "Time spent advancing every simulator by one tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "testinput_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		AxisEvents:   axis,
		ButtonEvents: buttons,
		Suppressed:   suppressed,
		Resets:       resets,
		Devices:      devices,
		TickDuration: tick,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveDevice tracks the number of registered devices.
func (c *Collector) ObserveDevice(h logic.DeviceHandle, desc logic.DeviceDescriptor, added bool) {
	if c == nil {
		return
	}
	if added {
		c.Devices.Inc()
	} else {
		c.Devices.Dec()
	}
}

// ObserveAxis counts an emitted axis event.
func (c *Collector) ObserveAxis(h logic.DeviceHandle, axis logic.Axis, value int16) {
	if c == nil {
		return
	}
	c.AxisEvents.WithLabelValues(axis.String()).Inc()
}

// ObserveButton counts an emitted button transition.
func (c *Collector) ObserveButton(h logic.DeviceHandle, button logic.Button, pressed bool) {
	if c == nil {
		return
	}
	state := "up"
	if pressed {
		state = "down"
	}
	c.ButtonEvents.WithLabelValues(button.String(), state).Inc()
}

// RecordReset counts one join-window reset.
func (c *Collector) RecordReset() {
	if c == nil {
		return
	}
	c.Resets.Inc()
}

// RecordSuppressed counts one withheld press.
func (c *Collector) RecordSuppressed(button logic.Button) {
	if c == nil {
		return
	}
	c.Suppressed.WithLabelValues(button.String()).Inc()
}

// ObserveTick records how long one pass over the simulators took.
func (c *Collector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
