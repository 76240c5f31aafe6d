package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/test-input/internal/logic"
)

// doneToken is a paho.Token that has already completed successfully.
type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient is a paho.Client that records publishes.
type fakeClient struct {
	mu        sync.Mutex
	open      bool
	published []published

	// onPublish, if set, runs after each publish is recorded.
	onPublish func(n int)
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func (c *fakeClient) IsConnected() bool      { return c.IsConnectionOpen() }
func (c *fakeClient) IsConnectionOpen() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.open }
func (c *fakeClient) Connect() paho.Token    { return doneToken{} }
func (c *fakeClient) Disconnect(uint)        {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	c.published = append(c.published, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	n := len(c.published)
	hook := c.onPublish
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return doneToken{}
}

func (c *fakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token { return doneToken{} }
func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}
func (c *fakeClient) Unsubscribe(...string) paho.Token        { return doneToken{} }
func (c *fakeClient) AddRoute(string, paho.MessageHandler)    {}
func (c *fakeClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func newTestBus(open bool) (*RealBus, *fakeClient) {
	client := &fakeClient{open: open}
	b := newRealBus(Options{TopicPrefix: "p", BufferSize: 10})
	b.client = client
	b.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return b, client
}

func deviceState(t *testing.T, payload []byte) string {
	t.Helper()
	var dp DevicePayload
	if err := json.Unmarshal(payload, &dp); err != nil {
		t.Fatalf("invalid device JSON %s: %v", payload, err)
	}
	return dp.Device.State
}

func TestRealBusPublishesWhenConnected(t *testing.T) {
	b, client := newTestBus(true)

	h := b.RegisterDevice(logic.TestDevice)
	b.EmitAxisEvent(h, logic.AxisVertical, -5)
	b.EmitButtonEvent(h, logic.ButtonBomb, true)

	msgs := client.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 publishes, got %d", len(msgs))
	}
	if msgs[0].topic != DeviceTopic("p", h) || msgs[0].qos != 1 || !msgs[0].retained {
		t.Errorf("registration: got %+v", msgs[0])
	}
	if deviceState(t, msgs[0].payload) != DeviceAdded {
		t.Errorf("expected ADDED payload")
	}
	if msgs[1].topic != AxisTopic("p", h) || msgs[1].qos != 0 || msgs[1].retained {
		t.Errorf("axis: got topic %q qos %d retained %v", msgs[1].topic, msgs[1].qos, msgs[1].retained)
	}
	if msgs[2].topic != ButtonTopic("p", h) || msgs[2].qos != 0 {
		t.Errorf("button: got topic %q qos %d", msgs[2].topic, msgs[2].qos)
	}
}

func TestRealBusBuffersWhileOffline(t *testing.T) {
	b, client := newTestBus(false)

	h := b.RegisterDevice(logic.TestDevice)
	if err := b.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem while offline: %v", err)
	}
	if b.IsConnected() {
		t.Error("expected IsConnected=false")
	}
	if n := len(client.messages()); n != 0 {
		t.Fatalf("expected nothing published while offline, got %d", n)
	}

	client.setOpen(true)
	b.replay()

	msgs := client.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 replayed messages, got %d", len(msgs))
	}
	if msgs[0].topic != DeviceTopic("p", h) || msgs[1].topic != SystemTopic("p") {
		t.Errorf("replay order: got %q, %q", msgs[0].topic, msgs[1].topic)
	}
	if !msgs[1].retained {
		t.Error("expected retained STARTUP")
	}
}

func TestRealBusLiveTrafficWaitsForReplay(t *testing.T) {
	b, client := newTestBus(false)

	h := b.RegisterDevice(logic.TestDevice)

	// Connection is up but OnConnect has not drained the buffer yet.
	client.setOpen(true)
	b.EmitAxisEvent(h, logic.AxisHorizontal, 100)
	b.UnregisterDevice(h)

	if n := len(client.messages()); n != 0 {
		t.Fatalf("live traffic overtook the buffer: %d published before replay", n)
	}

	b.replay()

	msgs := client.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	wantTopics := []string{DeviceTopic("p", h), AxisTopic("p", h), DeviceTopic("p", h)}
	for i, want := range wantTopics {
		if msgs[i].topic != want {
			t.Errorf("message %d: topic got %q, want %q", i, msgs[i].topic, want)
		}
	}
	if deviceState(t, msgs[0].payload) != DeviceAdded {
		t.Error("expected ADDED first")
	}
	// The last retained message on the device topic must be the removal.
	if deviceState(t, msgs[2].payload) != DeviceRemoved {
		t.Error("expected REMOVED last")
	}
}

func TestRealBusReplayDrainsMessagesQueuedDuringReplay(t *testing.T) {
	b, client := newTestBus(false)
	h := b.RegisterDevice(logic.TestDevice)
	client.setOpen(true)

	client.onPublish = func(n int) {
		if n == 1 {
			b.EmitButtonEvent(h, logic.ButtonJump, true)
		}
	}
	b.replay()

	msgs := client.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].topic != DeviceTopic("p", h) || msgs[1].topic != ButtonTopic("p", h) {
		t.Errorf("order: got %q, %q", msgs[0].topic, msgs[1].topic)
	}

	// Once drained, traffic goes straight out again.
	client.onPublish = nil
	b.EmitAxisEvent(h, logic.AxisVertical, 1)
	if n := len(client.messages()); n != 3 {
		t.Errorf("expected direct publish after replay, got %d messages", n)
	}
}

func TestRealBusUnregisterUnknownDevice(t *testing.T) {
	b, client := newTestBus(true)

	b.UnregisterDevice("missing")

	msgs := client.messages()
	if len(msgs) != 1 || deviceState(t, msgs[0].payload) != DeviceRemoved {
		t.Errorf("expected a REMOVED publish, got %+v", msgs)
	}
}
