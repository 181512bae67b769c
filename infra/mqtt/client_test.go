package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/model"
)

func withMock(t *testing.T, mc *mockClient) *Client {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", ClientID: "test", TopicPrefix: "gp", QoS: 1}, logger.Nop{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return cli
}

func TestSubscribeCommandsTopics(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	if err := cli.SubscribeCommands(&fakeHandler{}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(mc.subscribed) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(mc.subscribed))
	}
	if mc.subscribed[0].topic != "gp/override/set" || mc.subscribed[1].topic != "gp/override/clear" {
		t.Fatalf("unexpected topics: %+v", mc.subscribed)
	}
	if mc.subscribed[0].qos != 1 {
		t.Fatalf("subscribe qos not applied")
	}
}

func TestHandleSetValid(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	h := &fakeHandler{}
	cli.handleSet(h, []byte(`{"mode":"charge_from_grid","charge_rate_w":3000,"duration_min":30}`))
	if h.setCalls != 1 {
		t.Fatalf("handler not invoked")
	}
	if h.lastMode != model.StateChargeFromGrid || h.lastRate != 3000 || h.lastDur != 30*time.Minute {
		t.Fatalf("wrong arguments: %v %v %v", h.lastMode, h.lastRate, h.lastDur)
	}
	if len(mc.published) != 1 || mc.published[0].topic != "gp/override/result" {
		t.Fatalf("result not published: %+v", mc.published)
	}
	var res overrideResult
	if err := json.Unmarshal(mc.published[0].payload, &res); err != nil {
		t.Fatalf("result payload: %v", err)
	}
	if !res.OK || res.Action != "set" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleSetRejectsUnknownMode(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	h := &fakeHandler{}
	cli.handleSet(h, []byte(`{"mode":"turbo","duration_min":10}`))
	if h.setCalls != 0 {
		t.Fatalf("handler should not run for unknown mode")
	}
	var res overrideResult
	if err := json.Unmarshal(mc.published[0].payload, &res); err != nil {
		t.Fatalf("result payload: %v", err)
	}
	if res.OK || res.Error == "" {
		t.Fatalf("expected rejection result, got %+v", res)
	}
}

func TestHandleSetMalformedPayload(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	h := &fakeHandler{}
	cli.handleSet(h, []byte(`{not json`))
	if h.setCalls != 0 {
		t.Fatalf("handler should not run for malformed payload")
	}
	var res overrideResult
	if err := json.Unmarshal(mc.published[0].payload, &res); err != nil {
		t.Fatalf("result payload: %v", err)
	}
	if res.OK {
		t.Fatalf("expected failure result")
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	}()
	_, err := NewClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "gp/lwt", LWTPayload: "offline"}, logger.Nop{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "gp/lwt" || string(mc.opts.WillPayload) != "offline" {
		t.Fatalf("will options incorrect")
	}
}

type fakeHandler struct {
	setCalls   int
	clearCalls int
	lastMode   model.OverallState
	lastRate   float64
	lastDur    time.Duration
	err        error
}

func (f *fakeHandler) SetOverride(mode model.OverallState, rate float64, dur time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.setCalls++
	f.lastMode = mode
	f.lastRate = rate
	f.lastDur = dur
	return nil
}

func (f *fakeHandler) ClearOverride() { f.clearCalls++ }

// mockClient implements pahoClient for tests
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic   string
		qos     byte
		payload []byte
	}
}

func (m *mockClient) IsConnected() bool   { return true }
func (m *mockClient) Connect() paho.Token { return &dummyToken{} }
func (m *mockClient) Disconnect(uint)     {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		payload []byte
	}{topic, qos, b})
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
