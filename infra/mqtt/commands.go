package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridpilot/gridpilot/core/model"
)

// OverrideHandler is the part of the control state the command channel
// drives.
type OverrideHandler interface {
	SetOverride(mode model.OverallState, chargeRateW float64, duration time.Duration) error
	ClearOverride()
}

// overrideCommand is the wire form of an override request.
type overrideCommand struct {
	Mode        string  `json:"mode"`
	ChargeRateW float64 `json:"charge_rate_w"`
	DurationMin int     `json:"duration_min"`
}

// overrideResult acknowledges a processed command.
type overrideResult struct {
	Action    string `json:"action"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SubscribeCommands subscribes to the override command topics. Set
// commands arrive on <prefix>/override/set, clear commands on
// <prefix>/override/clear; each is acknowledged on
// <prefix>/override/result.
func (c *Client) SubscribeCommands(handler OverrideHandler) error {
	setTopic := c.cfg.TopicPrefix + "/override/set"
	clearTopic := c.cfg.TopicPrefix + "/override/clear"

	if token := c.cli.Subscribe(setTopic, c.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		c.handleSet(handler, msg.Payload())
	}); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := c.cli.Subscribe(clearTopic, c.cfg.QoS, func(_ paho.Client, _ paho.Message) {
		handler.ClearOverride()
		c.log.Infof("override cleared via MQTT")
		c.publishResult(overrideResult{Action: "clear", OK: true, Timestamp: time.Now().UnixMilli()})
	}); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	c.log.Infof("subscribed to %s and %s", setTopic, clearTopic)
	return nil
}

func (c *Client) handleSet(handler OverrideHandler, payload []byte) {
	res := overrideResult{Action: "set", Timestamp: time.Now().UnixMilli()}
	var cmd overrideCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		c.log.Errorf("malformed override command: %v", err)
		res.Error = err.Error()
		c.publishResult(res)
		return
	}
	mode, ok := model.ParseOverrideMode(cmd.Mode)
	if !ok {
		c.log.Errorf("override rejected: unknown mode %q", cmd.Mode)
		res.Error = fmt.Sprintf("unknown override mode %q", cmd.Mode)
		c.publishResult(res)
		return
	}
	dur := time.Duration(cmd.DurationMin) * time.Minute
	if err := handler.SetOverride(mode, cmd.ChargeRateW, dur); err != nil {
		c.log.Errorf("override rejected: %v", err)
		res.Error = err.Error()
		c.publishResult(res)
		return
	}
	c.log.Infof("override %s set via MQTT for %s", cmd.Mode, dur)
	res.OK = true
	c.publishResult(res)
}

func (c *Client) publishResult(res overrideResult) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.publish(c.cfg.TopicPrefix+"/override/result", false, b); err != nil {
		c.log.Errorf("publish override result: %v", err)
	}
}

// SendOverride publishes a set command on the command topic. Used by the
// CLI to drive a running service.
func (c *Client) SendOverride(mode string, chargeRateW float64, durationMin int) error {
	b, err := json.Marshal(overrideCommand{Mode: mode, ChargeRateW: chargeRateW, DurationMin: durationMin})
	if err != nil {
		return err
	}
	return c.publish(c.cfg.TopicPrefix+"/override/set", false, b)
}

// SendClearOverride publishes a clear command on the command topic.
func (c *Client) SendClearOverride() error {
	return c.publish(c.cfg.TopicPrefix+"/override/clear", false, []byte("{}"))
}
