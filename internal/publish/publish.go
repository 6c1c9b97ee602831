// Package publish mirrors each fresh arrivals snapshot to an MQTT topic so
// other devices on the network can show the same board. The message is
// retained, so a subscriber that connects late still gets the latest one.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"

	"github.com/five82/frida/internal/logging"
	"github.com/five82/frida/internal/transit"
)

// Publisher receives every snapshot the fetch loop stores.
type Publisher interface {
	Publish(ctx context.Context, snap transit.Snapshot) error
	Close()
}

var _ Publisher = (*MQTT)(nil)

const (
	defaultConnectTimeout = 10 * time.Second
	disconnectQuiesceMS   = 250
	qosAtLeastOnce        = 1
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is the JSON document published for a snapshot.
type Message struct {
	StopID   string            `json:"stop_id"`
	StopName string            `json:"stop_name,omitempty"`
	AsOf     time.Time         `json:"as_of"`
	Arrivals []transit.Arrival `json:"arrivals"`
}

// NewMessage converts a snapshot to its published form.
func NewMessage(snap transit.Snapshot) Message {
	arrivals := snap.Arrivals
	if arrivals == nil {
		arrivals = []transit.Arrival{}
	}
	return Message{StopID: snap.StopID, StopName: snap.StopName, AsOf: snap.AsOf.UTC(), Arrivals: arrivals}
}

// Options configure an MQTT publisher.
type Options struct {
	Broker         string
	Topic          string
	ClientID       string
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// MQTT publishes snapshots with paho.
type MQTT struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewMQTT builds an unconnected publisher.
func NewMQTT(opts Options) *MQTT {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	p := &MQTT{topic: opts.Topic, timeout: timeout, logger: logger}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetKeepAlive(60 * time.Second)
	co.SetPingTimeout(10 * time.Second)
	co.SetConnectTimeout(timeout)
	co.SetAutoReconnect(true)
	co.SetMaxReconnectInterval(time.Minute)
	co.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to broker", "broker", opts.Broker, "topic", opts.Topic)
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("broker connection lost", "error", err)
	})
	p.client = mqtt.NewClient(co)
	return p
}

// Connect dials the broker, giving up after the connect timeout or when ctx
// ends.
func (p *MQTT) Connect(ctx context.Context) error {
	if err := wait(ctx, p.client.Connect(), p.timeout); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Publish sends snap as a retained message.
func (p *MQTT) Publish(ctx context.Context, snap transit.Snapshot) error {
	payload, err := json.Marshal(NewMessage(snap))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := wait(ctx, p.client.Publish(p.topic, qosAtLeastOnce, true, payload), p.timeout); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	p.logger.Debug("published snapshot", "topic", p.topic, "arrivals", snap.Len())
	return nil
}

// Close disconnects from the broker.
func (p *MQTT) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesceMS)
		p.logger.Info("disconnected from broker")
	}
}

var errTimeout = errors.New("timed out")

func wait(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-timer.C:
		return errTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
