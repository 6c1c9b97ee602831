package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/frida/internal/transit"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of mqtt.Client the publisher calls.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	connectTok   mqtt.Token
	publishTok   mqtt.Token
	connected    bool
	disconnected int
	sent         []published
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return c.connectTok
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected++
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic, qos, retained, payload.([]byte)})
	return c.publishTok
}

func newFakePublisher(client *fakeClient) *MQTT {
	p := NewMQTT(Options{Broker: "tcp://127.0.0.1:1883", Topic: "frida/arrivals", ClientID: "frida", ConnectTimeout: 200 * time.Millisecond})
	p.client = client
	return p
}

func TestMQTT_PublishesRetainedJSON(t *testing.T) {
	client := &fakeClient{connectTok: doneToken(nil), publishTok: doneToken(nil)}
	p := newFakePublisher(client)
	require.NoError(t, p.Connect(context.Background()))

	asOf := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	snap := transit.NewSnapshot("1001195", "Main St", asOf, []transit.Arrival{{Route: "70", Headsign: "North", Minutes: 0}})
	require.NoError(t, p.Publish(context.Background(), snap))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "frida/arrivals", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)
	assert.JSONEq(t, `{"stop_id":"1001195","stop_name":"Main St","as_of":"2026-03-01T08:30:00Z",
		"arrivals":[{"route":"70","headsign":"North","minutes":0}]}`, string(msg.payload))

	p.Close()
	p.Close()
	assert.Equal(t, 1, client.disconnected)
}

func TestMQTT_EmptySnapshotHasEmptyArray(t *testing.T) {
	client := &fakeClient{publishTok: doneToken(nil)}
	p := newFakePublisher(client)
	require.NoError(t, p.Publish(context.Background(), transit.NewSnapshot("s", "", time.Now(), nil)))
	assert.Contains(t, string(client.sent[0].payload), `"arrivals":[]`)
}

func TestMQTT_ConnectErrors(t *testing.T) {
	refused := errors.New("connection refused")
	p := newFakePublisher(&fakeClient{connectTok: doneToken(refused)})
	assert.ErrorIs(t, p.Connect(context.Background()), refused)

	pending := &fakeToken{done: make(chan struct{})}
	p = newFakePublisher(&fakeClient{connectTok: pending})
	assert.ErrorIs(t, p.Connect(context.Background()), errTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Connect(ctx), context.Canceled)
}

func TestMQTT_PublishError(t *testing.T) {
	p := newFakePublisher(&fakeClient{publishTok: doneToken(errors.New("not connected"))})
	err := p.Publish(context.Background(), transit.NewSnapshot("s", "", time.Now(), nil))
	assert.ErrorContains(t, err, "publish to frida/arrivals: not connected")
}
