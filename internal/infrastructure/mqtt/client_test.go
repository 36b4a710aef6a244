package mqtt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/infrastructure/config"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestBuildOptions(t *testing.T) {
	cfg := &config.Config{
		MQTTBrokerURL: "ssl://broker.example.com:8883",
		MQTTClientID:  "estatehub",
		MQTTUsername:  "svc",
		MQTTPassword:  "secret",
	}
	c := NewClient(cfg)
	opts := c.buildOptions()

	assert.True(t, strings.HasPrefix(opts.ClientID, "estatehub-"))
	assert.NotEqual(t, opts.ClientID, c.buildOptions().ClientID)
	assert.Equal(t, "svc", opts.Username)
	assert.NotNil(t, opts.TLSConfig)
	assert.True(t, opts.AutoReconnect)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker.example.com:8883", opts.Servers[0].Host)
}

func TestBuildOptionsPlainTCP(t *testing.T) {
	c := NewClient(&config.Config{MQTTBrokerURL: "tcp://localhost:1883", MQTTClientID: "x"})
	opts := c.buildOptions()
	assert.Empty(t, opts.Username)
	assert.True(t, strings.HasPrefix(opts.ClientID, "x-"))
	assert.True(t, opts.CleanSession)
}

func TestWrapDispatchesPayload(t *testing.T) {
	c := NewClient(&config.Config{MQTTBrokerURL: "tcp://localhost:1883"})

	var gotTopic, gotPayload string
	h := c.wrap(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("ignored")
	})
	h(nil, &fakeMessage{topic: "esp/n1/status", payload: []byte("ON")})

	assert.Equal(t, "esp/n1/status", gotTopic)
	assert.Equal(t, "ON", gotPayload)
}

func TestSubscribeWhileDisconnectedIsRemembered(t *testing.T) {
	c := NewClient(&config.Config{MQTTBrokerURL: "tcp://localhost:1883"})

	require.NoError(t, c.Subscribe("+/+/status", 1, func(string, []byte) error { return nil }))
	assert.Contains(t, c.subscriptions, "+/+/status")
	assert.False(t, c.IsConnected())

	require.NoError(t, c.Unsubscribe("+/+/status"))
	assert.NotContains(t, c.subscriptions, "+/+/status")

	assert.ErrorIs(t, c.Publish("a/b", 1, false, nil), ErrNotConnected)
	assert.ErrorIs(t, c.PublishJSON("a/b", map[string]int{"x": 1}), ErrNotConnected)
}
