package mqtt

import (
	"encoding/json"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solar3s/tivalink/tiva"
)

type fakeCommander struct {
	times    []string
	messages []string
	err      error
}

func (c *fakeCommander) SendTimeSet(text string) error {
	c.times = append(c.times, text)
	return c.err
}

func (c *fakeCommander) SendMessage(text string) error {
	c.messages = append(c.messages, text)
	return c.err
}

type published struct {
	topic   string
	payload string
}

func newTestBridge(cmd Commander) (*Bridge, *[]published) {
	var pubs []published
	b := newBridge(NewQueue(paho.NewClientOptions(), "tivalink/"), cmd)
	b.pub = func(topic string, payload []byte) {
		pubs = append(pubs, published{topic, string(payload)})
	}
	return b, &pubs
}

func TestBridge_Publish(t *testing.T) {
	b, pubs := newTestBridge(&fakeCommander{})
	b.OnTelemetry(tiva.Telemetry{Time: "12:00:00", Reading: "1023", ButtonRaw: "1", Button: tiva.Released})
	b.OnConnectionError("no telemetry from COM3 for 5s")

	require.Len(t, *pubs, 2)
	assert.Equal(t, TopicTelemetry, (*pubs)[0].topic)
	var tm tiva.Telemetry
	require.NoError(t, json.Unmarshal([]byte((*pubs)[0].payload), &tm))
	assert.Equal(t, "1023", tm.Reading)
	assert.Equal(t, tiva.Released, tm.Button)
	assert.Equal(t, published{TopicError, "no telemetry from COM3 for 5s"}, (*pubs)[1])
}

func TestBridge_Commands(t *testing.T) {
	cmd := &fakeCommander{}
	b, pubs := newTestBridge(cmd)
	b.Queue.route("tivalink/cmd/time", []byte("08:00:00"))
	b.Queue.route("tivalink/cmd/message", []byte("Hey"))
	assert.Equal(t, []string{"08:00:00"}, cmd.times)
	assert.Equal(t, []string{"Hey"}, cmd.messages)
	assert.Empty(t, *pubs)

	cmd.err = tiva.ErrNotConnected
	b.Queue.route("tivalink/cmd/message", []byte("x"))
	assert.Equal(t, []published{{TopicError, tiva.ErrNotConnected.Error()}}, *pubs)
}

func TestDefaultClientID(t *testing.T) {
	id := DefaultClientID()
	assert.Contains(t, id, "tivalink-")
	assert.Equal(t, id, DefaultClientID())
}
