package mqtt

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	log "github.com/sirupsen/logrus"

	"github.com/solar3s/tivalink/tiva"
)

const (
	TopicTelemetry  = "telemetry"
	TopicError      = "error"
	TopicCmdTime    = "cmd/time"
	TopicCmdMessage = "cmd/message"
)

const connectTimeout = time.Second * 5

type Config struct {
	Enabled  bool
	URL      string // mqtt://[user:pass@]host:port/prefix/
	ClientID string // defaults to one derived from the machine id
}

var DefaultConfig = Config{
	URL: "mqtt://localhost:1883/tivalink/",
}

// Commander is what cmd/ topics are forwarded to, tiva.Box in practice.
type Commander interface {
	SendTimeSet(text string) error
	SendMessage(text string) error
}

// Bridge publishes telemetry and connection errors to a broker, and
// forwards commands received on cmd/time and cmd/message to the board.
type Bridge struct {
	Queue *Queue
	cmd   Commander
	pub   func(topic string, payload []byte)
}

// NewBridge connects to cfg.URL. The client keeps reconnecting
// on its own once the first connection succeeded.
func NewBridge(cfg *Config, cmd Commander) (*Bridge, error) {
	opts, prefix, err := ClientOptionsFromURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("mqtt url %q: %w", cfg.URL, err)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID()
	}
	if opts.ClientID == "" {
		opts.SetClientID(clientID)
	}

	b := newBridge(NewQueue(opts, prefix), cmd)
	token := b.Queue.Connect()
	if !token.WaitTimeout(connectTimeout) {
		b.Queue.Close()
		return nil, fmt.Errorf("mqtt connect to %s: timeout after %s", cfg.URL, connectTimeout)
	}
	if err := token.Error(); err != nil {
		b.Queue.Close()
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.URL, err)
	}
	return b, nil
}

func newBridge(q *Queue, cmd Commander) *Bridge {
	b := &Bridge{Queue: q, cmd: cmd}
	b.pub = func(topic string, payload []byte) {
		q.Pub(topic, payload)
	}
	q.Sub(TopicCmdTime, b.handleTime)
	q.Sub(TopicCmdMessage, b.handleMessage)
	return b
}

// DefaultClientID is stable for a given host.
func DefaultClientID() string {
	id, err := machineid.ID()
	if err != nil {
		log.Debugf("no machine id (%s), using hostname", err)
		if id, err = os.Hostname(); err != nil || id == "" {
			id = "host"
		}
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return "tivalink-" + id
}

func (b *Bridge) Close() error {
	return b.Queue.Close()
}

func (b *Bridge) OnTelemetry(t tiva.Telemetry) {
	payload, err := json.Marshal(t)
	if err != nil {
		log.Println("in Bridge.OnTelemetry:", err)
		return
	}
	b.pub(TopicTelemetry, payload)
}

func (b *Bridge) OnConnectionError(message string) {
	b.pub(TopicError, []byte(message))
}

// handleTime accepts "HH:MM:SS", or an empty payload for the host's time.
func (b *Bridge) handleTime(topic string, payload []byte) {
	if err := b.cmd.SendTimeSet(string(payload)); err != nil {
		log.WithField("topic", topic).Warn(err)
		b.pub(TopicError, []byte(err.Error()))
	}
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	if err := b.cmd.SendMessage(string(payload)); err != nil {
		log.WithField("topic", topic).Warn(err)
		b.pub(TopicError, []byte(err.Error()))
	}
}

var _ tiva.Sink = (*Bridge)(nil)
