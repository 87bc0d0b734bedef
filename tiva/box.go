package tiva

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Box is what a front-end talks to: it encodes user input into commands
// and reports connection failures to the sink as well as to the caller.
type Box struct {
	Conn *Connection
	sink Sink
}

func NewBox(sink Sink) *Box {
	if sink == nil {
		sink = discard{}
	}
	return &Box{
		Conn: NewConnection(sink),
		sink: sink,
	}
}

// Connect opens port, it doesn't retry.
func (b *Box) Connect(port string) error {
	err := b.Conn.Open(LinkConfig{Port: port})
	if err != nil {
		log.WithField("port", port).Warn(err)
		b.sink.OnConnectionError(err.Error())
	}
	return err
}

func (b *Box) Disconnect() error {
	return b.Conn.Close()
}

// SendTimeSet sets the board clock to text ("HH:MM:SS"),
// or to the local time if text is empty.
func (b *Box) SendTimeSet(text string) error {
	if text == "" {
		text = FormatTime(time.Now())
	}
	frame, err := EncodeTimeSet(text)
	if err != nil {
		return err
	}
	return b.Conn.Send(frame)
}

// SendMessage shows text on the board display, see NormalizeMessage.
func (b *Box) SendMessage(text string) error {
	return b.Conn.Send(EncodeMessage(text))
}

func (b *Box) State() State {
	return b.Conn.State()
}

func (b *Box) Port() string {
	return b.Conn.Path()
}
