package tiva

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial.v1"
)

//go:generate stringer -type=State
type State int

const (
	Closed State = iota
	Open
)

// Port is the part of serial.Port a Connection uses.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a port by name, OpenSerial in production.
type Opener func(name string, mode *serial.Mode) (Port, error)

// OpenSerial opens a real serial port.
func OpenSerial(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// ListPorts lists the serial ports available on this host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// LinkConfig identifies the port to open, every other
// link parameter is fixed by the firmware (9600 8N1).
type LinkConfig struct {
	Port string
}

// Mode returns the fixed serial parameters.
func (LinkConfig) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: 9600,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
}

// Connection owns the serial port and the pump reading from it.
// Open on an open Connection and Close on a closed one are no-ops.
type Connection struct {
	lastActivity int64 // unix nano, atomic

	Opener Opener

	mu     sync.Mutex // held by Open, Close and Send
	sink   Sink
	port   Port
	pump   *pump
	status atomic.Value // linkStatus, readable without mu
}

type linkStatus struct {
	state State
	path  string
}

// NewConnection returns a closed connection delivering telemetry to sink.
// sink is called from the pump goroutine and must not block, wrap it
// in a Dispatcher when it belongs to another context.
func NewConnection(sink Sink) *Connection {
	if sink == nil {
		sink = discard{}
	}
	c := &Connection{
		Opener: OpenSerial,
		sink:   sink,
	}
	c.status.Store(linkStatus{state: Closed})
	return c
}

func (c *Connection) loadStatus() linkStatus {
	return c.status.Load().(linkStatus)
}

// Open opens cfg.Port and starts reading from it.
func (c *Connection) Open(cfg LinkConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.loadStatus(); st.state == Open {
		log.WithField("port", st.path).Debugf("already open, ignoring open of %q", cfg.Port)
		return nil
	}
	if cfg.Port == "" {
		return &PortError{}
	}

	port, err := c.Opener(cfg.Port, cfg.Mode())
	if err != nil {
		return &PortError{Port: cfg.Port, Err: err}
	}
	c.port = port
	atomic.StoreInt64(&c.lastActivity, time.Now().UnixNano())
	c.pump = startPump(port, c.sink, &c.lastActivity)
	c.status.Store(linkStatus{state: Open, path: cfg.Port})
	log.WithField("port", cfg.Port).Info("serial port opened")
	return nil
}

// Close stops the pump and releases the port. Any partial line is lost.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.loadStatus()
	if st.state == Closed {
		return nil
	}
	c.status.Store(linkStatus{state: Closed, path: st.path})
	c.pump.stop()
	// closing the port unblocks the pump's pending Read
	err := c.port.Close()
	c.pump.wait()

	log.WithField("port", st.path).Info("serial port closed")
	c.port, c.pump = nil, nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", st.path, err)
	}
	return nil
}

// Send writes b as is.
func (c *Connection) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return ErrNotConnected
	}
	n, err := c.port.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	log.Debugf("Write b=%q, n=%v, err=%v", b, n, err)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailure, err)
	}
	return nil
}

func (c *Connection) IsOpen() bool {
	return c.State() == Open
}

func (c *Connection) State() State {
	return c.loadStatus().state
}

// Path returns the name of the open port, or the last one opened.
func (c *Connection) Path() string {
	return c.loadStatus().path
}

// LastActivity is the time of the last decoded line, or of Open if none came since.
func (c *Connection) LastActivity() time.Time {
	ns := atomic.LoadInt64(&c.lastActivity)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
