package tiva

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial.v1"
)

// fakePort is a pipe standing in for the board: emit writes what
// the board would send, written collects what the host sent.
type fakePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu       sync.Mutex
	written  bytes.Buffer
	writeErr error
	closed   bool
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.r.Close()
}

// emit blocks until the pump has read s.
func (p *fakePort) emit(t *testing.T, s string) {
	_, err := p.w.Write([]byte(s))
	require.NoError(t, err)
}

func (p *fakePort) sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// scriptedPort returns reads in order, then blocks until closed.
// It reads nothing at all, forever, when empty is set.
type scriptedPort struct {
	reads chan scriptedRead
	empty bool
	count int64 // atomic

	done      chan struct{}
	closeOnce sync.Once
}

type scriptedRead struct {
	data string
	err  error
}

func newScriptedPort(reads ...scriptedRead) *scriptedPort {
	p := &scriptedPort{
		reads: make(chan scriptedRead, len(reads)),
		done:  make(chan struct{}),
	}
	for _, r := range reads {
		p.reads <- r
	}
	return p
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	atomic.AddInt64(&p.count, 1)
	if p.empty {
		return 0, nil
	}
	select {
	case r := <-p.reads:
		return copy(b, r.data), r.err
	case <-p.done:
		return 0, io.EOF
	}
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	return len(b), nil
}

func (p *scriptedPort) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

func (p *scriptedPort) readCount() int64 {
	return atomic.LoadInt64(&p.count)
}

type fakeOpener struct {
	mu     sync.Mutex
	port   *fakePort
	err    error
	opened []string
}

func (o *fakeOpener) open(name string, mode *serial.Mode) (Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, name)
	if o.err != nil {
		return nil, o.err
	}
	return o.port, nil
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

// chanSink records everything it's given.
type chanSink struct {
	telemetry chan Telemetry
	errs      chan string
}

func newChanSink() *chanSink {
	return &chanSink{
		telemetry: make(chan Telemetry, 16),
		errs:      make(chan string, 16),
	}
}

func (s *chanSink) OnTelemetry(t Telemetry) {
	s.telemetry <- t
}

func (s *chanSink) OnConnectionError(message string) {
	s.errs <- message
}

func (s *chanSink) next(t *testing.T) Telemetry {
	select {
	case tm := <-s.telemetry:
		return tm
	case <-time.After(time.Second * 2):
		t.Fatal("no telemetry received")
	}
	return Telemetry{}
}

func newTestConnection(sink Sink) (*Connection, *fakeOpener) {
	op := &fakeOpener{port: newFakePort()}
	c := NewConnection(sink)
	c.Opener = op.open
	return c, op
}
