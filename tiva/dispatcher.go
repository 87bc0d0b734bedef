package tiva

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Sink consumes telemetry and connection errors.
type Sink interface {
	OnTelemetry(Telemetry)
	OnConnectionError(message string)
}

type discard struct{}

func (discard) OnTelemetry(Telemetry)    {}
func (discard) OnConnectionError(string) {}

// SinkFuncs adapts functions to Sink, nil funcs are skipped.
type SinkFuncs struct {
	Telemetry       func(Telemetry)
	ConnectionError func(string)
}

func (f SinkFuncs) OnTelemetry(t Telemetry) {
	if f.Telemetry != nil {
		f.Telemetry(t)
	}
}

func (f SinkFuncs) OnConnectionError(message string) {
	if f.ConnectionError != nil {
		f.ConnectionError(message)
	}
}

const DefaultQueueSize = 64

type event struct {
	telemetry Telemetry
	errMsg    string
	isErr     bool
}

// Dispatcher hands events over from the pump to its sinks: posting only
// enqueues, sinks are all called in order from the dispatcher's own goroutine.
// Events posted to a full queue are dropped, a newer sample follows shortly.
type Dispatcher struct {
	dropped uint64 // atomic

	queue  chan event
	sinks  []Sink
	mu     sync.RWMutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(size int, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		queue: make(chan event, size),
		sinks: sinks,
	}
}

// Add registers s, it receives events posted from now on.
func (d *Dispatcher) Add(s Sink) {
	d.mu.Lock()
	d.sinks = append(d.sinks, s)
	d.mu.Unlock()
}

// Start begins delivering queued events. To stop it, call Stop().
func (d *Dispatcher) Start() {
	d.stopCh = make(chan struct{})
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case e := <-d.queue:
				d.deliver(e)
			case <-d.stopCh:
				return
			}
		}
	}()
}

// Stop waits for the event being delivered, if any, and returns.
// Events still queued are not delivered.
func (d *Dispatcher) Stop() {
	if d.stopCh == nil {
		return
	}
	close(d.stopCh)
	d.wg.Wait()
	d.stopCh = nil
}

// Dropped returns how many events were dropped on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

func (d *Dispatcher) OnTelemetry(t Telemetry) {
	d.post(event{telemetry: t})
}

func (d *Dispatcher) OnConnectionError(message string) {
	d.post(event{errMsg: message, isErr: true})
}

func (d *Dispatcher) post(e event) {
	select {
	case d.queue <- e:
	default:
		n := atomic.AddUint64(&d.dropped, 1)
		log.Debugf("dispatch queue full, dropped event (%d total)", n)
	}
}

func (d *Dispatcher) deliver(e event) {
	d.mu.RLock()
	sinks := d.sinks
	d.mu.RUnlock()
	for _, s := range sinks {
		d.call(s, e)
	}
}

// call isolates sinks from each other's panics.
func (d *Dispatcher) call(s Sink, e event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("sink %T panicked: %v", s, r)
		}
	}()
	if e.isErr {
		s.OnConnectionError(e.errMsg)
	} else {
		s.OnTelemetry(e.telemetry)
	}
}
