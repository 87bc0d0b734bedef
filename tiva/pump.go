package tiva

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var readErrorBackoff = time.Millisecond * 50

var errNoData = errors.New("empty read")

// pump reads lines from port until stopped, delivering decoded
// telemetry to sink in reception order.
type pump struct {
	port         Port
	sink         Sink
	lastActivity *int64
	lines        lineBuffer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func startPump(port Port, sink Sink, lastActivity *int64) *pump {
	p := &pump{
		port:         port,
		sink:         sink,
		lastActivity: lastActivity,
		stopCh:       make(chan struct{}),
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run()
	}()
	return p
}

func (p *pump) stop() {
	close(p.stopCh)
}

func (p *pump) wait() {
	p.wg.Wait()
}

func (p *pump) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

func (p *pump) run() {
	b := make([]byte, 64)
	for {
		n, err := p.port.Read(b)
		if p.stopped() {
			return
		}
		for _, line := range p.lines.Feed(b[:n]) {
			p.handle(line)
		}
		if err == nil && n == 0 {
			// a hung up tty reads nothing, forever
			err = errNoData
		}
		if err != nil {
			log.Debugf("in pump.run: %s, dropping partial line", err)
			p.lines.Reset()
			select {
			case <-p.stopCh:
				return
			case <-time.After(readErrorBackoff):
			}
		}
	}
}

func (p *pump) handle(line string) {
	t, err := DecodeLine(line)
	if err != nil {
		log.Debugf("dropping line: %s", err)
		return
	}
	log.Debugf("Read %q", line)
	t.Received = time.Now()
	atomic.StoreInt64(p.lastActivity, t.Received.UnixNano())

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("telemetry sink panicked: %v", r)
		}
	}()
	p.sink.OnTelemetry(t)
}

// lineBuffer accumulates bytes into LineTerminator separated lines,
// a trailing '\r' is stripped. Lines longer than maxLineLength are dropped.
type lineBuffer struct {
	buf      []byte
	overflow bool
}

// Feed appends b and returns the lines it completed.
func (lb *lineBuffer) Feed(b []byte) (lines []string) {
	for _, c := range b {
		if c == LineTerminator {
			if !lb.overflow {
				lines = append(lines, string(trimCR(lb.buf)))
			}
			lb.Reset()
			continue
		}
		if lb.overflow {
			continue
		}
		if len(lb.buf) >= maxLineLength {
			lb.buf = lb.buf[:0]
			lb.overflow = true
			continue
		}
		lb.buf = append(lb.buf, c)
	}
	return lines
}

// Reset discards the partial line.
func (lb *lineBuffer) Reset() {
	lb.buf = lb.buf[:0]
	lb.overflow = false
}

func trimCR(b []byte) []byte {
	if i := len(b); i > 0 && b[i-1] == '\r' {
		return b[:i-1]
	}
	return b
}
