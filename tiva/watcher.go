package tiva

import (
	"fmt"
	"sync"
	"time"

	"github.com/rkjdid/util"
	log "github.com/sirupsen/logrus"
)

// Watcher reports an open link that stopped sending telemetry.
// It never reconnects, that's left to the user.
type Watcher struct {
	box    *Box
	cfg    *WatcherConfig
	stale  bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type WatcherConfig struct {
	ConnPollRate util.Duration
	StaleAfter   util.Duration // the board reports every second
}

var DefaultWatcherConfig = WatcherConfig{
	ConnPollRate: util.Duration(time.Second),
	StaleAfter:   util.Duration(time.Second * 5),
}

func NewWatcher(box *Box, cfg *WatcherConfig) *Watcher {
	c := DefaultWatcherConfig
	if cfg != nil {
		c = *cfg
	}
	// a config file without [Watcher] leaves zero durations
	if c.ConnPollRate <= 0 {
		c.ConnPollRate = DefaultWatcherConfig.ConnPollRate
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultWatcherConfig.StaleAfter
	}
	return &Watcher{
		box: box,
		cfg: &c,
	}
}

func (w *Watcher) Stop() {
	if w.stopCh == nil {
		return
	}
	log.Println("stopping conn watcher")
	close(w.stopCh)
	w.wg.Wait()
	w.stopCh = nil
}

func (w *Watcher) WatchConn() {
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go func(stopCh chan struct{}) {
		defer w.wg.Done()
		for {
			select {
			case <-time.After(time.Duration(w.cfg.ConnPollRate)):
			case <-stopCh:
				return
			}
			w.check(time.Now())
		}
	}(w.stopCh)
}

// check reports once per stale episode, it returns true when it did.
func (w *Watcher) check(now time.Time) bool {
	conn := w.box.Conn
	if !conn.IsOpen() {
		w.stale = false
		return false
	}
	idle := now.Sub(conn.LastActivity())
	if idle < time.Duration(w.cfg.StaleAfter) {
		w.stale = false
		return false
	}
	if w.stale {
		return false
	}
	w.stale = true
	msg := fmt.Sprintf("no telemetry from %s for %s", conn.Path(), idle.Round(time.Second))
	log.Warn(msg)
	w.box.sink.OnConnectionError(msg)
	return true
}
