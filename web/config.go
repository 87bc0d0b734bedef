package web

import (
	"github.com/solar3s/tivalink/mqtt"
	"github.com/solar3s/tivalink/tiva"
)

var DefaultConfig = Config{
	Web:        DefaultServerConfig,
	Watcher:    tiva.DefaultWatcherConfig,
	Dispatcher: DefaultDispatcherConfig,
	MQTT:       mqtt.DefaultConfig,
}

// Config is the root config, stored as toml.
type Config struct {
	Device     string // port opened at startup, if any
	Web        ServerConfig
	Watcher    tiva.WatcherConfig
	Dispatcher DispatcherConfig
	MQTT       mqtt.Config
}

type DispatcherConfig struct {
	QueueSize int
}

var DefaultDispatcherConfig = DispatcherConfig{
	QueueSize: tiva.DefaultQueueSize,
}
