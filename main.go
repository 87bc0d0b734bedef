package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rkjdid/util"
	log "github.com/sirupsen/logrus"

	"github.com/solar3s/tivalink/mqtt"
	"github.com/solar3s/tivalink/shell"
	"github.com/solar3s/tivalink/tiva"
	"github.com/solar3s/tivalink/web"
)

var rootConfig *web.Config

var (
	device      = flag.String("dev", "", "serial port opened at startup, overrides config Device")
	rootPath    = flag.String("root", "", "path to tivalink's main directory (defaults to executable path)")
	cfgPath     = flag.String("config", "", "path to config (defaults to <root>/config.toml)")
	verbose     = flag.Bool("v", false, "higher verbosity")
	interactive = flag.Bool("shell", false, "run an interactive console")
	version     = flag.Bool("version", false, "print version & exit")
)

func init() {
	flag.Parse()

	// print version & exit
	if *version {
		fmt.Printf("tivalink %s\n", Version)
		os.Exit(0)
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if *rootPath == "" {
		exe, err := os.Executable()
		if err != nil {
			log.Fatalf("couldn't get path to executable: %s", err)
		}
		*rootPath = filepath.Dir(exe)
	}
	err := os.MkdirAll(*rootPath, 0755)
	if err != nil {
		log.Fatalf("couldn't mkdir \"%s\": %s", *rootPath, err)
	}

	if *cfgPath == "" {
		*cfgPath = filepath.Join(*rootPath, "config.toml")
	}

	err = util.ReadTomlFile(&rootConfig, *cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("error reading config \"%s\": %s", *cfgPath, err)
		}
		cfg := web.DefaultConfig
		rootConfig = &cfg
		err = util.WriteTomlFile(rootConfig, *cfgPath)
		if err != nil {
			log.Fatalf("error creating config \"%s\": %s", *cfgPath, err)
		}
		log.Infof("created new config file \"%s\"", *cfgPath)
	}

	if *verbose {
		rootConfig.Web.Verbose = true
	}
	if *device != "" {
		rootConfig.Device = *device
	}

	log.Infof("using config file: %s", *cfgPath)
}

func main() {
	dispatcher := tiva.NewDispatcher(rootConfig.Dispatcher.QueueSize)
	box := tiva.NewBox(dispatcher)

	hub := web.NewHub(box, time.Duration(rootConfig.Web.WebsocketWrite))
	dispatcher.Add(hub)

	var bridge *mqtt.Bridge
	if rootConfig.MQTT.Enabled {
		var err error
		bridge, err = mqtt.NewBridge(&rootConfig.MQTT, box)
		if err != nil {
			log.Errorf("mqtt bridge disabled: %s", err)
		} else {
			log.Infof("mqtt bridge connected to %s", rootConfig.MQTT.URL)
			dispatcher.Add(bridge)
		}
	}

	var sh *shell.Shell
	if *interactive {
		sh = shell.New(box)
		dispatcher.Add(sh.Printer())
	}
	dispatcher.Start()

	if rootConfig.Device != "" {
		if err := box.Connect(rootConfig.Device); err != nil {
			log.Errorf("couldn't open \"%s\": %s", rootConfig.Device, err)
		} else {
			log.Infof("connected to \"%s\"", rootConfig.Device)
		}
	}

	log.Infof("starting conn watcher (poll rate: %s)", rootConfig.Watcher.ConnPollRate)
	watcher := tiva.NewWatcher(box, &rootConfig.Watcher)
	watcher.WatchConn()

	server := web.NewServer(Version, box, hub, rootConfig)
	log.Infof("starting webserver on http://%s ...", rootConfig.Web.ListenAddr)
	go func() {
		log.Fatal(server.ListenAndServe())
	}()

	if sh != nil {
		sh.Run()
		sh.Close()
	} else {
		// small delay to allow for ListenAndServe failure
		<-time.After(time.Millisecond * 500)
		log.Info("Press <Ctrl-C> to quit")

		trap := make(chan os.Signal, 1)
		signal.Notify(trap, os.Interrupt, syscall.SIGTERM)
		<-trap
		fmt.Println()
	}
	log.Info("quit received...")

	cleanExit := make(chan struct{})
	go func() {
		watcher.Stop()
		if err := box.Disconnect(); err != nil {
			log.Warnf("error closing port: %s", err)
		}
		if bridge != nil {
			bridge.Close()
		}
		dispatcher.Stop()
		if n := dispatcher.Dropped(); n > 0 {
			log.Warnf("%d events were dropped by a slow consumer", n)
		}
		close(cleanExit)
	}()
	select {
	case <-time.After(time.Second * 10):
		log.Panicln("no clean exit after 10sec")
	case <-cleanExit:
	}
}
