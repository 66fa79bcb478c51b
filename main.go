package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/tjscheier/playout/channel"
	"github.com/tjscheier/playout/control"
	"github.com/tjscheier/playout/frame"
)

type app struct {
	Config  channel.Config
	Client  mqtt.Client
	Channel *channel.Channel
	Control *control.Adapter
}

func newApp() *app {
	return new(app)
}

func (a *app) handleOnConnect(client mqtt.Client) {
	log.Info("connected")
	if err := a.Control.Subscribe(); err != nil {
		log.WithError(err).Error("control subscribe failed")
	}
}

func (a *app) run() error {
	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	a.Channel.Run(ctx)
	a.Channel.Close()
	return nil
}

func main() {
	log.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	configPath := flag.String("config", "config.yaml", "YAML config file.")
	flag.Parse()

	a := newApp()
	cfg, err := channel.ReadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	a.Config = cfg

	format, ok := frame.FormatByName(cfg.Channel.Format)
	if !ok {
		log.Fatalf("unknown format %q", cfg.Channel.Format)
	}

	a.Channel = channel.New("channel-1", format)
	if cfg.Channel.Background != "" {
		if err := a.Channel.SetBackground(cfg.Channel.Background); err != nil {
			log.Fatal(err)
		}
	}

	options := mqtt.NewClientOptions().
		AddBroker(cfg.Mqtt.URL).
		SetClientID("playout").
		SetUsername(cfg.Mqtt.Username).
		SetPassword(cfg.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(a.handleOnConnect)
	a.Client = mqtt.NewClient(options)

	a.Control = control.NewAdapter(a.Client, a.Channel, cfg.Mqtt.Topics.Control)
	a.Channel.AddConsumer(control.NewPublisher(a.Client, cfg.Mqtt.Topics.Frames))

	if err := a.run(); err != nil {
		log.Fatal(err)
	}
}
