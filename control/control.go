// Package control translates MQTT command messages into stage and mixer
// operations, and publishes composed frames back out.
package control

import (
	"encoding/binary"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/tjscheier/playout/channel"
	"github.com/tjscheier/playout/frame"
	"github.com/tjscheier/playout/stage"
)

// Command is one control message.
type Command struct {
	Command  string  `json:"command"`
	Layer    int     `json:"layer"`
	Color    string  `json:"color"`
	Preview  bool    `json:"preview"`
	Volume   float64 `json:"volume"`
	Opacity  float64 `json:"opacity"`
	Duration uint    `json:"duration"`
	Easing   string  `json:"easing"`
}

// Adapter subscribes to a command topic and dispatches onto a channel.
type Adapter struct {
	client mqtt.Client
	ch     *channel.Channel
	topic  string
	log    *log.Entry
}

// NewAdapter creates a control adapter for one channel.
func NewAdapter(client mqtt.Client, ch *channel.Channel, topic string) *Adapter {
	return &Adapter{
		client: client,
		ch:     ch,
		topic:  topic,
		log:    log.WithField("prefix", "control"),
	}
}

// Subscribe starts receiving commands.
func (a *Adapter) Subscribe() error {
	token := a.client.Subscribe(a.topic, 1, a.handle)
	token.Wait()
	return token.Error()
}

func (a *Adapter) handle(client mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		a.log.WithError(err).Error("bad command payload")
		return
	}
	a.Dispatch(cmd)
}

// Dispatch applies one command. Unknown commands are logged and dropped.
func (a *Adapter) Dispatch(cmd Command) {
	st := a.ch.Stage()
	switch cmd.Command {
	case "load":
		format := a.ch.Format()
		p, err := stage.NewColorProducer(cmd.Color, format.Width, format.Height)
		if err != nil {
			a.log.WithError(err).Errorf("load layer %d", cmd.Layer)
			return
		}
		st.Load(cmd.Layer, p, cmd.Preview, -1)
	case "play":
		st.Play(cmd.Layer)
	case "pause":
		st.Pause(cmd.Layer)
	case "stop":
		st.Stop(cmd.Layer)
	case "clear":
		st.Clear(cmd.Layer)
	case "clear-all":
		st.ClearAll()
	case "clear-transform":
		st.ClearTransform(cmd.Layer)
	case "clear-transforms":
		st.ClearTransforms()
	case "opacity":
		opacity := cmd.Opacity
		st.ApplyTransform(cmd.Layer, func(t frame.Transform) frame.Transform {
			t.Opacity = opacity
			return t
		}, cmd.Duration, cmd.Easing)
	case "volume":
		a.ch.Mixer().SetMasterVolume(cmd.Volume)
	default:
		a.log.Warnf("unknown command %q", cmd.Command)
	}
}

// Publisher is a channel consumer that publishes composed frames over MQTT.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher creates a frame publisher.
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Send publishes one composed frame: width and height as little-endian
// uint16, then the packed BGRA payload.
func (p *Publisher) Send(f frame.Const) error {
	data := make([]byte, 4, 4+len(f.Image))
	binary.LittleEndian.PutUint16(data, uint16(f.Pixels.Width))
	binary.LittleEndian.PutUint16(data[2:], uint16(f.Pixels.Height))
	data = append(data, f.Image...)
	token := p.client.Publish(p.topic, 0, false, data)
	token.Wait()
	return token.Error()
}
