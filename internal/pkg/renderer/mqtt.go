package renderer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"

	"github.com/dpp/homer/internal/pkg/model"
)

// MQTTSink publishes each draw instruction as JSON to the display device's
// topic. QoS 1 with a synchronous token wait keeps the arrival-order and
// may-block contracts of the Sink interface.
type MQTTSink struct {
	client paho_mqtt.Client
	topic  string
}

func NewMQTTSink(client paho_mqtt.Client, deviceName string) *MQTTSink {
	return &MQTTSink{
		client: client,
		topic:  fmt.Sprintf("homer/%s/display", slug.Make(deviceName)),
	}
}

func (s *MQTTSink) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(time.Second * 5) {
		return errors.New("unable to connect in time")
	}
	return token.Error()
}

func (s *MQTTSink) Draw(cmd model.DrawCmd) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 1, false, payload)
	if !token.WaitTimeout(time.Second * 10) {
		return errors.New("publish timed out")
	}
	return token.Error()
}
