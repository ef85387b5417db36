// README: Sink publishing lifecycle events to an MQTT broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultTopicPrefix = "rideshare"
	publishTimeout     = 5 * time.Second
)

// mqttPublisher is the subset of paho.Client used here.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTTSink publishes each event on <prefix>/rides/<ride id>/<kind> with QoS 1.
type MQTTSink struct {
	client mqttPublisher
	prefix string
}

func NewMQTTSink(client mqttPublisher, prefix string) *MQTTSink {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTTSink{client: client, prefix: prefix}
}

func (s *MQTTSink) Topic(e Event) string {
	return fmt.Sprintf("%s/rides/%s/%s", s.prefix, e.Ride.ID, e.Kind)
}

func (s *MQTTSink) publish(_ context.Context, e Event) error {
	b, err := json.Marshal(payloadOf(e))
	if err != nil {
		return err
	}
	topic := s.Topic(e)
	token := s.client.Publish(topic, 1, false, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (s *MQTTSink) OnStatusChanged(ctx context.Context, e Event) error {
	return s.publish(ctx, e)
}

func (s *MQTTSink) OnDriverAssigned(ctx context.Context, e Event) error {
	return s.publish(ctx, e)
}

func (s *MQTTSink) OnPaymentCompleted(ctx context.Context, e Event) error {
	return s.publish(ctx, e)
}
