// README: MQTT client initialization using paho.
package infra

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const mqttConnectTimeout = 5 * time.Second

// connector is the subset of paho.Client used to establish a session.
type connector interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
}

func NewMQTT(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	if err := connectMQTT(client, broker, mqttConnectTimeout); err != nil {
		return nil, err
	}
	return client, nil
}

// connectMQTT disconnects the client on any failure so auto-reconnect does
// not keep retrying in the background.
func connectMQTT(c connector, broker string, timeout time.Duration) error {
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		c.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		c.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return nil
}
