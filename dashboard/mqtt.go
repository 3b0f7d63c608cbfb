package dashboard

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"go.viam.com/rdk/logging"
)

// DefaultPublishTimeout bounds how long a single value waits for the broker.
const DefaultPublishTimeout = 50 * time.Millisecond

// Publisher is the part of mqtt.Client the dashboard needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each value as JSON on <prefix>/<key>.
type MQTT struct {
	client  Publisher
	prefix  string
	timeout time.Duration
	logger  logging.Logger
}

// NewMQTT wraps an already connected client.
func NewMQTT(client Publisher, prefix string, logger logging.Logger) *MQTT {
	return &MQTT{
		client:  client,
		prefix:  prefix,
		timeout: DefaultPublishTimeout,
		logger:  logger,
	}
}

// Connect dials broker (for example tcp://10.43.8.2:1883) with automatic
// reconnects.
func Connect(broker, clientID string, logger logging.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		logger.Infow("connected to MQTT broker", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warnw("MQTT connection lost", "broker", broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "failed to connect to MQTT broker %s", broker)
	}
	return client, nil
}

// PutNumber publishes a number.
func (m *MQTT) PutNumber(key string, value float64) {
	m.publish(key, value)
}

// PutBoolean publishes a boolean.
func (m *MQTT) PutBoolean(key string, value bool) {
	m.publish(key, value)
}

func (m *MQTT) topic(key string) string {
	if m.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", m.prefix, key)
}

func (m *MQTT) publish(key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		m.logger.Errorw("cannot encode dashboard value", "key", key, "error", err)
		return
	}
	token := m.client.Publish(m.topic(key), 0, false, payload)
	if !token.WaitTimeout(m.timeout) {
		m.logger.Debugw("dashboard publish timed out", "key", key)
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Errorw("dashboard publish error", "key", key, "error", err)
	}
}
