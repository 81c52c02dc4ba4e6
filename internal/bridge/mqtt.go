package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
)

const (
	connectTimeout = 10 * time.Second
	disconnectMs   = 250
)

// MQTTOptions configure DialMQTT.
type MQTTOptions struct {
	// Broker is a paho broker URL such as tcp://localhost:1883 or ssl://host:8883.
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTPublisher publishes through a paho client.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
}

var _ Publisher = (*MQTTPublisher)(nil)

// DialMQTT connects to the broker. A missing client id gets a random one.
func DialMQTT(ctx context.Context, o MQTTOptions, log zerolog.Logger) (*MQTTPublisher, error) {
	if o.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if o.ClientID == "" {
		o.ClientID = "thinkgw-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", o.Broker).Msg("mqtt connection lost")
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", o.Broker).Str("client_id", o.ClientID).Msg("mqtt connected")
	})

	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("%w: mqtt connect %s: %v", domain.ErrTransport, o.Broker, err)
	}
	return &MQTTPublisher{client: client, qos: o.QoS}, nil
}

// Publish sends payload to topic and waits for the broker to accept it.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return wait(ctx, p.client.Publish(topic, p.qos, false, payload))
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() { p.client.Disconnect(disconnectMs) }

func wait(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
