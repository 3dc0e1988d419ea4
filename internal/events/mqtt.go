package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Config defines the MQTT connection used for vehicle events.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix; events go to <Topic>/<license plate>.
	Topic   string
	QoS     byte
	Timeout time.Duration
}

type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTPublisher publishes events as JSON to an MQTT broker.
type MQTTPublisher struct {
	cli     pahoClient
	topic   string
	qos     byte
	timeout time.Duration
	logger  *log.Entry
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg Config, logger *log.Entry) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.WithError(err).Error("MQTT connection lost")
	}

	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect: timed out after %s", cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTPublisher{
		cli:     c,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Publish sends e to <topic>/<license plate>.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	topic := p.topic + "/" + e.LicensePlate
	token := p.cli.Publish(topic, p.qos, false, payload)

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.WithFields(log.Fields{"topic": topic, "type": e.Type}).Debug("Published vehicle event")
	return nil
}

// Close disconnects from the broker, giving in-flight messages 250ms.
func (p *MQTTPublisher) Close() {
	p.cli.Disconnect(250)
}
