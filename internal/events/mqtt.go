package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mattdomit/dotted-sub000/internal/config"
)

const mqttConnectTimeout = 10 * time.Second

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes retained messages on <prefix>/<zone>/phase so a
// device that reconnects sees the current phase of its zone.
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
	qos         byte
}

func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(mqttConnectTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return &MQTTPublisher{client: client, topicPrefix: cfg.TopicPrefix, qos: byte(cfg.QoS)}, nil
}

func (p *MQTTPublisher) Topic(zoneID string) string {
	prefix := strings.TrimSuffix(p.topicPrefix, "/")
	if prefix == "" {
		return zoneID + "/phase"
	}
	return prefix + "/" + zoneID + "/phase"
}

func (p *MQTTPublisher) Publish(ctx context.Context, evt PhaseChanged) error {
	payload, err := evt.Payload()
	if err != nil {
		return err
	}
	topic := p.Topic(evt.ZoneID)
	token := p.client.Publish(topic, p.qos, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
