package events

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/config"
)

// Setup builds the dispatcher and every enabled sink. A sink that fails to
// connect is logged and left out. The returned hub is nil when websockets
// are disabled.
func Setup(cfg config.BroadcastConfig, rdb *redis.Client, logger *zap.Logger) (*Dispatcher, *Hub) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := NewDispatcher(logger, cfg.QueueSize, cfg.Timeout)

	var hub *Hub
	if cfg.WebSocket.Enabled {
		hub = NewHub(logger, cfg.WebSocket.BufferSize)
		d.Add("websocket", hub)
	}
	if cfg.Redis.Enabled {
		if rdb == nil {
			logger.Warn("redis broadcast enabled without a redis client")
		} else {
			d.Add("redis", &RedisPublisher{Client: rdb, Channel: cfg.Redis.Channel})
		}
	}
	if cfg.MQTT.Enabled {
		pub, err := NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			logger.Warn("mqtt broadcast disabled", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		} else {
			d.Add("mqtt", pub)
		}
	}
	if cfg.Kafka.Enabled {
		pub, err := NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			logger.Warn("kafka broadcast disabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		} else {
			d.Add("kafka", pub)
		}
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		d.Add("webhook", NewWebhookPublisher(cfg.Webhook))
	}
	return d, hub
}
