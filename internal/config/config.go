package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Lock      LockConfig      `mapstructure:"lock"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	AI        AIConfig        `mapstructure:"ai"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	// Output is a zap sink path such as stdout, stderr or a file.
	Output string `mapstructure:"output"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// RedisConfig is optional; an empty Addr disables the distributed lock and
// the redis broadcast channel.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CronConfig holds one schedule per sweep target phase. Empty schedules are
// not registered.
type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Voting    string `mapstructure:"voting"`
	Bidding   string `mapstructure:"bidding"`
	Sourcing  string `mapstructure:"sourcing"`
	Ordering  string `mapstructure:"ordering"`
	Completed string `mapstructure:"completed"`
}

type SweepConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	DefaultTimezone string        `mapstructure:"default_timezone"`
	ZoneTimeout     time.Duration `mapstructure:"zone_timeout"`
}

type LockConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type ScoringConfig struct {
	RecentWindow     int                   `mapstructure:"recent_window"`
	CapacityFraction float64               `mapstructure:"capacity_fraction"`
	MaxDistanceKm    float64               `mapstructure:"max_distance_km"`
	Bid              BidWeightsConfig      `mapstructure:"bid"`
	Supplier         SupplierWeightsConfig `mapstructure:"supplier"`
	Dish             DishWeightsConfig     `mapstructure:"dish"`
}

type BidWeightsConfig struct {
	Price    float64 `mapstructure:"price"`
	Rating   float64 `mapstructure:"rating"`
	Capacity float64 `mapstructure:"capacity"`
	PrepTime float64 `mapstructure:"prep_time"`
}

type SupplierWeightsConfig struct {
	Price     float64 `mapstructure:"price"`
	Distance  float64 `mapstructure:"distance"`
	Freshness float64 `mapstructure:"freshness"`
	Rating    float64 `mapstructure:"rating"`
}

type DishWeightsConfig struct {
	Quality   float64 `mapstructure:"quality"`
	Freshness float64 `mapstructure:"freshness"`
	Variety   float64 `mapstructure:"variety"`
	Cost      float64 `mapstructure:"cost"`
	Waste     float64 `mapstructure:"waste"`
}

type AIConfig struct {
	// Provider is one of "openai", "anthropic" or "none".
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
	DishCount int           `mapstructure:"dish_count"`
}

type BroadcastConfig struct {
	QueueSize int             `mapstructure:"queue_size"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Redis     RedisSinkConfig `mapstructure:"redis"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
}

type WebSocketConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type RedisSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type WebhookConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	Secret     string        `mapstructure:"secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOTTED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.output", "stdout")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Seconds-enabled cron specs, evaluated in sweep.default_timezone.
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.voting", "0 0 8 * * *")
	v.SetDefault("cron.bidding", "0 0 11 * * *")
	v.SetDefault("cron.sourcing", "0 0 13 * * *")
	v.SetDefault("cron.ordering", "0 0 14 * * *")
	v.SetDefault("cron.completed", "0 0 23 * * *")

	v.SetDefault("sweep.concurrency", 4)
	v.SetDefault("sweep.default_timezone", "UTC")
	v.SetDefault("sweep.zone_timeout", "2m")
	v.SetDefault("lock.ttl", "5m")
	v.SetDefault("lock.key_prefix", "dotted:cycle-lock:")

	v.SetDefault("scoring.recent_window", 14)
	v.SetDefault("scoring.capacity_fraction", 0.3)
	v.SetDefault("scoring.max_distance_km", 50)
	v.SetDefault("scoring.bid.price", 0.40)
	v.SetDefault("scoring.bid.rating", 0.30)
	v.SetDefault("scoring.bid.capacity", 0.20)
	v.SetDefault("scoring.bid.prep_time", 0.10)
	v.SetDefault("scoring.supplier.price", 0.35)
	v.SetDefault("scoring.supplier.distance", 0.25)
	v.SetDefault("scoring.supplier.freshness", 0.25)
	v.SetDefault("scoring.supplier.rating", 0.15)
	v.SetDefault("scoring.dish.quality", 0.30)
	v.SetDefault("scoring.dish.freshness", 0.25)
	v.SetDefault("scoring.dish.variety", 0.20)
	v.SetDefault("scoring.dish.cost", 0.15)
	v.SetDefault("scoring.dish.waste", 0.10)

	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.api_key_env", "")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.dish_count", 5)

	v.SetDefault("broadcast.queue_size", 256)
	v.SetDefault("broadcast.timeout", "5s")
	v.SetDefault("broadcast.websocket.enabled", true)
	v.SetDefault("broadcast.websocket.buffer_size", 32)
	v.SetDefault("broadcast.redis.enabled", false)
	v.SetDefault("broadcast.redis.channel", "dotted:cycle-phase")
	v.SetDefault("broadcast.mqtt.enabled", false)
	v.SetDefault("broadcast.mqtt.client_id", "dotted-cycled")
	v.SetDefault("broadcast.mqtt.topic_prefix", "dotted/zones")
	v.SetDefault("broadcast.mqtt.qos", 1)
	v.SetDefault("broadcast.kafka.enabled", false)
	v.SetDefault("broadcast.kafka.topic", "cycle-phase-changes")
	v.SetDefault("broadcast.webhook.enabled", false)
	v.SetDefault("broadcast.webhook.timeout", "5s")
	v.SetDefault("broadcast.webhook.retry_count", 2)
}
