package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env                 string `mapstructure:"env"`
	Port                int    `mapstructure:"port"`
	ShutdownSeconds     int    `mapstructure:"shutdown_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	LogLevel            string `mapstructure:"log_level"`
}

func (a AppConf) PortString() string { return fmt.Sprintf("%d", a.Port) }

func (a AppConf) Development() bool { return a.Env == "" || a.Env == "development" }

type MongoConf struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConf struct {
	Driver string `mapstructure:"driver"` // file | redis
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type NATSConf struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type EventsConf struct {
	Driver string `mapstructure:"driver"` // kafka | nats | none
}

type WhatsAppConf struct {
	Enabled           bool   `mapstructure:"enabled"`
	Mode              string `mapstructure:"mode"` // live | simulated
	APIURL            string `mapstructure:"api_url"`
	Token             string `mapstructure:"token"`
	PhoneNumberID     string `mapstructure:"phone_number_id"`
	BusinessAccountID string `mapstructure:"business_account_id"`
	RetryMaxSeconds   int    `mapstructure:"retry_max_seconds"`
	BreakerFailures   int    `mapstructure:"breaker_failures"`
}

type StorageConf struct {
	Driver     string `mapstructure:"driver"` // s3 | local
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	Endpoint   string `mapstructure:"endpoint"`
	PublicRead bool   `mapstructure:"public_read"`
	PresignTTL int    `mapstructure:"presign_ttl_seconds"`
	LocalDir   string `mapstructure:"local_dir"`
}

type ProcessingConf struct {
	MaxConcurrent          int `mapstructure:"max_concurrent"`
	QueryTimeoutSeconds    int `mapstructure:"query_timeout_seconds"`
	DocumentTimeoutSeconds int `mapstructure:"document_timeout_seconds"`
}

type JWTConf struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type RateLimitConf struct {
	Driver    string `mapstructure:"driver"` // memory | redis
	PerMinute int    `mapstructure:"per_minute"`
}

type Config struct {
	App        AppConf        `mapstructure:"app"`
	Mongo      MongoConf      `mapstructure:"mongo"`
	Redis      RedisConf      `mapstructure:"redis"`
	Cache      CacheConf      `mapstructure:"cache"`
	Kafka      KafkaConf      `mapstructure:"kafka"`
	NATS       NATSConf       `mapstructure:"nats"`
	Events     EventsConf     `mapstructure:"events"`
	WhatsApp   WhatsAppConf   `mapstructure:"whatsapp"`
	Storage    StorageConf    `mapstructure:"storage"`
	Processing ProcessingConf `mapstructure:"processing"`
	JWT        JWTConf        `mapstructure:"jwt"`
	RateLimit  RateLimitConf  `mapstructure:"rate_limit"`

	// derived
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	QueryTimeout    time.Duration
	DocumentTimeout time.Duration
	PresignTTL      time.Duration
	RetryMaxElapsed time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.shutdown_seconds", 10)
	v.SetDefault("app.read_timeout_seconds", 15)
	v.SetDefault("app.write_timeout_seconds", 15)
	v.SetDefault("app.log_level", "")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "legal_agent")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.prefix", "legal")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "legal.entity.status")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "legal.entity.status")
	v.SetDefault("events.driver", "none")
	v.SetDefault("whatsapp.enabled", true)
	v.SetDefault("whatsapp.mode", "simulated")
	v.SetDefault("whatsapp.api_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("whatsapp.token", "")
	v.SetDefault("whatsapp.phone_number_id", "")
	v.SetDefault("whatsapp.business_account_id", "")
	v.SetDefault("whatsapp.retry_max_seconds", 10)
	v.SetDefault("whatsapp.breaker_failures", 5)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.public_read", false)
	v.SetDefault("storage.presign_ttl_seconds", 600)
	v.SetDefault("storage.local_dir", "uploads")
	v.SetDefault("processing.max_concurrent", 32)
	v.SetDefault("processing.query_timeout_seconds", 120)
	v.SetDefault("processing.document_timeout_seconds", 300)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "legal-agent")
	v.SetDefault("rate_limit.driver", "memory")
	v.SetDefault("rate_limit.per_minute", 60)
}

// Load reads path (when it exists) and applies LEGAL_* environment overrides,
// e.g. LEGAL_MONGO_URI or LEGAL_WHATSAPP_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("LEGAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	derive(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func derive(cfg *Config) {
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSeconds) * time.Second
	cfg.ReadTimeout = time.Duration(cfg.App.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.App.WriteTimeoutSeconds) * time.Second
	cfg.QueryTimeout = time.Duration(cfg.Processing.QueryTimeoutSeconds) * time.Second
	cfg.DocumentTimeout = time.Duration(cfg.Processing.DocumentTimeoutSeconds) * time.Second
	cfg.PresignTTL = time.Duration(cfg.Storage.PresignTTL) * time.Second
	cfg.RetryMaxElapsed = time.Duration(cfg.WhatsApp.RetryMaxSeconds) * time.Second
}

func validate(cfg *Config) error {
	if cfg.App.Port == 0 {
		return errors.New("app.port missing or invalid")
	}
	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri missing")
	}
	if cfg.Mongo.Database == "" {
		return errors.New("mongo.database missing")
	}

	switch cfg.Cache.Driver {
	case "file":
		if cfg.Cache.Dir == "" {
			return errors.New("cache.dir missing")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr required for redis cache")
		}
	default:
		return errors.New("invalid cache.driver (use file or redis)")
	}

	switch cfg.Events.Driver {
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			return errors.New("kafka.brokers and kafka.topic required for kafka events")
		}
	case "nats":
		if cfg.NATS.URL == "" {
			return errors.New("nats.url required for nats events")
		}
	case "none", "":
	default:
		return errors.New("invalid events.driver (use kafka, nats or none)")
	}

	switch cfg.WhatsApp.Mode {
	case "live":
		if cfg.WhatsApp.Token == "" || cfg.WhatsApp.PhoneNumberID == "" {
			return errors.New("whatsapp.token and whatsapp.phone_number_id required in live mode")
		}
	case "simulated":
	default:
		return errors.New("invalid whatsapp.mode (use live or simulated)")
	}

	switch cfg.Storage.Driver {
	case "s3":
		if cfg.Storage.Bucket == "" || cfg.Storage.Region == "" {
			return errors.New("storage.bucket and storage.region required for s3")
		}
	case "local":
		if cfg.Storage.LocalDir == "" {
			return errors.New("storage.local_dir missing")
		}
	default:
		return errors.New("invalid storage.driver (use s3 or local)")
	}

	if cfg.RateLimit.Driver == "redis" && cfg.Redis.Addr == "" {
		return errors.New("redis.addr required for redis rate limiting")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret missing")
	}
	return nil
}
