package config

import (
	"fmt"
	"strings"
	"time"

	"tasktracker/pkg/config"
	"tasktracker/pkg/otel"
)

// NotificationConfig 通知投递与清理参数
type NotificationConfig struct {
	// 已读通知保留天数
	RetentionDays      int           `yaml:"retention_days"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
	DispatchInterval   time.Duration `yaml:"dispatch_interval"`
	MaxDeliveryRetries int           `yaml:"max_delivery_retries"`
	// Redis 去重键的过期时间
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

type Config struct {
	DB           config.DBConfig     `yaml:"db"`
	MQ           config.MQConfig     `yaml:"mq"`
	Redis        config.RedisConfig  `yaml:"redis"`
	JWT          config.JWTConfig    `yaml:"jwt"`
	Server       config.ServerConfig `yaml:"server"`
	OTel         otel.Config         `yaml:"otel"`
	Notification NotificationConfig  `yaml:"notification"`
	// 角色名 -> 权限名列表，由 ttadmin seed-roles 同步到数据库
	Roles map[string][]string `yaml:"roles"`
}

// Load 按 CONFIG_ENV / CONFIG_DIR 加载配置
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

// LoadFrom 加载指定环境的配置，环境变量优先级最高
func LoadFrom(env, dir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)

	cfg.applyDefaults()
	if cfg.JWT.Secret == "" || strings.HasPrefix(cfg.JWT.Secret, "${") {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = 24
	}
	if c.Notification.RetentionDays <= 0 {
		c.Notification.RetentionDays = 30
	}
	if c.Notification.CleanupInterval <= 0 {
		c.Notification.CleanupInterval = 24 * time.Hour
	}
	if c.Notification.DispatchInterval <= 0 {
		c.Notification.DispatchInterval = 2 * time.Second
	}
	if c.Notification.MaxDeliveryRetries <= 0 {
		c.Notification.MaxDeliveryRetries = 3
	}
	if c.Notification.DedupTTL <= 0 {
		c.Notification.DedupTTL = 24 * time.Hour
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "tasktracker"
	}
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TTLHours) * time.Hour
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Notification.RetentionDays) * 24 * time.Hour
}
