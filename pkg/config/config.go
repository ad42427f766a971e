package config

import (
	"os"
	"strconv"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// 慢查询阈值（毫秒），0 表示使用默认值
	SlowQueryMS int `yaml:"slow_query_ms"`
	// 连接池大小，0 表示使用默认值
	MaxConns int `yaml:"max_conns"`
	MinConns int `yaml:"min_conns"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// envString 环境变量非空时覆盖
func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envInt 无法解析的值被忽略
func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// OverrideDBFromEnv DB_HOST / DB_PORT / DB_USER / DB_PASSWORD / DB_NAME / DB_SSLMODE / DB_MAX_CONNS
func OverrideDBFromEnv(cfg *DBConfig) {
	envString(&cfg.Host, "DB_HOST")
	envInt(&cfg.Port, "DB_PORT")
	envString(&cfg.User, "DB_USER")
	envString(&cfg.Password, "DB_PASSWORD")
	envString(&cfg.Name, "DB_NAME")
	envString(&cfg.SSLMode, "DB_SSLMODE")
	envInt(&cfg.MaxConns, "DB_MAX_CONNS")
}

func OverrideMQFromEnv(cfg *MQConfig) {
	envString(&cfg.URL, "MQ_URL")
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	envString(&cfg.Addr, "REDIS_ADDR")
	envString(&cfg.Password, "REDIS_PASSWORD")
	envInt(&cfg.DB, "REDIS_DB")
}

func OverrideJWTFromEnv(cfg *JWTConfig) {
	envString(&cfg.Secret, "JWT_SECRET")
	envInt(&cfg.TTLHours, "JWT_TTL_HOURS")
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	envString(&cfg.Port, "SERVER_PORT")
}
