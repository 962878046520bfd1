// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	Name               string `yaml:"name"`
	Port               int    `yaml:"port"`
	Env                string `yaml:"env"`
	LogLevel           string `yaml:"logLevel"`
	FeeRate            string `yaml:"feeRate"`
	ReversalWindowDays int    `yaml:"reversalWindowDays"`
	DefaultPremiumDays int    `yaml:"defaultPremiumDays"`
}

type InfraConfig struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Jaeger JaegerConfig `yaml:"jaeger"`
	Nacos  NacosConfig  `yaml:"nacos"`
}

type MySQLConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

type RedisConfig struct {
	Addrs []string `yaml:"addrs"`
}

type KafkaConfig struct {
	Brokers             []string `yaml:"brokers"`
	EventsTopic         string   `yaml:"eventsTopic"`
	PaymentResultsTopic string   `yaml:"paymentResultsTopic"`
	DLTTopic            string   `yaml:"dltTopic"`
	GroupID             string   `yaml:"groupId"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

var currentConfig atomic.Pointer[Config]

// DefaultConfig 是本地开发环境的默认值
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:               "marketplace-service",
			Port:               8080,
			Env:                "dev",
			LogLevel:           "info",
			FeeRate:            "0.05",
			ReversalWindowDays: 30,
			DefaultPremiumDays: 30,
		},
		Infra: InfraConfig{
			MySQL: MySQLConfig{DSN: "root:root@tcp(localhost:3306)/partsmarket", MaxOpenConns: 20},
			Kafka: KafkaConfig{
				EventsTopic:         "marketplace.events",
				PaymentResultsTopic: "payment.results",
				DLTTopic:            "payment.results.dlt",
				GroupID:             "marketplace-payment-results",
			},
			Nacos: NacosConfig{Group: "DEFAULT_GROUP"},
		},
	}
}

// Init 读取 path (为空时取 CONFIG_PATH) 的 YAML，叠加环境变量后校验并发布为当前配置
func Init(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	currentConfig.Store(cfg)
	return cfg, nil
}

// Load 与 Init 相同，但不修改全局配置
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetCurrentConfig 在 Init 之前返回默认配置
func GetCurrentConfig() *Config {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	return DefaultConfig()
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("config: app.name is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.Errorf("config: invalid app.port %d", c.App.Port)
	}
	if c.App.ReversalWindowDays <= 0 {
		return errors.Errorf("config: app.reversalWindowDays must be positive, got %d", c.App.ReversalWindowDays)
	}
	if c.App.DefaultPremiumDays <= 0 {
		return errors.Errorf("config: app.defaultPremiumDays must be positive, got %d", c.App.DefaultPremiumDays)
	}
	if c.Infra.MySQL.DSN == "" {
		return errors.New("config: infra.mysql.dsn is required")
	}
	if c.Infra.Nacos.Enabled && c.Infra.Nacos.ServerAddrs == "" {
		return errors.New("config: infra.nacos.serverAddrs is required when nacos is enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.FeeRate, "PLATFORM_FEE_RATE")
	setString(&cfg.Infra.MySQL.DSN, "MYSQL_DSN")
	setList(&cfg.Infra.Redis.Addrs, "REDIS_ADDRS")
	setList(&cfg.Infra.Kafka.Brokers, "KAFKA_BROKERS")
	setString(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.ServerAddrs = v
		cfg.Infra.Nacos.Enabled = true
	}
	setString(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	setString(&cfg.Infra.Nacos.Group, "NACOS_GROUP")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}
