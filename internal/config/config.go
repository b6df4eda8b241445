package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Ingest   IngestConfig
	MQTT     MQTTConfig
	LoRa     LoRaConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Mode           string // debug, release, test
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Driver       string // sqlite, postgres
	SQLitePath   string
	PostgresDSN  string
	MaxOpenConns int
	MaxIdleConns int
}

type LogConfig struct {
	Level  string
	Format string // text, json
}

type IngestConfig struct {
	// EnforcePropertyScope rejects reports whose entity belongs to a
	// property other than the one the token resolved to.
	EnforcePropertyScope bool
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	APIToken string
	QoS      byte
}

type LoRaConfig struct {
	SimulatorSeed int64
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	// FARM_SERVER_PORT overrides server.port, and so on
	v.SetEnvPrefix("farm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.request_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "./farm.db")
	v.SetDefault("database.postgres_dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("ingest.enforce_property_scope", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "farm-telemetry")
	v.SetDefault("mqtt.topic", "farm/lora/uplink/#")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.api_token", "")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("lora.simulator_seed", 0)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			Mode:           v.GetString("server.mode"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("database.driver")),
			SQLitePath:   v.GetString("database.sqlite_path"),
			PostgresDSN:  v.GetString("database.postgres_dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Ingest: IngestConfig{
			EnforcePropertyScope: v.GetBool("ingest.enforce_property_scope"),
		},
		MQTT: MQTTConfig{
			Enabled:  v.GetBool("mqtt.enabled"),
			Broker:   v.GetString("mqtt.broker"),
			ClientID: v.GetString("mqtt.client_id"),
			Topic:    v.GetString("mqtt.topic"),
			Username: v.GetString("mqtt.username"),
			Password: v.GetString("mqtt.password"),
			APIToken: v.GetString("mqtt.api_token"),
			QoS:      byte(v.GetUint("mqtt.qos")),
		},
		LoRa: LoRaConfig{
			SimulatorSeed: v.GetInt64("lora.simulator_seed"),
		},
	}
}
