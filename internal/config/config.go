package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Session    `yaml:"session"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	IMAP       `yaml:"imap"`
	Listener   `yaml:"listener"`
	RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:5000"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env-default:"localhost:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type Session struct {
	Secret string        `yaml:"secret" env:"SESSION_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env-default:"168h"`
}

type IMAP struct {
	Host    string        `yaml:"host" env-required:"true"`
	Port    int           `yaml:"port" env-default:"993"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type Listener struct {
	BaseURL string        `yaml:"base_url" env-default:"http://127.0.0.1:5001"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env-default:""`
	QueueName string `yaml:"queue_name" env-default:"tenant_events"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
