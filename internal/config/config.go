// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек клиента и dev-бэкенда
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	AccountAPIURL           string `yaml:"account_api_url"`
	BillingAPIURL           string `yaml:"billing_api_url"`
	SearchWebhookURL        string `yaml:"search_webhook_url"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	Identity                `yaml:"identity"`
	ActivityBus             `yaml:"activity_bus"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
}

// Identity структура для подключения к провайдеру идентификации
type Identity struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// ActivityBus структура для выбора реализации шины активности
type ActivityBus struct {
	// Backend — memory, redis или rabbitmq; недоступный брокер
	// деградирует до заглушки
	Backend  string        `yaml:"backend" env-default:"memory"`
	AMQPURL  string        `yaml:"amqp_url"`
	Debounce time.Duration `yaml:"debounce" env-default:"400ms"`
}

// HTTPServer структура для настройки dev-бэкенда
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// JWTToken структура для работы с jwt-токеном dev-бэкенда
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH,
// и завершает процесс при любой ошибке загрузки
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"AccountAPIURL: %s\n"+
			"BillingAPIURL: %s\n"+
			"SearchWebhookURL: %s\n"+
			"StorageConnectionString: %s\n"+
			"Identity:\n"+
			"  URL: %s\n"+
			"ActivityBus:\n"+
			"  Backend: %s\n"+
			"  Debounce: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.AccountAPIURL,
		c.BillingAPIURL,
		c.SearchWebhookURL,
		c.StorageConnectionString,
		c.Identity.URL,
		c.Backend,
		c.Debounce,
		c.Address,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
	)
}
