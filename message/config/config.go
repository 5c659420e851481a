package config

import (
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/gin-contrib/cors"
)

type Config struct {
	Port int `env:"DOCENT_PORT" envDefault:"10010"`
	// pebble | postgres
	Store       string `env:"DOCENT_STORE" envDefault:"pebble"`
	PebblePath  string `env:"DOCENT_PEBBLE_PATH" envDefault:"data/messages"`
	PostgresDSN string `env:"DOCENT_POSTGRES_DSN"`
	// 为空则不接缓存
	RedisAddr     string `env:"DOCENT_REDIS_ADDR"`
	RedisPassword string `env:"DOCENT_REDIS_PASSWORD"`
	// 用户目录服务根地址，为空则会话列表只用消息里带的昵称
	DirectoryURL string `env:"DOCENT_USER_DIRECTORY_URL"`
	// 为空则不启用鉴权
	JWTSecret    string   `env:"DOCENT_JWT_SECRET"`
	AllowOrigins []string `env:"DOCENT_ALLOW_ORIGINS" envDefault:"http://localhost:8080" envSeparator:","`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr 返回监听地址
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) CorsConfig() cors.Config {
	return cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}
}
