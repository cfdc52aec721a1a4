package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const connectTimeout = 3 * time.Second

type RedisConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	Password  string `json:"password" mapstructure:"password"`
	DB        int    `json:"db" mapstructure:"db"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
}

type RedisSentinelConfig struct {
	SentinelHost     string `json:"sentinel_host" mapstructure:"sentinel_host"`
	SentinelPort     int    `json:"sentinel_port" mapstructure:"sentinel_port"`
	SentinelUsername string `json:"sentinel_username" mapstructure:"sentinel_username"`
	Password         string `json:"password" mapstructure:"password"`
	MasterName       string `json:"master_name" mapstructure:"master_name"`
	Namespace        string `json:"namespace" mapstructure:"namespace"`
}

// NewRedisClient connects to a single redis instance and verifies the connection with a PING
func NewRedisClient(config *RedisConfig) (*goredis.Client, error) {
	if config.Host == "" || config.Port <= 0 {
		return nil, fmt.Errorf("invalid redis config: host and port are required")
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	slog.Debug("Connecting to redis", "address", addr, "db", config.DB)

	client := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: connectTimeout,
	})

	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to redis", "address", addr)
	return client, nil
}

// NewRedisSentinelClient connects to the master announced by a redis sentinel
func NewRedisSentinelClient(config *RedisSentinelConfig) (*goredis.Client, error) {
	if config.MasterName == "" {
		return nil, fmt.Errorf("invalid redis sentinel config: master name is required")
	}
	if config.SentinelHost == "" || config.SentinelPort <= 0 {
		return nil, fmt.Errorf("invalid redis sentinel config: sentinel host and port are required")
	}

	sentinelAddr := fmt.Sprintf("%s:%d", config.SentinelHost, config.SentinelPort)
	slog.Debug("Connecting to redis through sentinel", "sentinel", sentinelAddr, "master", config.MasterName)

	client := goredis.NewFailoverClient(&goredis.FailoverOptions{
		MasterName:       config.MasterName,
		SentinelAddrs:    []string{sentinelAddr},
		SentinelUsername: config.SentinelUsername,
		Password:         config.Password,
		DialTimeout:      connectTimeout,
	})

	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis through Sentinel: %w", err)
	}

	slog.Info("Connected to redis through sentinel", "sentinel", sentinelAddr, "master", config.MasterName)
	return client, nil
}

func ping(client *goredis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
