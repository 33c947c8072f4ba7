package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DBSource      string
	RedisAddr     string
	Port          string
	Env           string
	QueueStream   string
	PollTick      time.Duration
	BatchDeadline time.Duration
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	stream := os.Getenv("QUEUE_STREAM")
	if stream == "" {
		stream = "scratch"
	}

	tick, err := durationEnv("POLL_TICK", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}

	deadline, err := durationEnv("BATCH_DEADLINE", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBSource:      dbSource,
		RedisAddr:     redisAddr,
		Port:          port,
		Env:           env,
		QueueStream:   stream,
		PollTick:      tick,
		BatchDeadline: deadline,
	}, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
