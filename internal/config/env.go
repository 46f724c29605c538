package config

import (
	"os"
	"strconv"
	"time"
)

// Getenv returns def when key is unset or empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GetenvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func GetenvBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func GetenvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// RedisAddr joins REDIS_HOST and REDIS_PORT, defaulting to localhost:6379.
func RedisAddr() string {
	return Getenv(ENV_KEY_REDIS_HOST, "localhost") + ":" + Getenv(ENV_KEY_REDIS_PORT, "6379")
}
