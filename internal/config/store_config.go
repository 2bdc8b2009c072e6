package config

import (
	"os"
	"path/filepath"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type StoreConfig interface {
	GetSessionStore() string
	GetSessionFile() string
	GetSessionKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetSessionStore() string {
	return GetEnv("SESSION_STORE", StoreFile)
}

func (Store) GetSessionFile() string {
	if path := os.Getenv("SESSION_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".blogctl", "session.json")
	}
	return filepath.Join(home, ".blogctl", "session.json")
}

// GetSessionKey is an optional passphrase; when set the session file is
// encrypted at rest.
func (Store) GetSessionKey() string {
	return GetEnv("SESSION_KEY", "")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetIntEnv("REDIS_DB", 0)
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "blogctl:")
}
