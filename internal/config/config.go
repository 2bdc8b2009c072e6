package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type mainConfig struct {
	EnvVars
	Client
	Store
}

// New loads an optional .env file from the working directory and returns
// the environment backed configuration. Real environment variables win.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
