package config

import "time"

type ClientConfig interface {
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

type Client struct{}

var _ ClientConfig = Client{}

func (Client) GetRequestTimeout() time.Duration {
	return GetDurationEnv("REQUEST_TIMEOUT", 30*time.Second)
}

// GetRefreshTimeout bounds the token refresh round-trip so a hung refresh
// cannot block the original request forever.
func (Client) GetRefreshTimeout() time.Duration {
	return GetDurationEnv("REFRESH_TIMEOUT", 10*time.Second)
}
