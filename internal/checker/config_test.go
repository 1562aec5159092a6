package checker

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_WithDefaultsIsIdempotent(t *testing.T) {
	for _, cfg := range []Config{{}, {Timeout: -1}, {Timeout: time.Second, Concurrency: 2}} {
		once := cfg.withDefaults()
		assert.Equal(t, once, once.withDefaults())
	}
}

func TestConfig_NegativeTimeoutReachesFetcher(t *testing.T) {
	cfg := Config{Timeout: -1}

	assert.Zero(t, NewFetcher(cfg, nil).timeout)
	assert.Zero(t, NewRunner(cfg, nil).fetcher.timeout)
	assert.Zero(t, NewRunnerWithTransport(cfg, http.DefaultTransport, nil).fetcher.timeout)
}

func TestConfig_ZeroTimeoutUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewRunner(Config{}, nil).fetcher.timeout)
}
