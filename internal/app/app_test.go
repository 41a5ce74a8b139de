package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/scribe/internal/cache/memory"
	"github.com/prn-tf/scribe/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
			MaxBodySize:     1 << 20,
		},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", AutoMigrate: true},
		Redis:    config.RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 200 * time.Millisecond},
		Cache:    config.CacheConfig{Enabled: true, TTL: time.Minute},
		Auth: config.AuthConfig{
			JWTSecret:  "0123456789abcdef0123456789abcdef",
			TokenTTL:   time.Hour,
			Issuer:     "scribe",
			BcryptCost: 4,
		},
		Blog: config.BlogConfig{MinTitleLength: 1, MinBodyLength: 10, DefaultPageSize: 20, MaxPageSize: 100},
	}
}

func TestNew_ServesAPI(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Metrics)
	assert.IsType(t, &memory.Cache{}, a.Cache)

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/blog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_RedisFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Metrics.Enabled = true

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.Cache{}, a.Cache)
	assert.NotNil(t, a.Metrics)
}

func TestNew_CacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = false

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "mysql"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandler_AccessLogCarriesOneComponent(t *testing.T) {
	var buf bytes.Buffer
	a, err := New(context.Background(), testConfig(), zerolog.New(&buf))
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.Handler())
	resp, err := http.Get(srv.URL + "/api/blog")
	require.NoError(t, err)
	resp.Body.Close()
	// Close waits for the access log to be written.
	srv.Close()

	var found bool
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		line := sc.Bytes()
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] != "request" {
			continue
		}
		found = true
		assert.Equal(t, 1, bytes.Count(line, []byte(`"component"`)), string(line))
		assert.Equal(t, "router", entry["component"])
	}
	assert.True(t, found, "no access log line written")
}

type fakeDatabase struct{ err error }

func (f fakeDatabase) Ping(context.Context) error   { return f.err }
func (f fakeDatabase) Health(context.Context) error { return f.err }
func (f fakeDatabase) Close() error                 { return nil }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthCheck(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name    string
		check   healthCheck
		wantErr bool
	}{
		{"database only", healthCheck{db: fakeDatabase{}}, false},
		{"database down", healthCheck{db: fakeDatabase{err: errDown}, cache: fakePinger{}}, true},
		{"cache up", healthCheck{db: fakeDatabase{}, cache: fakePinger{}}, false},
		{"cache down", healthCheck{db: fakeDatabase{}, cache: fakePinger{err: errDown}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check.Health(context.Background())
			if tt.wantErr {
				require.ErrorIs(t, err, errDown)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHealth_SkipsInProcessCache(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.health().cache)

	a.Cache = nil
	assert.Nil(t, a.health().cache)
}
