package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL     = "https://abc123.supabase.example.com"
	testOwnerID     = "keeper-7"
	testMapboxToken = "pk.test-token"
)

// setRequired sets the two env vars without which Load refuses to run.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REMOTE_BASE_URL", testBaseURL)
	t.Setenv("RELAY_OWNER_ID", testOwnerID)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "spool", cfg.SpoolDir)
	assert.Equal(t, 500, cfg.SpoolMaxPending)

	assert.Equal(t, testBaseURL, cfg.RemoteBaseURL)
	assert.Equal(t, testOwnerID, cfg.OwnerID)
	assert.Empty(t, cfg.RemoteAPIKey)
	assert.Equal(t, "hazard_reports", cfg.RemoteTable)
	assert.Equal(t, "hazard-photos", cfg.RemoteBucket)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)

	assert.Equal(t, 30*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)

	assert.Equal(t, 1600, cfg.PhotoMaxDimension)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)

	assert.False(t, cfg.KafkaEnabled())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "accepted-hazard-reports", cfg.KafkaMirrorTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SPOOL_DIR", "/var/lib/hazard-relay/spool")
	t.Setenv("SPOOL_MAX_PENDING", "50")
	t.Setenv("REMOTE_API_KEY", "anon-key")
	t.Setenv("REMOTE_TABLE", "reports")
	t.Setenv("REMOTE_BUCKET", "report-photos")
	t.Setenv("REMOTE_TIMEOUT", "3s")
	t.Setenv("PROBE_INTERVAL", "10s")
	t.Setenv("PROBE_TIMEOUT", "2s")
	t.Setenv("PHOTO_MAX_DIMENSION", "1024")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://localhost:4173")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_MIRROR_TOPIC", "custom-mirror")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/hazard-relay/spool", cfg.SpoolDir)
	assert.Equal(t, 50, cfg.SpoolMaxPending)
	assert.Equal(t, "anon-key", cfg.RemoteAPIKey)
	assert.Equal(t, "reports", cfg.RemoteTable)
	assert.Equal(t, "report-photos", cfg.RemoteBucket)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 10*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 1024, cfg.PhotoMaxDimension)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:4173"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-mirror", cfg.KafkaMirrorTopic)
}

func TestLoad_TrimsBaseURLSlash(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", testBaseURL+"/")
	t.Setenv("RELAY_OWNER_ID", testOwnerID)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, testBaseURL, cfg.RemoteBaseURL)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv("RELAY_OWNER_ID", testOwnerID)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMOTE_BASE_URL")
}

func TestLoad_MissingOwnerID(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", testBaseURL)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELAY_OWNER_ID")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeProbeInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("PROBE_INTERVAL", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROBE_INTERVAL")
}

func TestLoad_InvalidSpoolMaxPending(t *testing.T) {
	setRequired(t)
	t.Setenv("SPOOL_MAX_PENDING", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPOOL_MAX_PENDING")
}

func TestLoad_InvalidPhotoMaxDimension(t *testing.T) {
	setRequired(t)
	t.Setenv("PHOTO_MAX_DIMENSION", "banana")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PHOTO_MAX_DIMENSION")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
