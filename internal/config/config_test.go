package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:3000/review", cfg.ReviewFormURL)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, "mandi_reviews", cfg.PostgresDB)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.OTELEnabled)
	assert.Equal(t, 1.0, cfg.OTELSampleRate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REVIEW_HTTP_PORT", "9191")
	t.Setenv("REVIEW_FORM_URL", "https://reviews.mandi.example/form")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://mandi.example,https://admin.mandi.example")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, "https://reviews.mandi.example/form", cfg.ReviewFormURL)
	assert.Equal(t, []string{"https://mandi.example", "https://admin.mandi.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("REVIEW_HTTP_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingFormURL(t *testing.T) {
	t.Setenv("REVIEW_FORM_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SampleRateOutOfRange(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "1.5")

	_, err := Load()
	assert.Error(t, err)
}
