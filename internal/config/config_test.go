package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-server/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with required values", func(t *testing.T) {
		t.Setenv("FIREBASE_PROJECT_ID", "test-project")
		t.Setenv("STORAGE_BUCKET", "test-bucket")
		t.Setenv("AI_API_KEY", "secret-key")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "development", cfg.AppEnv)
		assert.Equal(t, "story_events_queue", cfg.StoryEventQueue)
		assert.Equal(t, 3, cfg.ImageBatchSize)
		assert.Equal(t, "2:3", cfg.ImageRatio)
		assert.Equal(t, "en-US-Studio-O", cfg.TTSVoice)
		assert.InDelta(t, 0.9, cfg.TTSSpeakingRate, 0.001)
		assert.False(t, cfg.NarrationEnabled)
		assert.Equal(t, "secret-key", cfg.AIAPIKey)
	})

	t.Run("missing project id fails", func(t *testing.T) {
		t.Setenv("FIREBASE_PROJECT_ID", "")
		t.Setenv("STORAGE_BUCKET", "test-bucket")
		t.Setenv("AI_API_KEY", "secret-key")

		_, err := config.Load()
		assert.ErrorContains(t, err, "FIREBASE_PROJECT_ID")
	})

	t.Run("missing api key fails", func(t *testing.T) {
		t.Setenv("FIREBASE_PROJECT_ID", "test-project")
		t.Setenv("STORAGE_BUCKET", "test-bucket")
		t.Setenv("AI_API_KEY", "")

		_, err := config.Load()
		assert.ErrorContains(t, err, "ai_api_key")
	})
}

func TestReadSecret(t *testing.T) {
	t.Run("falls back to environment variable", func(t *testing.T) {
		t.Setenv("MY_TEST_SECRET", " value \n")
		v, err := config.ReadSecret("my_test_secret")
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	})

	t.Run("missing secret errors", func(t *testing.T) {
		_, err := config.ReadSecret("definitely_missing_secret")
		assert.Error(t, err)
	})
}
