package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
	"storybook-server/internal/service"
)

func imageTestConfig(serverURL string) *config.Config {
	return &config.Config{
		ImageServerURL:      serverURL,
		ImageTimeout:        2 * time.Second,
		ImageMaxAttempts:    3,
		ImageBaseRetryDelay: time.Millisecond,
		ImageRatio:          "2:3",
	}
}

func TestHTTPImageClient_GenerateImage(t *testing.T) {
	t.Run("success returns image bytes", func(t *testing.T) {
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/generate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte("png-data"))
		}))
		defer server.Close()

		client := service.NewImageClient(imageTestConfig(server.URL), zap.NewNop())
		data, err := client.GenerateImage(context.Background(), "a fox on a hill")

		require.NoError(t, err)
		assert.Equal(t, []byte("png-data"), data)
		assert.Equal(t, "a fox on a hill", gotBody["prompt"])
		assert.Equal(t, "2:3", gotBody["ratio"])
	})

	t.Run("retries after 429 and succeeds", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte("png-data"))
		}))
		defer server.Close()

		client := service.NewImageClient(imageTestConfig(server.URL), zap.NewNop())
		data, err := client.GenerateImage(context.Background(), "prompt")

		require.NoError(t, err)
		assert.Equal(t, []byte("png-data"), data)
		assert.Equal(t, 2, calls)
	})

	t.Run("exhausted retries wrap the generation error", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := service.NewImageClient(imageTestConfig(server.URL), zap.NewNop())
		_, err := client.GenerateImage(context.Background(), "prompt")

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrImageGenerationFailed)
		assert.Equal(t, 3, calls)
	})

	t.Run("empty body is no image produced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := service.NewImageClient(imageTestConfig(server.URL), zap.NewNop())
		_, err := client.GenerateImage(context.Background(), "prompt")

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrNoImageProduced)
	})
}
