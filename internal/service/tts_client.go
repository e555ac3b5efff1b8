package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
	"storybook-server/internal/retry"
)

var ttsRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storybook_tts_requests_total",
		Help: "Total number of speech synthesis requests.",
	},
	[]string{"status"},
)

// SpeechClient turns slide text into narration audio.
type SpeechClient interface {
	// Synthesize returns MP3 audio for the given text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type googleSpeechClient struct {
	svc          *texttospeech.Service
	languageCode string
	voice        string
	speakingRate float64
	policy       retry.Policy
	logger       *zap.Logger
}

// NewSpeechClient builds a Cloud Text-to-Speech client using application
// default credentials.
func NewSpeechClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SpeechClient, error) {
	svc, err := texttospeech.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech service: %w", err)
	}
	logger.Info("speech client created",
		zap.String("voice", cfg.TTSVoice),
		zap.Float64("speaking_rate", cfg.TTSSpeakingRate),
	)
	return &googleSpeechClient{
		svc:          svc,
		languageCode: cfg.TTSLanguageCode,
		voice:        cfg.TTSVoice,
		speakingRate: cfg.TTSSpeakingRate,
		policy: retry.Policy{
			MaxAttempts: cfg.TTSMaxAttempts,
			Backoff:     retry.Exponential(cfg.TTSBaseRetryDelay),
		},
		logger: logger,
	}, nil
}

func (c *googleSpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is empty", model.ErrSpeechSynthesisFailed)
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         c.voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  c.speakingRate,
		},
	}

	var audio []byte
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.svc.Text.Synthesize(req).Context(ctx).Do()
		if err != nil {
			ttsRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
			c.logger.Warn("speech synthesis attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		if resp.AudioContent == "" {
			ttsRequestsTotal.With(prometheus.Labels{"status": "error_empty"}).Inc()
			return fmt.Errorf("empty audio content")
		}
		decoded, err := base64.StdEncoding.DecodeString(resp.AudioContent)
		if err != nil {
			ttsRequestsTotal.With(prometheus.Labels{"status": "error_decode"}).Inc()
			return fmt.Errorf("failed to decode audio content: %w", err)
		}
		ttsRequestsTotal.With(prometheus.Labels{"status": "success"}).Inc()
		audio = decoded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSpeechSynthesisFailed, err)
	}
	return audio, nil
}
