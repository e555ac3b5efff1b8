package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storybook-server/internal/model"
	"storybook-server/internal/repository"
	"storybook-server/internal/service"
	"storybook-server/internal/storage"
)

// NarrationStage synthesizes an audio clip per slide. It runs after the
// story is already readable, so it never changes the story status or the
// image progress counter; a failed clip marks only that slide's audio.
type NarrationStage struct {
	stories   repository.StoryRepository
	speech    service.SpeechClient
	assets    storage.AssetStore
	batchSize int
	logger    *zap.Logger
}

func NewNarrationStage(
	stories repository.StoryRepository,
	speech service.SpeechClient,
	assets storage.AssetStore,
	batchSize int,
	logger *zap.Logger,
) *NarrationStage {
	if batchSize < 1 {
		batchSize = 1
	}
	return &NarrationStage{
		stories:   stories,
		speech:    speech,
		assets:    assets,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *NarrationStage) Run(ctx context.Context, storyID string, _ model.Profile) error {
	log := s.logger.With(zap.String("story_id", storyID))
	startTime := time.Now()

	story, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.Status != model.StatusReady {
		log.Info("skipping narration stage, story is not ready",
			zap.String("status", string(story.Status)),
		)
		return nil
	}

	sequences := []slideSequence{
		{name: "main", fieldPath: "slides", slides: story.Slides},
		{name: "branch_a", fieldPath: "branchSlides.A", pathPrefix: "branch-a-", slides: story.BranchSlides.A},
		{name: "branch_b", fieldPath: "branchSlides.B", pathPrefix: "branch-b-", slides: story.BranchSlides.B},
	}

	for _, seq := range sequences {
		if err := s.processSequence(ctx, storyID, seq, log); err != nil {
			stageRunsTotal.With(prometheus.Labels{"stage": "narration", "outcome": "failure"}).Inc()
			return err
		}
	}

	stageRunsTotal.With(prometheus.Labels{"stage": "narration", "outcome": "success"}).Inc()
	stageDuration.With(prometheus.Labels{"stage": "narration"}).Observe(time.Since(startTime).Seconds())
	log.Info("narration stage complete", zap.Duration("duration", time.Since(startTime)))
	return nil
}

func (s *NarrationStage) processSequence(ctx context.Context, storyID string, seq slideSequence, log *zap.Logger) error {
	for start := 0; start < len(seq.slides); start += s.batchSize {
		end := start + s.batchSize
		if end > len(seq.slides) {
			end = len(seq.slides)
		}
		batch := seq.slides[start:end]

		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(slide *model.Slide) {
				defer wg.Done()
				s.narrateSlide(ctx, storyID, seq.pathPrefix, slide, log)
			}(&batch[i])
		}
		wg.Wait()

		fields := map[string]interface{}{
			seq.fieldPath: seq.slides,
		}
		if err := s.stories.UpdateStory(ctx, storyID, fields); err != nil {
			return err
		}
		log.Info("narration batch persisted",
			zap.String("sequence", seq.name),
			zap.Int("batch_size", len(batch)),
		)
	}
	return nil
}

func (s *NarrationStage) narrateSlide(ctx context.Context, storyID, pathPrefix string, slide *model.Slide, log *zap.Logger) {
	slide.AudioStatus = model.MediaGenerating

	audio, err := s.speech.Synthesize(ctx, slide.Text)
	if err != nil {
		log.Warn("slide narration failed",
			zap.String("slide_id", slide.ID),
			zap.Error(err),
		)
		slide.AudioStatus = model.MediaFailed
		return
	}

	url, err := s.assets.Upload(ctx, storyID, "audio/"+pathPrefix+slide.ID+".mp3", audio, "audio/mpeg")
	if err != nil {
		log.Warn("slide narration upload failed",
			zap.String("slide_id", slide.ID),
			zap.Error(err),
		)
		slide.AudioStatus = model.MediaFailed
		return
	}

	slide.AudioURL = url
	slide.AudioStatus = model.MediaReady
}
