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

// slideSequence pairs one slide list with the document field path it is
// persisted under and the object-name prefix that keeps its assets apart
// from the other sequences (slide ids are only unique per sequence).
type slideSequence struct {
	name       string
	fieldPath  string
	pathPrefix string
	slides     []model.Slide
}

// SlideImageStage renders an illustration for every slide across the main
// path and both branches. Slides are processed in small concurrent batches;
// one slide failing marks only that slide, never the story. The stage always
// finishes at "ready".
type SlideImageStage struct {
	stories   repository.StoryRepository
	images    service.ImageClient
	assets    storage.AssetStore
	batchSize int
	logger    *zap.Logger
}

func NewSlideImageStage(
	stories repository.StoryRepository,
	images service.ImageClient,
	assets storage.AssetStore,
	batchSize int,
	logger *zap.Logger,
) *SlideImageStage {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SlideImageStage{
		stories:   stories,
		images:    images,
		assets:    assets,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *SlideImageStage) Run(ctx context.Context, storyID string, _ model.Profile) error {
	log := s.logger.With(zap.String("story_id", storyID))
	startTime := time.Now()

	story, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.Status != model.StatusCoverReady {
		log.Info("skipping slide image stage, story is not cover_ready",
			zap.String("status", string(story.Status)),
		)
		return nil
	}

	sequences := []slideSequence{
		{name: "main", fieldPath: "slides", slides: story.Slides},
		{name: "branch_a", fieldPath: "branchSlides.A", pathPrefix: "branch-a-", slides: story.BranchSlides.A},
		{name: "branch_b", fieldPath: "branchSlides.B", pathPrefix: "branch-b-", slides: story.BranchSlides.B},
	}

	attempted := story.ImagesGenerated
	for _, seq := range sequences {
		n, err := s.processSequence(ctx, storyID, seq, attempted, log)
		if err != nil {
			stageRunsTotal.With(prometheus.Labels{"stage": "images", "outcome": "failure"}).Inc()
			return err
		}
		attempted = n
	}

	if err := s.stories.SetStatus(ctx, storyID, model.StatusReady); err != nil {
		return err
	}

	stageRunsTotal.With(prometheus.Labels{"stage": "images", "outcome": "success"}).Inc()
	stageDuration.With(prometheus.Labels{"stage": "images"}).Observe(time.Since(startTime).Seconds())
	log.Info("slide image stage complete",
		zap.Int("images_attempted", attempted),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// processSequence renders one slide list batch by batch, persisting progress
// after every batch so readers see images appear incrementally. Slides that
// already reached a terminal image state (a resumed run) are neither re-rendered
// nor re-counted. Returns the cumulative attempted count. The returned error is
// always an infrastructure error (persisting progress failed), never a
// per-slide generation failure.
func (s *SlideImageStage) processSequence(ctx context.Context, storyID string, seq slideSequence, attempted int, log *zap.Logger) (int, error) {
	for start := 0; start < len(seq.slides); start += s.batchSize {
		end := start + s.batchSize
		if end > len(seq.slides) {
			end = len(seq.slides)
		}
		batch := seq.slides[start:end]

		var wg sync.WaitGroup
		rendered := 0
		for i := range batch {
			// Slides a previous invocation already finished were counted
			// when their batch was persisted; re-attempting them would push
			// imagesGenerated past totalImages.
			if batch[i].ImageStatus == model.MediaReady || batch[i].ImageStatus == model.MediaFailed {
				continue
			}
			rendered++
			wg.Add(1)
			go func(slide *model.Slide) {
				defer wg.Done()
				s.renderSlide(ctx, storyID, seq.pathPrefix, slide, log)
			}(&batch[i])
		}
		wg.Wait()

		if rendered == 0 {
			continue
		}

		attempted += rendered
		fields := map[string]interface{}{
			seq.fieldPath:     seq.slides,
			"imagesGenerated": attempted,
		}
		if err := s.stories.UpdateStory(ctx, storyID, fields); err != nil {
			return attempted, err
		}
		log.Info("slide image batch persisted",
			zap.String("sequence", seq.name),
			zap.Int("batch_size", len(batch)),
			zap.Int("images_attempted", attempted),
		)
	}
	return attempted, nil
}

func (s *SlideImageStage) renderSlide(ctx context.Context, storyID, pathPrefix string, slide *model.Slide, log *zap.Logger) {
	slide.ImageStatus = model.MediaGenerating

	prompt := slide.ImagePrompt
	if prompt == "" {
		prompt = sceneDescription(slide)
	}

	data, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		log.Warn("slide image generation failed",
			zap.String("slide_id", slide.ID),
			zap.Error(err),
		)
		slide.ImageStatus = model.MediaFailed
		slideImagesTotal.With(prometheus.Labels{"outcome": "failure"}).Inc()
		return
	}

	url, err := s.assets.Upload(ctx, storyID, "slides/"+pathPrefix+slide.ID+".png", data, "image/png")
	if err != nil {
		log.Warn("slide image upload failed",
			zap.String("slide_id", slide.ID),
			zap.Error(err),
		)
		slide.ImageStatus = model.MediaFailed
		slideImagesTotal.With(prometheus.Labels{"outcome": "failure"}).Inc()
		return
	}

	slide.ImageURL = url
	slide.ImageStatus = model.MediaReady
	slideImagesTotal.With(prometheus.Labels{"outcome": "success"}).Inc()
}
