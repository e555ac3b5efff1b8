// Package worker contains the pipeline stages that take a story document
// from "generating" to "ready": narrative text, cover image, slide images
// and optional narration audio.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storybook-server/internal/model"
	"storybook-server/internal/prompts"
	"storybook-server/internal/repository"
	"storybook-server/internal/schemas"
	"storybook-server/internal/service"
	"storybook-server/internal/storage"
)

// NarrativeStage generates the story text, validates it, renders the cover
// and leaves the document at "cover_ready". Any failure marks the story
// failed; nothing downstream runs for a failed story.
type NarrativeStage struct {
	stories repository.StoryRepository
	ai      service.AIClient
	images  service.ImageClient
	assets  storage.AssetStore
	logger  *zap.Logger
}

func NewNarrativeStage(
	stories repository.StoryRepository,
	ai service.AIClient,
	images service.ImageClient,
	assets storage.AssetStore,
	logger *zap.Logger,
) *NarrativeStage {
	return &NarrativeStage{
		stories: stories,
		ai:      ai,
		images:  images,
		assets:  assets,
		logger:  logger,
	}
}

func (s *NarrativeStage) Run(ctx context.Context, storyID string, profile model.Profile) error {
	log := s.logger.With(zap.String("story_id", storyID))
	startTime := time.Now()

	story, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.Status != model.StatusGenerating {
		// A redelivered trigger or a concurrent run already moved the story
		// past this stage; regenerating would overwrite its content.
		log.Info("skipping narrative stage, story is not generating",
			zap.String("status", string(story.Status)),
		)
		return nil
	}

	err = s.run(ctx, storyID, profile, log)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		// The document is the source of truth for clients; record the
		// failure there even though the event will be acked.
		if failErr := s.stories.FailStory(ctx, storyID, err.Error()); failErr != nil {
			log.Error("failed to mark story failed", zap.Error(failErr))
		}
	}
	stageRunsTotal.With(prometheus.Labels{"stage": "narrative", "outcome": outcome}).Inc()
	stageDuration.With(prometheus.Labels{"stage": "narrative"}).Observe(time.Since(startTime).Seconds())
	return err
}

func (s *NarrativeStage) run(ctx context.Context, storyID string, profile model.Profile, log *zap.Logger) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	childName := prompts.SanitizeUserInput(profile.ChildName)
	companionName := prompts.SanitizeUserInput(profile.CompanionName)
	if childName == "" || companionName == "" {
		return fmt.Errorf("%w: name is empty after sanitization", model.ErrInvalidProfile)
	}

	prompt := prompts.BuildStoryPrompt(prompts.StoryPromptParams{
		AgeBand:       profile.AgeBand,
		CompanionType: profile.CompanionType,
		CompanionName: companionName,
		Values:        profile.Values,
		ChildName:     childName,
	})

	log.Info("generating story text", zap.String("age_band", string(profile.AgeBand)))
	raw, usage, err := s.ai.GenerateText(ctx, storyID, prompt, "", service.GenerationParams{})
	if err != nil {
		return err
	}
	log.Info("story text generated", zap.Int("total_tokens", usage.TotalTokens))

	story, err := schemas.ParseStoryResponse(raw)
	if err != nil {
		return err
	}

	// Publish the validated text before starting on images so readers can
	// already render the story.
	if err := s.stories.SetStatus(ctx, storyID, model.StatusTextReady); err != nil {
		return err
	}

	prepareSlides(story, profile.CompanionType, companionName, childName)

	coverPrompt := prompts.BuildCoverPrompt(prompts.CoverPromptParams{
		Title:         story.Title,
		CompanionType: profile.CompanionType,
		CompanionName: companionName,
		ChildName:     childName,
	})

	log.Info("generating cover image", zap.String("title", story.Title))
	coverData, err := s.images.GenerateImage(ctx, coverPrompt)
	if err != nil {
		return err
	}
	coverURL, err := s.assets.Upload(ctx, storyID, "cover.png", coverData, "image/png")
	if err != nil {
		return err
	}

	valuesReinforced := story.ValuesReinforced
	if len(valuesReinforced) == 0 {
		valuesReinforced = profile.Values
	}

	fields := map[string]interface{}{
		"title":              story.Title,
		"coverImageUrl":      coverURL,
		"coverPrompt":        coverPrompt,
		"companionDna":       prompts.CompanionDNA[profile.CompanionType],
		"slides":             story.Slides,
		"branchSlides":       story.BranchSlides,
		"choicePointSlideId": story.ChoicePointSlideID,
		"choices":            story.Choices,
		"valuesReinforced":   valuesReinforced,
		"status":             string(model.StatusCoverReady),
		"imagesGenerated":    0,
		"totalImages":        story.TotalSlides(),
		"generatedAt":        time.Now().UTC(),
	}
	if err := s.stories.UpdateStory(ctx, storyID, fields); err != nil {
		return err
	}

	log.Info("narrative stage complete",
		zap.Int("total_slides", story.TotalSlides()),
		zap.String("cover_url", coverURL),
	)
	return nil
}

// prepareSlides stamps image prompts, pending media statuses and the choice
// point marker onto the validated slides. Key frames (sequence boundaries and
// the choice point) get the fully detailed rendering instruction.
func prepareSlides(story *model.GeneratedStory, companionType model.CompanionType, companionName, childName string) {
	markChoicePoint(story)

	stamp := func(slides []model.Slide) {
		for i := range slides {
			slide := &slides[i]
			isKeyFrame := i == 0 || i == len(slides)-1 || slide.IsChoicePoint
			slide.ImagePrompt = prompts.BuildSlideImagePrompt(prompts.SlideImagePromptParams{
				SceneDescription: sceneDescription(slide),
				CompanionType:    companionType,
				CompanionName:    companionName,
				ChildName:        childName,
				IsKeyFrame:       isKeyFrame,
			})
			slide.ImageStatus = model.MediaPending
		}
	}
	stamp(story.Slides)
	stamp(story.BranchSlides.A)
	stamp(story.BranchSlides.B)
}

func markChoicePoint(story *model.GeneratedStory) {
	for i := range story.Slides {
		if story.Slides[i].ID == story.ChoicePointSlideID {
			story.Slides[i].IsChoicePoint = true
			choices := story.Choices
			story.Slides[i].Choices = &choices
			return
		}
	}
}

// sceneDescription prefers the model's dedicated illustration description and
// falls back to the slide text when the model omitted it.
func sceneDescription(slide *model.Slide) string {
	if slide.ImageDescription != "" {
		return slide.ImageDescription
	}
	return slide.Text
}
