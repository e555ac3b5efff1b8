package messaging

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storybook-server/internal/model"
	"storybook-server/internal/repository"
	"storybook-server/internal/worker"
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storybook_story_events_total",
		Help: "Total number of story events processed by outcome.",
	},
	[]string{"event", "outcome"},
)

// StageRunner is one pipeline stage as seen by the consumer.
type StageRunner interface {
	Run(ctx context.Context, storyID string, profile model.Profile) error
}

// Consumer dispatches story lifecycle events to pipeline stages. Decisions
// about acking follow one rule: ack anything whose failure is already
// recorded on the story document or that can never succeed; nack only
// transient infrastructure errors so the broker redelivers.
type Consumer struct {
	stories   repository.StoryRepository
	profiles  repository.ProfileRepository
	guard     worker.StageGuard
	publisher Publisher
	narrative StageRunner
	images    StageRunner
	narration StageRunner // nil when narration is disabled
	logger    *zap.Logger
}

func NewConsumer(
	stories repository.StoryRepository,
	profiles repository.ProfileRepository,
	guard worker.StageGuard,
	publisher Publisher,
	narrative StageRunner,
	images StageRunner,
	narration StageRunner,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		stories:   stories,
		profiles:  profiles,
		guard:     guard,
		publisher: publisher,
		narrative: narrative,
		images:    images,
		narration: narration,
		logger:    logger,
	}
}

// HandleDelivery processes one delivery. It returns true when the message
// should be acked and false when it should be nacked with requeue.
func (c *Consumer) HandleDelivery(ctx context.Context, msg amqp091.Delivery) bool {
	var payload StoryEventPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.Error("dropping malformed story event", zap.Error(err))
		eventsTotal.With(prometheus.Labels{"event": "unknown", "outcome": "malformed"}).Inc()
		return true
	}

	log := c.logger.With(
		zap.String("event", string(payload.Event)),
		zap.String("story_id", payload.StoryID),
		zap.String("event_id", payload.EventID),
	)

	story, err := c.stories.GetStory(ctx, payload.StoryID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			log.Warn("dropping event for missing story")
			eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "missing_story"}).Inc()
			return true
		}
		log.Error("failed to load story, requeueing event", zap.Error(err))
		return false
	}

	switch payload.Event {
	case EventStoryCreated:
		return c.handleStoryCreated(ctx, payload, story, log)
	case EventCoverReady:
		return c.handleCoverReady(ctx, payload, story, log)
	default:
		log.Warn("dropping event of unknown type")
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "unknown_type"}).Inc()
		return true
	}
}

func (c *Consumer) handleStoryCreated(ctx context.Context, payload StoryEventPayload, story *model.StoryDocument, log *zap.Logger) bool {
	if story.Type != model.StoryTypePersonalized || story.Status != model.StatusGenerating {
		log.Info("skipping story outside pipeline scope",
			zap.String("type", string(story.Type)),
			zap.String("status", string(story.Status)),
		)
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "skipped"}).Inc()
		return true
	}

	profile, ok := c.resolveProfile(ctx, payload, story, log)
	if !ok {
		return true
	}

	if !c.claimStage(ctx, payload.StoryID, "narrative", log) {
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "duplicate"}).Inc()
		return true
	}

	if err := c.narrative.Run(ctx, payload.StoryID, profile); err != nil {
		// The stage already marked the story failed; release the claim so
		// a re-created story or manual retry can run again.
		log.Error("narrative stage failed", zap.Error(err))
		c.releaseStage(ctx, payload.StoryID, "narrative", log)
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "stage_failed"}).Inc()
		return true
	}

	eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "success"}).Inc()

	if err := c.publisher.PublishStoryEvent(ctx, EventCoverReady, payload.StoryID, payload.ProfileID); err != nil {
		// Without the hand-off event the story would stall at cover_ready,
		// so run the next stage in-process instead.
		log.Error("failed to publish cover_ready event, running image stage inline", zap.Error(err))
		return c.handleCoverReadyStages(ctx, payload, log)
	}
	return true
}

func (c *Consumer) handleCoverReady(ctx context.Context, payload StoryEventPayload, story *model.StoryDocument, log *zap.Logger) bool {
	if story.Status != model.StatusCoverReady {
		log.Info("skipping image stage, story is not cover_ready",
			zap.String("status", string(story.Status)),
		)
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "skipped"}).Inc()
		return true
	}
	return c.handleCoverReadyStages(ctx, payload, log)
}

func (c *Consumer) handleCoverReadyStages(ctx context.Context, payload StoryEventPayload, log *zap.Logger) bool {
	if !c.claimStage(ctx, payload.StoryID, "images", log) {
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "duplicate"}).Inc()
		return true
	}

	if err := c.images.Run(ctx, payload.StoryID, model.Profile{}); err != nil {
		// Image stage errors are infrastructure failures (the stage never
		// fails on individual slides), so requeue for another attempt.
		log.Error("image stage failed, requeueing event", zap.Error(err))
		c.releaseStage(ctx, payload.StoryID, "images", log)
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "stage_failed"}).Inc()
		return false
	}

	eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "success"}).Inc()

	if c.narration != nil {
		if !c.claimStage(ctx, payload.StoryID, "narration", log) {
			return true
		}
		if err := c.narration.Run(ctx, payload.StoryID, model.Profile{}); err != nil {
			// Narration is additive; the story is already readable.
			log.Error("narration stage failed", zap.Error(err))
			c.releaseStage(ctx, payload.StoryID, "narration", log)
		}
	}
	return true
}

// resolveProfile loads the referenced profile, or assembles one from the
// attributes embedded on anonymous story documents. The second return value
// is false when the event should be acked without running the stage.
func (c *Consumer) resolveProfile(ctx context.Context, payload StoryEventPayload, story *model.StoryDocument, log *zap.Logger) (model.Profile, bool) {
	profileID := payload.ProfileID
	if profileID == "" {
		profileID = story.ProfileID
	}

	var profile model.Profile
	if profileID != "" {
		loaded, err := c.profiles.GetProfile(ctx, profileID)
		if err != nil {
			if errors.Is(err, model.ErrProfileNotFound) {
				c.failStory(ctx, payload.StoryID, "profile not found: "+profileID, log)
				eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "missing_profile"}).Inc()
				return model.Profile{}, false
			}
			log.Error("failed to load profile", zap.Error(err))
			c.failStory(ctx, payload.StoryID, "failed to load profile: "+err.Error(), log)
			eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "profile_error"}).Inc()
			return model.Profile{}, false
		}
		profile = *loaded
	} else {
		profile = model.Profile{
			ChildName:     story.ChildName,
			AgeBand:       story.AgeBand,
			CompanionType: story.CompanionType,
			CompanionName: story.CompanionName,
			Values:        story.Values,
		}
	}

	if err := profile.Validate(); err != nil {
		c.failStory(ctx, payload.StoryID, err.Error(), log)
		eventsTotal.With(prometheus.Labels{"event": string(payload.Event), "outcome": "invalid_profile"}).Inc()
		return model.Profile{}, false
	}
	return profile, true
}

// claimStage returns true when this process may run the stage. A guard
// backend error is logged but does not block the stage: the status
// precondition checks inside the stages keep a duplicate run harmless.
func (c *Consumer) claimStage(ctx context.Context, storyID, stage string, log *zap.Logger) bool {
	claimed, err := c.guard.Begin(ctx, storyID, stage)
	if err != nil {
		log.Warn("stage guard unavailable, proceeding without claim",
			zap.String("stage", stage),
			zap.Error(err),
		)
		return true
	}
	if !claimed {
		log.Info("stage already claimed, skipping", zap.String("stage", stage))
	}
	return claimed
}

func (c *Consumer) releaseStage(ctx context.Context, storyID, stage string, log *zap.Logger) {
	if err := c.guard.Release(ctx, storyID, stage); err != nil {
		log.Warn("failed to release stage claim",
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}

func (c *Consumer) failStory(ctx context.Context, storyID, cause string, log *zap.Logger) {
	if err := c.stories.FailStory(ctx, storyID, cause); err != nil {
		log.Error("failed to mark story failed", zap.Error(err))
	}
}
