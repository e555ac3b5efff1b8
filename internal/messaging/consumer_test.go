package messaging_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/messaging"
	"storybook-server/internal/mocks"
	"storybook-server/internal/model"
)

const testStoryID = "story-123"

// mockStage records stage invocations for dispatch assertions.
type mockStage struct {
	mock.Mock
}

func (m *mockStage) Run(ctx context.Context, storyID string, profile model.Profile) error {
	return m.Called(ctx, storyID, profile).Error(0)
}

type consumerFixture struct {
	stories   *mocks.MockStoryRepository
	profiles  *mocks.MockProfileRepository
	guard     *mocks.MockStageGuard
	publisher *mocks.MockPublisher
	narrative *mockStage
	images    *mockStage
	consumer  *messaging.Consumer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	f := &consumerFixture{
		stories:   mocks.NewMockStoryRepository(t),
		profiles:  mocks.NewMockProfileRepository(t),
		guard:     mocks.NewMockStageGuard(t),
		publisher: mocks.NewMockPublisher(t),
		narrative: &mockStage{},
		images:    &mockStage{},
	}
	f.narrative.Test(t)
	f.images.Test(t)
	f.consumer = messaging.NewConsumer(
		f.stories, f.profiles, f.guard, f.publisher,
		f.narrative, f.images, nil, zap.NewNop(),
	)
	return f
}

func delivery(t *testing.T, event messaging.StoryEvent, profileID string) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(messaging.StoryEventPayload{
		EventID:   "evt-1",
		Event:     event,
		StoryID:   testStoryID,
		ProfileID: profileID,
	})
	require.NoError(t, err)
	return amqp091.Delivery{Body: body}
}

func generatingStory() *model.StoryDocument {
	return &model.StoryDocument{
		ID:        testStoryID,
		ProfileID: "profile-1",
		Type:      model.StoryTypePersonalized,
		Status:    model.StatusGenerating,
	}
}

func TestConsumer_HandleDelivery(t *testing.T) {
	profile := model.Profile{
		ChildName:     "Mia",
		AgeBand:       model.AgeBand6to8,
		CompanionType: model.CompanionFox,
		CompanionName: "Rusty",
		Values:        []model.Value{model.ValueKindness},
	}

	t.Run("malformed body is dropped", func(t *testing.T) {
		f := newConsumerFixture(t)
		ack := f.consumer.HandleDelivery(context.Background(), amqp091.Delivery{Body: []byte("not json")})
		assert.True(t, ack)
		f.stories.AssertNotCalled(t, "GetStory", mock.Anything, mock.Anything)
	})

	t.Run("missing story is dropped", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(nil, model.ErrStoryNotFound).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, ""))
		assert.True(t, ack)
	})

	t.Run("transient store error is requeued", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).
			Return(nil, assert.AnError).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, ""))
		assert.False(t, ack)
	})

	t.Run("premade story is skipped", func(t *testing.T) {
		f := newConsumerFixture(t)
		story := generatingStory()
		story.Type = model.StoryTypePremade
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(story, nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, ""))
		assert.True(t, ack)
		f.narrative.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("created event runs narrative and hands off", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(generatingStory(), nil).Once()
		f.profiles.On("GetProfile", mock.Anything, "profile-1").Return(&profile, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "narrative").Return(true, nil).Once()
		f.narrative.On("Run", mock.Anything, testStoryID, profile).Return(nil).Once()
		f.publisher.On("PublishStoryEvent", mock.Anything, messaging.EventCoverReady, testStoryID, "profile-1").Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, "profile-1"))
		assert.True(t, ack)
		f.narrative.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("embedded profile is used when no profile id", func(t *testing.T) {
		f := newConsumerFixture(t)
		story := generatingStory()
		story.ProfileID = ""
		story.ChildName = profile.ChildName
		story.AgeBand = profile.AgeBand
		story.CompanionType = profile.CompanionType
		story.CompanionName = profile.CompanionName
		story.Values = profile.Values
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(story, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "narrative").Return(true, nil).Once()
		f.narrative.On("Run", mock.Anything, testStoryID, profile).Return(nil).Once()
		f.publisher.On("PublishStoryEvent", mock.Anything, messaging.EventCoverReady, testStoryID, "").Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, ""))
		assert.True(t, ack)
		f.profiles.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("missing profile fails the story", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(generatingStory(), nil).Once()
		f.profiles.On("GetProfile", mock.Anything, "profile-1").Return(nil, model.ErrProfileNotFound).Once()
		f.stories.On("FailStory", mock.Anything, testStoryID, mock.AnythingOfType("string")).Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, "profile-1"))
		assert.True(t, ack)
		f.narrative.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate claim skips the stage", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(generatingStory(), nil).Once()
		f.profiles.On("GetProfile", mock.Anything, "profile-1").Return(&profile, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "narrative").Return(false, nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, "profile-1"))
		assert.True(t, ack)
		f.narrative.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("guard outage does not block the stage", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(generatingStory(), nil).Once()
		f.profiles.On("GetProfile", mock.Anything, "profile-1").Return(&profile, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "narrative").Return(false, assert.AnError).Once()
		f.narrative.On("Run", mock.Anything, testStoryID, profile).Return(nil).Once()
		f.publisher.On("PublishStoryEvent", mock.Anything, messaging.EventCoverReady, testStoryID, "profile-1").Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, "profile-1"))
		assert.True(t, ack)
		f.narrative.AssertExpectations(t)
	})

	t.Run("failed narrative is acked and claim released", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(generatingStory(), nil).Once()
		f.profiles.On("GetProfile", mock.Anything, "profile-1").Return(&profile, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "narrative").Return(true, nil).Once()
		f.narrative.On("Run", mock.Anything, testStoryID, profile).Return(model.ErrMalformedResponse).Once()
		f.guard.On("Release", mock.Anything, testStoryID, "narrative").Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventStoryCreated, "profile-1"))
		assert.True(t, ack)
		f.publisher.AssertNotCalled(t, "PublishStoryEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cover_ready event runs image stage", func(t *testing.T) {
		f := newConsumerFixture(t)
		story := generatingStory()
		story.Status = model.StatusCoverReady
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(story, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "images").Return(true, nil).Once()
		f.images.On("Run", mock.Anything, testStoryID, model.Profile{}).Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventCoverReady, ""))
		assert.True(t, ack)
		f.images.AssertExpectations(t)
	})

	t.Run("cover_ready with wrong status is skipped", func(t *testing.T) {
		f := newConsumerFixture(t)
		story := generatingStory()
		story.Status = model.StatusReady
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(story, nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventCoverReady, ""))
		assert.True(t, ack)
		f.images.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("image stage failure is requeued", func(t *testing.T) {
		f := newConsumerFixture(t)
		story := generatingStory()
		story.Status = model.StatusCoverReady
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(story, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "images").Return(true, nil).Once()
		f.images.On("Run", mock.Anything, testStoryID, model.Profile{}).Return(assert.AnError).Once()
		f.guard.On("Release", mock.Anything, testStoryID, "images").Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventCoverReady, ""))
		assert.False(t, ack)
	})

	t.Run("narration runs after images when enabled", func(t *testing.T) {
		f := newConsumerFixture(t)
		narration := &mockStage{}
		narration.Test(t)
		f.consumer = messaging.NewConsumer(
			f.stories, f.profiles, f.guard, f.publisher,
			f.narrative, f.images, narration, zap.NewNop(),
		)

		story := generatingStory()
		story.Status = model.StatusCoverReady
		f.stories.On("GetStory", mock.Anything, testStoryID).Return(story, nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "images").Return(true, nil).Once()
		f.images.On("Run", mock.Anything, testStoryID, model.Profile{}).Return(nil).Once()
		f.guard.On("Begin", mock.Anything, testStoryID, "narration").Return(true, nil).Once()
		narration.On("Run", mock.Anything, testStoryID, model.Profile{}).Return(nil).Once()

		ack := f.consumer.HandleDelivery(context.Background(), delivery(t, messaging.EventCoverReady, ""))
		assert.True(t, ack)
		narration.AssertExpectations(t)
	})
}
