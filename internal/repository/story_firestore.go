package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storybook-server/internal/model"
)

const (
	storiesCollection  = "stories"
	profilesCollection = "profiles"
)

type firestoreStoryRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStoryRepository builds the Firestore-backed story store.
func NewFirestoreStoryRepository(client *firestore.Client, logger *zap.Logger) StoryRepository {
	return &firestoreStoryRepository{client: client, logger: logger}
}

func (r *firestoreStoryRepository) GetStory(ctx context.Context, storyID string) (*model.StoryDocument, error) {
	doc, err := r.client.Collection(storiesCollection).Doc(storyID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", model.ErrStoryNotFound, storyID)
		}
		return nil, fmt.Errorf("failed to get story %s: %w", storyID, err)
	}

	var story model.StoryDocument
	if err := doc.DataTo(&story); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", storyID, err)
	}
	story.ID = doc.Ref.ID
	return &story, nil
}

func (r *firestoreStoryRepository) UpdateStory(ctx context.Context, storyID string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	if _, err := r.client.Collection(storiesCollection).Doc(storyID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", model.ErrStoryNotFound, storyID)
		}
		return fmt.Errorf("failed to update story %s: %w", storyID, err)
	}
	return nil
}

func (r *firestoreStoryRepository) SetStatus(ctx context.Context, storyID string, s model.StoryStatus) error {
	r.logger.Info("story status transition",
		zap.String("story_id", storyID),
		zap.String("status", string(s)),
	)
	return r.UpdateStory(ctx, storyID, map[string]interface{}{
		"status": string(s),
	})
}

func (r *firestoreStoryRepository) FailStory(ctx context.Context, storyID string, cause string) error {
	r.logger.Warn("marking story failed",
		zap.String("story_id", storyID),
		zap.String("cause", cause),
	)
	return r.UpdateStory(ctx, storyID, map[string]interface{}{
		"status": string(model.StatusFailed),
		"error":  cause,
	})
}

type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository builds the Firestore-backed profile store.
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	return &firestoreProfileRepository{client: client}
}

func (r *firestoreProfileRepository) GetProfile(ctx context.Context, profileID string) (*model.Profile, error) {
	doc, err := r.client.Collection(profilesCollection).Doc(profileID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", model.ErrProfileNotFound, profileID)
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", profileID, err)
	}

	var profile model.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", profileID, err)
	}
	profile.ID = doc.Ref.ID
	return &profile, nil
}
