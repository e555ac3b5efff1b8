// Package repository reads and writes story and profile documents.
package repository

import (
	"context"

	"storybook-server/internal/model"
)

// StoryRepository is the shared story document store the pipeline stages
// coordinate through.
type StoryRepository interface {
	// GetStory returns model.ErrStoryNotFound when no document exists.
	GetStory(ctx context.Context, storyID string) (*model.StoryDocument, error)

	// UpdateStory applies a partial update. Keys are field paths in dot
	// notation (e.g. "branchSlides.A"); untouched fields are preserved.
	// The document's updatedAt timestamp is refreshed on every call.
	UpdateStory(ctx context.Context, storyID string, fields map[string]interface{}) error

	// SetStatus transitions the document's lifecycle status.
	SetStatus(ctx context.Context, storyID string, status model.StoryStatus) error

	// FailStory marks the document failed and records the cause.
	FailStory(ctx context.Context, storyID string, cause string) error
}

// ProfileRepository resolves child profiles referenced by stories.
type ProfileRepository interface {
	// GetProfile returns model.ErrProfileNotFound when no document exists.
	GetProfile(ctx context.Context, profileID string) (*model.Profile, error)
}
