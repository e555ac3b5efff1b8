package model

import "errors"

// Application-wide standard errors
var (
	// Resource errors
	ErrStoryNotFound   = errors.New("story not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("profile is missing required fields")

	// Narrative generation errors. These are generation-quality failures:
	// the stage fails the whole story instead of retrying.
	ErrAIGenerationFailed    = errors.New("ai text generation failed")
	ErrMalformedResponse     = errors.New("text backend returned unparsable content")
	ErrInvalidStoryStructure = errors.New("generated story has invalid structure")

	// Media generation errors. Transport-level failures are retried with
	// backoff inside the generative clients; exhaustion surfaces these.
	ErrImageGenerationFailed = errors.New("image generation failed")
	ErrNoImageProduced       = errors.New("image backend produced no image")
	ErrRateLimited           = errors.New("upstream rate limited")
	ErrSpeechSynthesisFailed = errors.New("speech synthesis failed")
	ErrAssetUploadFailed     = errors.New("asset upload failed")
)
