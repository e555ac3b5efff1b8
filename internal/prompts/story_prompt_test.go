package prompts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storybook-server/internal/model"
	"storybook-server/internal/prompts"
)

func testStoryParams() prompts.StoryPromptParams {
	return prompts.StoryPromptParams{
		AgeBand:       model.AgeBand6to8,
		CompanionType: model.CompanionFox,
		CompanionName: "Rusty",
		Values:        []model.Value{model.ValueKindness, model.ValueCourage},
		ChildName:     "Mia",
	}
}

func TestBuildStoryPrompt(t *testing.T) {
	prompt := prompts.BuildStoryPrompt(testStoryParams())

	t.Run("interpolates personalization", func(t *testing.T) {
		assert.Contains(t, prompt, "Child's name: Mia")
		assert.Contains(t, prompt, "Rusty the fox")
		assert.Contains(t, prompt, "Kindness, Courage")
		assert.Contains(t, prompt, "6-8 years old")
	})

	t.Run("includes age band guidelines", func(t *testing.T) {
		assert.Contains(t, prompt, "Total story length: 10-12 slides")
	})

	t.Run("includes companion personality", func(t *testing.T) {
		assert.Contains(t, prompt, "adventurous, clever, curious explorer")
	})

	t.Run("includes JSON output contract", func(t *testing.T) {
		assert.Contains(t, prompt, `"choicePointSlideId"`)
		assert.Contains(t, prompt, `"branchSlides"`)
		assert.Contains(t, prompt, "Output ONLY valid JSON")
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, prompt, prompts.BuildStoryPrompt(testStoryParams()))
	})

	t.Run("percent literal survives formatting", func(t *testing.T) {
		assert.Contains(t, prompt, "40% through the story")
		assert.NotContains(t, prompt, "%!")
	})
}

func TestBuildSlideImagePrompt(t *testing.T) {
	params := prompts.SlideImagePromptParams{
		SceneDescription: "Mia and Rusty cross a wooden bridge at sunset.",
		CompanionType:    model.CompanionLion,
		CompanionName:    "Leo",
		ChildName:        "Mia",
	}

	t.Run("includes scene and companion identity", func(t *testing.T) {
		prompt := prompts.BuildSlideImagePrompt(params)
		assert.Contains(t, prompt, "wooden bridge at sunset")
		assert.Contains(t, prompt, "Leo (the lion)")
		assert.Contains(t, prompt, prompts.CompanionDNA[model.CompanionLion])
		assert.Contains(t, prompt, "No text or words in the image")
	})

	t.Run("key frame selects detailed rendering", func(t *testing.T) {
		params.IsKeyFrame = true
		prompt := prompts.BuildSlideImagePrompt(params)
		assert.Contains(t, prompt, "Detailed, fully rendered scene")
		assert.NotContains(t, prompt, "Softer, more atmospheric rendering")
	})

	t.Run("non-key frame selects atmospheric rendering", func(t *testing.T) {
		params.IsKeyFrame = false
		prompt := prompts.BuildSlideImagePrompt(params)
		assert.Contains(t, prompt, "Softer, more atmospheric rendering")
	})
}

func TestBuildCoverPrompt(t *testing.T) {
	prompt := prompts.BuildCoverPrompt(prompts.CoverPromptParams{
		Title:         "The Brave Little Explorer",
		CompanionType: model.CompanionLamb,
		CompanionName: "Wooly",
		ChildName:     "Sam",
	})

	assert.Contains(t, prompt, `"The Brave Little Explorer"`)
	assert.Contains(t, prompt, "Wooly (the lamb)")
	assert.Contains(t, prompt, prompts.CompanionDNA[model.CompanionLamb])
	assert.Contains(t, prompt, "Portrait orientation suitable for book cover")
}

func TestCompanionDNACoversAllTypes(t *testing.T) {
	for _, ct := range []model.CompanionType{
		model.CompanionLamb, model.CompanionLion, model.CompanionCat, model.CompanionFox,
	} {
		assert.NotEmpty(t, prompts.CompanionDNA[ct], "missing DNA for %s", ct)
	}
}
