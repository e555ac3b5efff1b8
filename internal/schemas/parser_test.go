package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-server/internal/model"
	"storybook-server/internal/schemas"
)

func validStoryJSON(t *testing.T, mutate func(m map[string]interface{})) string {
	t.Helper()
	story := map[string]interface{}{
		"title": "Mia and the Lost Lamb",
		"slides": []map[string]interface{}{
			{"id": "slide-1", "text": "Mia met Wooly by the old olive tree.", "imageDescription": "A girl meets a lamb under an olive tree at dawn."},
			{"id": "slide-2", "text": "They heard a faint cry from the hills.", "imageDescription": "The pair listening toward misty hills."},
			{"id": "slide-3", "text": "Which way should they go?", "imageDescription": "A fork in the path."},
		},
		"choicePointSlideId": "slide-3",
		"choices": map[string]interface{}{
			"A": map[string]interface{}{"label": "Climb the hill", "description": "Take the steep path toward the cry"},
			"B": map[string]interface{}{"label": "Follow the stream", "description": "Take the gentle path along the water"},
		},
		"branchSlides": map[string]interface{}{
			"A": []map[string]interface{}{
				{"id": "branch-a-1", "text": "The hill was steep but Mia kept going.", "imageDescription": "Climbing a sunny hillside."},
				{"id": "branch-a-2", "text": "At the top they found the little lamb.", "imageDescription": "A joyful reunion on the hilltop."},
			},
			"B": []map[string]interface{}{
				{"id": "branch-b-1", "text": "The stream sang as they walked.", "imageDescription": "Walking along a sparkling stream."},
				{"id": "branch-b-2", "text": "Around the bend, the lamb waited safely.", "imageDescription": "A lamb resting by the water."},
			},
		},
	}
	if mutate != nil {
		mutate(story)
	}
	b, err := json.Marshal(story)
	require.NoError(t, err)
	return string(b)
}

func TestExtractJSON(t *testing.T) {
	t.Run("fenced json block", func(t *testing.T) {
		raw := "Here is the story:\n```json\n{\"title\": \"x\"}\n```\nEnjoy!"
		assert.Equal(t, `{"title": "x"}`, schemas.ExtractJSON(raw))
	})

	t.Run("fenced block without language tag", func(t *testing.T) {
		raw := "```\n{\"title\": \"x\"}\n```"
		assert.Equal(t, `{"title": "x"}`, schemas.ExtractJSON(raw))
	})

	t.Run("braces inside prose", func(t *testing.T) {
		raw := "Sure! {\"title\": \"x\"} hope you like it"
		assert.Equal(t, `{"title": "x"}`, schemas.ExtractJSON(raw))
	})

	t.Run("no json falls back to trimmed text", func(t *testing.T) {
		assert.Equal(t, "just words", schemas.ExtractJSON("  just words \n"))
	})
}

func TestParseStoryResponse(t *testing.T) {
	t.Run("valid raw json", func(t *testing.T) {
		story, err := schemas.ParseStoryResponse(validStoryJSON(t, nil))
		require.NoError(t, err)
		assert.Equal(t, "Mia and the Lost Lamb", story.Title)
		assert.Len(t, story.Slides, 3)
		assert.Equal(t, "slide-3", story.ChoicePointSlideID)
		assert.Equal(t, 7, story.TotalSlides())
	})

	t.Run("valid json inside fenced block", func(t *testing.T) {
		raw := "```json\n" + validStoryJSON(t, nil) + "\n```"
		story, err := schemas.ParseStoryResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, "Climb the hill", story.Choices.A.Label)
	})

	t.Run("prose only is malformed", func(t *testing.T) {
		_, err := schemas.ParseStoryResponse("Once upon a time there was no JSON at all.")
		assert.ErrorIs(t, err, model.ErrMalformedResponse)
	})

	t.Run("empty response is malformed", func(t *testing.T) {
		_, err := schemas.ParseStoryResponse("   ")
		assert.ErrorIs(t, err, model.ErrMalformedResponse)
	})

	t.Run("truncated json is malformed", func(t *testing.T) {
		raw := validStoryJSON(t, nil)
		_, err := schemas.ParseStoryResponse(raw[:len(raw)/2] + "}")
		assert.ErrorIs(t, err, model.ErrMalformedResponse)
	})
}

func TestValidateStoryStructure(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m map[string]interface{})
	}{
		{"empty title", func(m map[string]interface{}) { m["title"] = "  " }},
		{"no slides", func(m map[string]interface{}) { m["slides"] = []map[string]interface{}{} }},
		{"slide missing id", func(m map[string]interface{}) {
			m["slides"].([]map[string]interface{})[1]["id"] = ""
		}},
		{"slide missing text", func(m map[string]interface{}) {
			m["slides"].([]map[string]interface{})[1]["text"] = " "
		}},
		{"duplicate slide id", func(m map[string]interface{}) {
			m["slides"].([]map[string]interface{})[1]["id"] = "slide-1"
		}},
		{"choice point references unknown slide", func(m map[string]interface{}) {
			m["choicePointSlideId"] = "slide-99"
		}},
		{"choice point references branch slide", func(m map[string]interface{}) {
			m["choicePointSlideId"] = "branch-a-1"
		}},
		{"missing choice point", func(m map[string]interface{}) {
			m["choicePointSlideId"] = ""
		}},
		{"choice A missing label", func(m map[string]interface{}) {
			m["choices"].(map[string]interface{})["A"].(map[string]interface{})["label"] = ""
		}},
		{"choice B missing description", func(m map[string]interface{}) {
			m["choices"].(map[string]interface{})["B"].(map[string]interface{})["description"] = ""
		}},
		{"empty branch A", func(m map[string]interface{}) {
			m["branchSlides"].(map[string]interface{})["A"] = []map[string]interface{}{}
		}},
		{"empty branch B", func(m map[string]interface{}) {
			m["branchSlides"].(map[string]interface{})["B"] = []map[string]interface{}{}
		}},
		{"duplicate id within branch", func(m map[string]interface{}) {
			m["branchSlides"].(map[string]interface{})["A"].([]map[string]interface{})[1]["id"] = "branch-a-1"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schemas.ParseStoryResponse(validStoryJSON(t, tc.mutate))
			assert.ErrorIs(t, err, model.ErrInvalidStoryStructure)
		})
	}

	t.Run("same id in different sequences is allowed", func(t *testing.T) {
		raw := validStoryJSON(t, func(m map[string]interface{}) {
			m["branchSlides"].(map[string]interface{})["B"].([]map[string]interface{})[0]["id"] = "branch-a-1"
		})
		_, err := schemas.ParseStoryResponse(raw)
		assert.NoError(t, err)
	})
}
