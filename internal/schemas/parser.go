// Package schemas turns raw text-model output into a validated story
// structure. Nothing downstream operates on unvalidated data: either
// ParseStoryResponse returns a GeneratedStory that satisfies every structural
// invariant, or it returns ErrMalformedResponse / ErrInvalidStoryStructure.
package schemas

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"storybook-server/internal/model"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls the JSON payload out of a model response that may wrap it
// in prose or markdown. Preference order: fenced code block, first-to-last
// brace-delimited object, whole trimmed response.
func ExtractJSON(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseStoryResponse extracts, parses and validates a narrative response.
func ParseStoryResponse(raw string) (*model.GeneratedStory, error) {
	jsonText := ExtractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("%w: empty response", model.ErrMalformedResponse)
	}

	var story model.GeneratedStory
	if err := json.Unmarshal([]byte(jsonText), &story); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}

	if err := ValidateStoryStructure(&story); err != nil {
		return nil, err
	}
	return &story, nil
}

// ValidateStoryStructure checks the structural invariants of a parsed story:
// non-empty title, non-empty main path with unique ids, a choice point that
// references a real main slide, both choices labeled, and two non-empty
// branches with ids unique within their own sequence.
func ValidateStoryStructure(s *model.GeneratedStory) error {
	if strings.TrimSpace(s.Title) == "" {
		return structureErr("title is empty")
	}
	if len(s.Slides) == 0 {
		return structureErr("slides is empty")
	}

	mainIDs, err := collectIDs("slides", s.Slides)
	if err != nil {
		return err
	}
	if _, err := collectIDs("branchSlides.A", s.BranchSlides.A); err != nil {
		return err
	}
	if _, err := collectIDs("branchSlides.B", s.BranchSlides.B); err != nil {
		return err
	}

	if s.ChoicePointSlideID == "" {
		return structureErr("choicePointSlideId is empty")
	}
	if !mainIDs[s.ChoicePointSlideID] {
		return structureErr(fmt.Sprintf("choicePointSlideId %q does not match any slide", s.ChoicePointSlideID))
	}

	if s.Choices.A.Label == "" || s.Choices.A.Description == "" {
		return structureErr("choice A is missing label or description")
	}
	if s.Choices.B.Label == "" || s.Choices.B.Description == "" {
		return structureErr("choice B is missing label or description")
	}

	if len(s.BranchSlides.A) == 0 {
		return structureErr("branchSlides.A is empty")
	}
	if len(s.BranchSlides.B) == 0 {
		return structureErr("branchSlides.B is empty")
	}

	return nil
}

// collectIDs verifies every slide in a sequence has an id and text, and that
// ids are unique within the sequence. Ids need not be unique across
// sequences; lookups never cross sequence boundaries.
func collectIDs(sequence string, slides []model.Slide) (map[string]bool, error) {
	ids := make(map[string]bool, len(slides))
	for i, slide := range slides {
		if slide.ID == "" {
			return nil, structureErr(fmt.Sprintf("%s[%d] has no id", sequence, i))
		}
		if strings.TrimSpace(slide.Text) == "" {
			return nil, structureErr(fmt.Sprintf("%s[%d] (%s) has no text", sequence, i, slide.ID))
		}
		if ids[slide.ID] {
			return nil, structureErr(fmt.Sprintf("%s has duplicate id %q", sequence, slide.ID))
		}
		ids[slide.ID] = true
	}
	return ids, nil
}

func structureErr(detail string) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidStoryStructure, detail)
}
