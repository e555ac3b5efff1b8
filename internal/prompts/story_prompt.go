package prompts

import (
	"fmt"
	"strings"

	"storybook-server/internal/model"
)

// StoryPromptParams are the inputs to the narrative prompt builder. The
// builder is pure: the same params always produce the same prompt text.
type StoryPromptParams struct {
	AgeBand       model.AgeBand
	CompanionType model.CompanionType
	CompanionName string
	Values        []model.Value
	ChildName     string
}

// ageBandGuidelines selects vocabulary, pacing and length rules per age band.
var ageBandGuidelines = map[model.AgeBand]string{
	model.AgeBand3to5: `- Use very simple vocabulary (sight words, short sentences)
- Maximum 2-3 sentences per slide
- Focus on concrete, tangible concepts
- Emphasize repetition and rhythm
- Include gentle humor and playful elements
- Keep moral lessons implicit through actions
- Total story length: 8-10 slides`,
	model.AgeBand6to8: `- Use grade-appropriate vocabulary with occasional new words
- 3-4 sentences per slide
- Can introduce abstract concepts with concrete examples
- Include mild conflict that resolves positively
- Characters can face simple moral dilemmas
- More complex narrative structure
- Total story length: 10-12 slides`,
	model.AgeBand9to11: `- Rich vocabulary with context clues for new words
- 4-5 sentences per slide
- Can handle nuanced moral situations
- Characters experience growth and change
- Include thought-provoking questions
- Deeper exploration of Biblical themes
- Total story length: 12-14 slides`,
}

// companionPersonalities describes each companion's fixed narrative character.
var companionPersonalities = map[model.CompanionType]string{
	model.CompanionLamb: "gentle, curious, sometimes timid but grows in confidence through friendship",
	model.CompanionLion: "brave, protective, learns that true strength comes from kindness",
	model.CompanionCat:  "wise, patient, observant, loves learning and shares knowledge gently with quiet confidence",
	model.CompanionFox:  "adventurous, clever, curious explorer who finds creative solutions and loves discovery",
}

// BuildStoryPrompt assembles the narrative prompt, including the strict JSON
// output contract the response is validated against. Callers are expected to
// sanitize free-text inputs (child and companion names) first.
func BuildStoryPrompt(p StoryPromptParams) string {
	valueStrs := make([]string, len(p.Values))
	for i, v := range p.Values {
		valueStrs[i] = string(v)
	}

	return fmt.Sprintf(`You are a master children's storyteller creating a personalized Bible-inspired storybook.

## STORY PARAMETERS
- Child's name: %[1]s
- Age group: %[2]s years old
- Companion animal: %[3]s the %[4]s
- Companion personality: %[5]s
- Core values to teach: %[6]s

## AGE-APPROPRIATE GUIDELINES
%[7]s

## STORY STRUCTURE
Create an engaging, interactive story with ONE choice point that branches into two different paths.

The story should:
1. Begin with %[1]s meeting or being with %[3]s
2. Introduce a gentle challenge or adventure inspired by Biblical themes
3. At approximately 40%% through the story, present a meaningful CHOICE POINT
4. Each choice leads to a different but equally valuable lesson
5. Both branches should positively reinforce the selected values
6. End with a heartwarming conclusion that reinforces the friendship

## CHOICE POINT GUIDELINES
- The choice should be age-appropriate and meaningful
- Neither choice is "wrong" - both lead to positive outcomes
- Each branch teaches the values in slightly different ways
- Label choices clearly as "Choice A" and "Choice B"

## OUTPUT FORMAT
Return a valid JSON object with this exact structure:

{
  "title": "Story title here",
  "slides": [
    {
      "id": "slide-1",
      "text": "Story text for this slide",
      "imageDescription": "Detailed description of the illustration for this slide"
    }
  ],
  "choicePointSlideId": "slide-X",
  "choices": {
    "A": {
      "label": "Short label for choice A (max 4 words)",
      "description": "Brief description of what happens if child chooses this"
    },
    "B": {
      "label": "Short label for choice B (max 4 words)",
      "description": "Brief description of what happens if child chooses this"
    }
  },
  "branchSlides": {
    "A": [
      {
        "id": "branch-a-1",
        "text": "Story continuation for branch A",
        "imageDescription": "Detailed description of the illustration"
      }
    ],
    "B": [
      {
        "id": "branch-b-1",
        "text": "Story continuation for branch B",
        "imageDescription": "Detailed description of the illustration"
      }
    ]
  }
}

## IMAGE DESCRIPTION GUIDELINES
For each slide's imageDescription, provide:
- The scene setting (location, time of day, weather)
- Character positions and expressions
- Key objects or elements in the scene
- The emotional tone/mood
- Keep descriptions child-friendly and visually appealing

## IMPORTANT RULES
1. Output ONLY valid JSON - no markdown, no code blocks, no explanations
2. Ensure all slide IDs are unique
3. The choicePointSlideId must match an existing slide ID
4. Each branch should have 3-5 slides depending on age group
5. Keep %[3]s present and active throughout the story
6. Reference the child by name (%[1]s) naturally throughout
7. Make the story feel personal and magical

Generate the complete story now:`,
		p.ChildName,
		string(p.AgeBand),
		p.CompanionName,
		string(p.CompanionType),
		companionPersonalities[p.CompanionType],
		strings.Join(valueStrs, ", "),
		ageBandGuidelines[p.AgeBand],
	)
}
