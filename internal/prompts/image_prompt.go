package prompts

import (
	"fmt"

	"storybook-server/internal/model"
)

// CompanionDNA holds the fixed visual identity block for each companion type.
// The block is reused verbatim in every image prompt for the same companion so
// the character renders consistently across all illustrations of a story.
var CompanionDNA = map[model.CompanionType]string{
	model.CompanionLamb: `A small, fluffy white lamb with soft woolly fur. Round gentle eyes with long eyelashes.
Small pink nose and tiny cloven hooves. Wears a blue bow ribbon around neck.
Expression is sweet and innocent. Semi-anthropomorphic, standing upright.
Friendly mascot style, soft watercolor aesthetic.`,

	model.CompanionLion: `A young, friendly lion cub with a small golden mane just starting to grow.
Warm amber eyes that sparkle with curiosity and kindness. Soft golden-tan fur.
Wears a cute blue vest with buttons. Paws are slightly oversized giving an endearing appearance.
Semi-anthropomorphic, standing upright. Gentle and approachable, never scary.`,

	model.CompanionCat: `An orange tabby cat with warm ginger fur and cream chest.
Large expressive eyes behind round scholarly glasses. Wears a cozy red scarf.
Holds a scroll or book, suggesting wisdom and learning.
Semi-anthropomorphic, standing upright. Patient and wise expression with quiet confidence.`,

	model.CompanionFox: `A friendly orange fox with bright russet fur and white chest and muzzle.
Warm brown eyes with a clever, friendly expression. Fluffy tail with white tip.
Wears a brown leather messenger satchel for adventures.
Semi-anthropomorphic, standing upright. Adventurous and curious, always ready to explore.`,
}

// childDescription is the generic child-protagonist block. Ethnicity is left
// ambiguous so every reader can project themselves into the story.
const childDescription = `A friendly, diverse-representation child (leave ethnicity ambiguous to allow reader projection).
Wearing comfortable, timeless clothing in warm earth tones.`

// SlideImagePromptParams are the inputs to the per-slide illustration prompt.
type SlideImagePromptParams struct {
	SceneDescription string
	CompanionType    model.CompanionType
	CompanionName    string
	ChildName        string
	// IsKeyFrame selects the fully detailed rendering instruction instead of
	// the softer atmospheric one. Key frames are sequence boundaries and the
	// choice point.
	IsKeyFrame bool
}

// CoverPromptParams are the inputs to the cover illustration prompt.
type CoverPromptParams struct {
	Title         string
	CompanionType model.CompanionType
	CompanionName string
	ChildName     string
}

// BuildSlideImagePrompt assembles a styled illustration prompt for one slide,
// enforcing the shared watercolor art direction.
func BuildSlideImagePrompt(p SlideImagePromptParams) string {
	renderStyle := "Softer, more atmospheric rendering"
	if p.IsKeyFrame {
		renderStyle = "Detailed, fully rendered scene"
	}

	return fmt.Sprintf(`Create a warm, inviting children's book illustration in a soft watercolor style.

## SCENE
%s

## CHARACTER: %s (the %s)
%s

## CHILD CHARACTER: %s
%s
Expressions should be clear and relatable.
Approximately 6-8 years old in appearance.

## ART STYLE REQUIREMENTS
- %s
- Soft, dreamy watercolor aesthetic with gentle color palette
- Warm, golden lighting suggesting hope and comfort
- Biblical-era inspired backgrounds when appropriate (simple villages, fields, nature)
- No modern technology or contemporary elements
- Whimsical but not overly cartoonish
- Child-safe imagery - nothing scary or intense
- Emotionally expressive characters
- Rich textures and gentle gradients
- Suitable for a premium children's storybook

## COMPOSITION
- Characters should be prominently featured
- Clear focal point
- Balanced composition suitable for book format
- Leave some space for text overlay if needed

## IMPORTANT
- Maintain consistent character design for %s
- Keep the mood uplifting and child-appropriate
- Capture the emotional essence of the scene
- No text or words in the image`,
		p.SceneDescription,
		p.CompanionName, string(p.CompanionType),
		CompanionDNA[p.CompanionType],
		p.ChildName,
		childDescription,
		renderStyle,
		p.CompanionName,
	)
}

// BuildCoverPrompt assembles the composition-oriented cover prompt, reserving
// space for the title and personalization text.
func BuildCoverPrompt(p CoverPromptParams) string {
	return fmt.Sprintf(`Create a stunning children's book cover illustration in a premium watercolor style.

## BOOK TITLE
"%s"

## MAIN CHARACTERS
%s (the %s):
%s

%s (the child protagonist):
%s
Joyful, welcoming expression inviting the reader into the story.

## COVER COMPOSITION
- %s and %s together as the central focus
- Warm, inviting scene suggesting adventure and friendship
- Biblical-era inspired setting (rolling hills, olive trees, soft sky)
- Golden hour lighting with soft, warm tones
- Sense of wonder and magic
- Premium, high-quality children's book aesthetic

## ART STYLE
- Rich, luminous watercolor technique
- Dreamy, ethereal quality
- Soft color palette with warm accents
- Professional children's book illustration quality
- Emotionally engaging and inviting
- Would look beautiful as a keepsake book

## REQUIREMENTS
- Portrait orientation suitable for book cover
- Leave appropriate space at top for title text
- Leave appropriate space at bottom for author/personalization
- Characters should connect emotionally with viewer
- Capture the special bond between child and companion
- No text or words in the image itself

## MOOD
Magical, heartwarming, adventurous yet safe, filled with hope and wonder.`,
		p.Title,
		p.CompanionName, string(p.CompanionType),
		CompanionDNA[p.CompanionType],
		p.ChildName,
		childDescription,
		p.ChildName, p.CompanionName,
	)
}
