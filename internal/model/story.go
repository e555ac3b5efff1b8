package model

import "time"

// StoryStatus tracks a story document through the generation pipeline.
// Transitions only move forward in the declared order; "failed" is absorbing
// and can be entered from any state.
type StoryStatus string

const (
	StatusGenerating StoryStatus = "generating"
	StatusTextReady  StoryStatus = "text_ready"
	StatusCoverReady StoryStatus = "cover_ready"
	StatusReady      StoryStatus = "ready"
	StatusFailed     StoryStatus = "failed"
)

// StoryType distinguishes catalog content from per-child generated stories.
// Only personalized stories pass through the generation pipeline.
type StoryType string

const (
	StoryTypePremade      StoryType = "premade"
	StoryTypePersonalized StoryType = "personalized"
)

// MediaStatus tracks the per-slide lifecycle of a generated image or audio clip.
type MediaStatus string

const (
	MediaPending    MediaStatus = "pending"
	MediaGenerating MediaStatus = "generating"
	MediaReady      MediaStatus = "ready"
	MediaFailed     MediaStatus = "failed"
)

// AgeBand selects vocabulary and story-length guidelines.
type AgeBand string

const (
	AgeBand3to5  AgeBand = "3-5"
	AgeBand6to8  AgeBand = "6-8"
	AgeBand9to11 AgeBand = "9-11"
)

// CompanionType identifies the animal companion accompanying the child.
type CompanionType string

const (
	CompanionLamb CompanionType = "lamb"
	CompanionLion CompanionType = "lion"
	CompanionCat  CompanionType = "cat"
	CompanionFox  CompanionType = "fox"
)

// Value is one of the fixed character values a story can reinforce.
type Value string

const (
	ValueKindness    Value = "Kindness"
	ValueCourage     Value = "Courage"
	ValueHonesty     Value = "Honesty"
	ValuePatience    Value = "Patience"
	ValueGratitude   Value = "Gratitude"
	ValueForgiveness Value = "Forgiveness"
	ValueHumility    Value = "Humility"
	ValueSelfControl Value = "Self-control"
)

// AllValues lists every supported value in display order.
var AllValues = []Value{
	ValueKindness, ValueCourage, ValueHonesty, ValuePatience,
	ValueGratitude, ValueForgiveness, ValueHumility, ValueSelfControl,
}

// Choice is one of the two labeled options at the story's choice point.
type Choice struct {
	Label       string `json:"label" firestore:"label"`
	Description string `json:"description" firestore:"description"`
}

// ChoicePair holds both options of the single branching choice.
type ChoicePair struct {
	A Choice `json:"A" firestore:"A"`
	B Choice `json:"B" firestore:"B"`
}

// Slide is one page of the storybook. The id is unique within its own
// sequence (main path, branch A or branch B); lookups never cross sequences.
type Slide struct {
	ID               string      `json:"id" firestore:"id"`
	Text             string      `json:"text" firestore:"text"`
	ImageDescription string      `json:"imageDescription" firestore:"imageDescription"`
	ImagePrompt      string      `json:"imagePrompt,omitempty" firestore:"imagePrompt,omitempty"`
	ImageURL         string      `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	ImageStatus      MediaStatus `json:"imageStatus,omitempty" firestore:"imageStatus,omitempty"`
	AudioURL         string      `json:"audioUrl,omitempty" firestore:"audioUrl,omitempty"`
	AudioStatus      MediaStatus `json:"audioStatus,omitempty" firestore:"audioStatus,omitempty"`
	IsChoicePoint    bool        `json:"isChoicePoint,omitempty" firestore:"isChoicePoint,omitempty"`
	Choices          *ChoicePair `json:"choices,omitempty" firestore:"choices,omitempty"`
}

// BranchSlides holds the two continuations appended after the choice point.
type BranchSlides struct {
	A []Slide `json:"A" firestore:"A"`
	B []Slide `json:"B" firestore:"B"`
}

// StoryDocument is the shared persisted record for one story. It is created
// by the client at status "generating" and mutated exclusively by the
// generation stages via partial field updates.
type StoryDocument struct {
	ID                 string       `firestore:"-"`
	ProfileID          string       `firestore:"profileId"`
	Type               StoryType    `firestore:"type"`
	Title              string       `firestore:"title"`
	CoverImageURL      string       `firestore:"coverImageUrl"`
	CoverPrompt        string       `firestore:"coverPrompt,omitempty"`
	CompanionDNA       string       `firestore:"companionDna,omitempty"`
	Slides             []Slide      `firestore:"slides"`
	BranchSlides       BranchSlides `firestore:"branchSlides"`
	ChoicePointSlideID string       `firestore:"choicePointSlideId"`
	Choices            ChoicePair   `firestore:"choices"`
	ValuesReinforced   []Value      `firestore:"valuesReinforced"`
	Status             StoryStatus  `firestore:"status"`
	ImagesGenerated    int          `firestore:"imagesGenerated"`
	TotalImages        int          `firestore:"totalImages"`
	Error              string       `firestore:"error,omitempty"`
	CreatedAt          time.Time    `firestore:"createdAt"`
	UpdatedAt          time.Time    `firestore:"updatedAt"`
	GeneratedAt        time.Time    `firestore:"generatedAt,omitempty"`

	// Profile attributes embedded directly on anonymous stories that have
	// no profileId to resolve.
	ChildName     string        `firestore:"childName,omitempty"`
	AgeBand       AgeBand       `firestore:"ageBand,omitempty"`
	CompanionType CompanionType `firestore:"companionType,omitempty"`
	CompanionName string        `firestore:"companionName,omitempty"`
	Values        []Value       `firestore:"values,omitempty"`
}

// GeneratedStory is the validated narrative structure produced by the text
// model. Nothing downstream of schema validation operates on raw JSON.
type GeneratedStory struct {
	Title              string       `json:"title"`
	Slides             []Slide      `json:"slides"`
	ChoicePointSlideID string       `json:"choicePointSlideId"`
	Choices            ChoicePair   `json:"choices"`
	BranchSlides       BranchSlides `json:"branchSlides"`
	ValuesReinforced   []Value      `json:"valuesReinforced,omitempty"`
}

// TotalSlides counts every slide across the main path and both branches.
func (g *GeneratedStory) TotalSlides() int {
	return len(g.Slides) + len(g.BranchSlides.A) + len(g.BranchSlides.B)
}

// Profile carries the child attributes the narrative stage personalizes on.
type Profile struct {
	ID            string        `firestore:"-"`
	ChildName     string        `firestore:"childName"`
	AgeBand       AgeBand       `firestore:"ageBand"`
	CompanionType CompanionType `firestore:"companionType"`
	CompanionName string        `firestore:"companionName"`
	Values        []Value       `firestore:"values"`
}

// Validate reports whether the profile has everything the prompt builders need.
func (p Profile) Validate() error {
	switch {
	case p.ChildName == "":
		return ErrInvalidProfile
	case p.AgeBand == "":
		return ErrInvalidProfile
	case p.CompanionType == "":
		return ErrInvalidProfile
	case p.CompanionName == "":
		return ErrInvalidProfile
	case len(p.Values) == 0:
		return ErrInvalidProfile
	}
	return nil
}
