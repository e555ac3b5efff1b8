package prompts

import "strings"

// MaxUserInputLength bounds any free-text user value interpolated into a prompt.
const MaxUserInputLength = 50

// SanitizeUserInput neutralizes user-supplied text before it is interpolated
// into a prompt: newlines, tabs and carriage returns become spaces, markdown
// structuring characters are stripped, and the result is truncated. This keeps
// a crafted child or companion name from altering the instruction structure of
// the prompt.
func SanitizeUserInput(input string) string {
	if input == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r == '#' || r == '*' || r == '`':
			// dropped
		case r < 0x20 || r == 0x7f:
			// control characters dropped
		default:
			b.WriteRune(r)
		}
	}
	out := []rune(b.String())
	if len(out) > MaxUserInputLength {
		out = out[:MaxUserInputLength]
	}
	return strings.TrimSpace(string(out))
}
