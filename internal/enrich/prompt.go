package enrich

import (
	"fmt"

	"google.golang.org/genai"
)

const systemPrompt = "You are an expert educator evaluating technical learning topics."

// maxDescription bounds the description quoted in a prompt, in runes.
const maxDescription = 500

// responseSchema constrains the model output to an Annotation.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tldr": {
			Type:        genai.TypeString,
			Description: "at most 12 words, crisp summary, no punctuation at end",
		},
		"challenge": {
			Type:        genai.TypeString,
			Enum:        []string{ChallengePractice, ChallengeExpert},
			Description: "practice: fundamental skills, shallow breadth; expert: advanced/architecture, heavy prereqs",
		},
	},
	Required: []string{"tldr", "challenge"},
}

// BuildPrompt renders the request for one record.
func BuildPrompt(category, subcategory, topic, description string) string {
	desc := "N/A"
	if description != "" {
		desc = description
		if r := []rune(desc); len(r) > maxDescription {
			desc = string(r[:maxDescription])
		}
	}

	return fmt.Sprintf(`System: %s

Context:
- Category: %s
- Subcategory: %s
- Topic: %s
- Description: %s

Task:
1. Generate a TLDR (at most 12 words, no ending punctuation)
2. Classify challenge level:
   - "practice": fundamental skills, shallow breadth, few prerequisites
   - "expert": advanced/architecture/production, heavy prerequisites, deep trade-offs

Output JSON with "tldr" and "challenge" fields.`,
		systemPrompt, orNA(category), orNA(subcategory), topic, desc)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
