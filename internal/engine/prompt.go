package engine

import (
	"fmt"

	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

const taskTemplate = `Task: Provide your unique perspective on this request. Focus on your expertise (%s).

Response format:
1. Share your opinion/advice about the user's request (2-3 sentences)
2. You can optionally suggest specific ideas

Keep your response authentic to your personality and expertise. Be helpful but stay true to your character.`

// SystemPrompt returns the agent's persona instructions, synthesizing a
// default from its name and personality when none is set.
func SystemPrompt(a models.Agent) string {
	if a.SystemPrompt != "" {
		return a.SystemPrompt
	}
	return fmt.Sprintf("You are %s. %s.", a.Name, a.Personality)
}

// BuildPrompt composes the full generation prompt for one agent.
func BuildPrompt(a models.Agent, userMessage string) string {
	return fmt.Sprintf("%s\n\nUser Message: \"%s\"\n\n%s",
		SystemPrompt(a),
		userMessage,
		fmt.Sprintf(taskTemplate, a.Personality),
	)
}
