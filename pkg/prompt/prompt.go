package prompt

import (
	"fmt"
	"strings"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

// Context is everything that reaches the template.
type Context struct {
	Context      string
	ExternalData string
	Question     string
}

const (
	contextTemplate = "Answer the question from a rag's perspective based " +
		"only on the following context:\n\n{context}\n\nAdditional info: {externalData}"

	personaInstructions = "You are a rag that answers questions for humans. " +
		"Responses should include answers from a rag’s perspective " +
		"and incorporate some rag personality. " +
		"Each type of rag should have unique responses. " +
		"Remember to keep it light and fun. " +
		"Please do not say anything that could be offensive."

	questionTemplate = "{question}"
)

// Query phrases a persona and a question as the single string used both for
// retrieval and as the user message.
func Query(persona, question string) string {
	return fmt.Sprintf("From the perspective of a %s, can you tell me %s?", persona, question)
}

// Render fills the fixed three-message template. Values are inserted
// verbatim; placeholders inside them are not expanded again.
func Render(c Context) []Message {
	return []Message{
		{Role: RoleAssistant, Content: fill(contextTemplate, map[string]string{
			"context":      c.Context,
			"externalData": c.ExternalData,
		})},
		{Role: RoleAssistant, Content: personaInstructions},
		{Role: RoleUser, Content: fill(questionTemplate, map[string]string{
			"question": c.Question,
		})},
	}
}

func fill(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
