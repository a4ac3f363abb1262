package summarize

import (
	"fmt"
	"strings"
)

const promptTemplate = "Summarize the following content into a concise bulleted list of key facts (max %d characters):\n\n%s"

// BuildPrompt renders the summarization request sent to a model. Non-empty
// instructions precede the request, separated by a blank line.
func BuildPrompt(instructions, text string, maxChars int) string {
	body := fmt.Sprintf(promptTemplate, maxChars, text)
	if strings.TrimSpace(instructions) == "" {
		return body
	}
	return strings.TrimSpace(instructions) + "\n\n" + body
}
