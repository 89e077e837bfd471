package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// matchToolName is the function the model is asked to call in tools mode.
const matchToolName = "match_rows"

// Template variables available to the system and human prompts.
const (
	varLeftRows           = "left_rows"
	varRightRows          = "right_rows"
	varFormatInstructions = "format_instructions"
)

const defaultSystemPrompt = `You match entries between two lists of product names.

Each line of a list has the form "<index>: <name>". For every entry of the first
list, find the entry of the second list that describes the same product. Names may
differ in language, spelling, word order, brand or package size; match by meaning.

Rules:
- Report every entry of the first list exactly once, using its index as given.
- Use the indices exactly as they appear in the lists. Never renumber.
- If no entry of the second list describes the same product, report null as the second index.
- Do not invent indices that do not appear in the lists.`

const humanPromptTemplate = `First list:
{{.left_rows}}

Second list:
{{.right_rows}}

{{.format_instructions}}`

// buildPrompt assembles the chat template. A non-empty system overrides the
// default instructions.
func buildPrompt(system string) prompts.ChatPromptTemplate {
	if system == "" {
		system = defaultSystemPrompt
	}
	vars := []string{varLeftRows, varRightRows, varFormatInstructions}
	return prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(system, vars),
		prompts.NewHumanMessagePromptTemplate(humanPromptTemplate, vars),
	})
}

// formatInstructions tells the model how to shape its answer for the given mode.
func formatInstructions(mode ai.MatchMode, schema core.MatchSchema) string {
	if mode == ai.MatchModeTools {
		return fmt.Sprintf("Report the result by calling the %s function.", matchToolName)
	}

	var sb strings.Builder
	sb.WriteString(`Respond ONLY with a JSON object of the form {"items": [...]}. `)
	sb.WriteString("Do not include any preamble or explanation. Each item has these fields:\n")
	fmt.Fprintf(&sb, "- %s (integer): index of the entry from the first list\n", schema.LeftIndexField)
	fmt.Fprintf(&sb, "- %s (integer or null): index of the matching entry from the second list\n", schema.RightIndexField)
	for _, f := range schema.Extra {
		fmt.Fprintf(&sb, "- %s (%s)", f.Name, jsonType(f.Type))
		if f.Description != "" {
			sb.WriteString(": " + f.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// matchTool describes the function called in tools mode. Its parameters are
// the JSON schema of a {"items": [...]} object built from the match schema.
func matchTool(schema core.MatchSchema) llms.Tool {
	properties := map[string]any{
		schema.LeftIndexField: map[string]any{
			"type":        "integer",
			"description": "Index of the entry from the first list",
		},
		schema.RightIndexField: map[string]any{
			"type":        []string{"integer", "null"},
			"description": "Index of the matching entry from the second list, or null if there is none",
		},
	}
	for _, f := range schema.Extra {
		prop := map[string]any{"type": jsonType(f.Type)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
	}

	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        matchToolName,
			Description: "Report which entries of the first list match entries of the second list",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":       "object",
							"properties": properties,
							"required":   []string{schema.LeftIndexField, schema.RightIndexField},
						},
					},
				},
				"required": []string{"items"},
			},
		},
	}
}

func jsonType(t string) string {
	if t == "" {
		return "string"
	}
	return t
}
