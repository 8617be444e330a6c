package advice

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"healthai.com/rider/types"
)

const sectionKey = "Overall Recommendations"

const responseSchema = `{
  "type": "object",
  "properties": {
    "Overall Recommendations": {
      "type": "object",
      "properties": {
        "exercise_plan": {"type": "array", "items": {"type": "string"}},
        "daily_routine": {"type": "array", "items": {"type": "string"}},
        "general_health_tips": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("advice_response.json", responseSchema)

var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// StripFences removes markdown code fences around a model reply.
func StripFences(text string) string {
	return strings.TrimSpace(fenceReplacer.Replace(text))
}

// ParseResponse turns a model reply into the lifestyle section. Replies that
// are not JSON of the expected shape are kept verbatim in TextOutput.
func ParseResponse(text string) types.OverallRecommendations {
	raw := types.OverallRecommendations{TextOutput: text}

	var doc interface{}
	if err := json.Unmarshal([]byte(StripFences(text)), &doc); err != nil {
		return raw
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return raw
	}

	section, ok := doc.(map[string]interface{})[sectionKey]
	if !ok {
		return types.OverallRecommendations{}
	}
	b, err := json.Marshal(section)
	if err != nil {
		return raw
	}
	var recs types.OverallRecommendations
	if err := json.Unmarshal(b, &recs); err != nil {
		return raw
	}
	recs.TextOutput = ""
	recs.Alert = nil
	return recs
}
