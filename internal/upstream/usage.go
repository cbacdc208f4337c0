package upstream

import "encoding/json"

// Usage is the token accounting extracted from an upstream completion response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Model            string
}

type usageEnvelope struct {
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ExtractUsage parses body for prompt/completion token counts and the model
// identifier. An unparseable body or one missing "usage" yields zeros, never
// an error — accounting failures must never fail the proxied request.
func ExtractUsage(body []byte) Usage {
	var env usageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     env.Usage.PromptTokens,
		CompletionTokens: env.Usage.CompletionTokens,
		Model:            env.Model,
	}
}

// SynthesizedModel is the shape of a single entry in the synthesized /v1/models
// fallback response, used when the upstream cannot be reached.
type SynthesizedModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// SynthesizedModelsList is the fallback body for GET /v1/models when the
// upstream errors, carrying exactly the configured default model.
type SynthesizedModelsList struct {
	Object string             `json:"object"`
	Data   []SynthesizedModel `json:"data"`
}

// SynthesizeModels builds the fallback models list for defaultModel.
func SynthesizeModels(defaultModel string) SynthesizedModelsList {
	return SynthesizedModelsList{
		Object: "list",
		Data: []SynthesizedModel{
			{ID: defaultModel, Object: "model", Created: 0, OwnedBy: "internal"},
		},
	}
}
