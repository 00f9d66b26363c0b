package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelmeter/modelmeter/pkg/bedrock"
	"github.com/modelmeter/modelmeter/pkg/catalog"
)

// llamaChatTemplate is the instruction format Llama 3.x Instruct models
// expect for single-turn prompts.
const llamaChatTemplate = "<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n\n%s<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n"

// usesConverse reports whether a model speaks the chat-style Converse
// protocol (Anthropic Claude and Amazon Nova families).
func usesConverse(d catalog.Descriptor) bool {
	id := strings.ToLower(d.ModelID)
	return d.Provider == catalog.ProviderAnthropic ||
		strings.Contains(id, "claude") ||
		strings.Contains(id, "nova")
}

// directProtocol builds single-turn request bodies and extracts response
// fields for one provider family. Field naming drifts between providers and
// versions, so extraction tries candidate fields in a fixed priority order.
type directProtocol interface {
	// buildBody returns the invoke request body for the prompt.
	buildBody(prompt string, p catalog.ResolvedParams) ([]byte, error)
	// extractText returns the response text, or "" when absent.
	extractText(body map[string]any) string
	// extractOutputTokens returns the reported output token count, or 0.
	extractOutputTokens(body map[string]any) int
	// countTokensBody returns the body shape for the CountTokens API.
	countTokensBody(prompt string) ([]byte, error)
}

// directProtocolFor selects the protocol implementation for a descriptor.
func directProtocolFor(d catalog.Descriptor) directProtocol {
	id := strings.ToLower(d.ModelID)
	switch {
	case d.Provider == catalog.ProviderMeta || strings.Contains(id, "llama"):
		return metaProtocol{modelID: id}
	case d.Provider == catalog.ProviderAmazon || strings.Contains(id, "titan"):
		return amazonProtocol{}
	case d.Provider == catalog.ProviderAlibaba || strings.Contains(id, "qwen"):
		return genericProtocol{}
	default:
		return genericProtocol{}
	}
}

// metaProtocol targets Llama-family models.
type metaProtocol struct {
	modelID string
}

func (p metaProtocol) buildBody(prompt string, params catalog.ResolvedParams) ([]byte, error) {
	formatted := prompt
	if strings.Contains(p.modelID, "instruct") && !strings.HasPrefix(strings.TrimSpace(prompt), "<|begin_of_text|>") {
		formatted = fmt.Sprintf(llamaChatTemplate, prompt)
	}
	return json.Marshal(map[string]any{
		"prompt":      formatted,
		"max_gen_len": params.MaxTokens,
		"temperature": params.Temperature,
		"top_p":       params.TopP,
	})
}

func (p metaProtocol) extractText(body map[string]any) string {
	if s := getString(body, "generation", "generated_text", "output", "text"); s != "" {
		return s
	}
	if result := firstResult(body); result != nil {
		return getString(result, "generated_text", "text", "output", "generation")
	}
	// Schema drift fallback: any reasonably long string field.
	for _, v := range body {
		if s, ok := v.(string); ok && len(s) > 10 {
			return s
		}
	}
	return ""
}

func (p metaProtocol) extractOutputTokens(body map[string]any) int {
	if n := getInt(body, "generation_token_count"); n > 0 {
		return n
	}
	if usage, ok := body["usage"].(map[string]any); ok {
		return getInt(usage, "completion_tokens", "generation_tokens", "output_tokens")
	}
	return 0
}

func (p metaProtocol) countTokensBody(prompt string) ([]byte, error) {
	return json.Marshal(map[string]any{"prompt": prompt})
}

// amazonProtocol targets Titan-family models.
type amazonProtocol struct{}

func (amazonProtocol) buildBody(prompt string, params catalog.ResolvedParams) ([]byte, error) {
	return json.Marshal(map[string]any{
		"inputText": prompt,
		"textGenerationConfig": map[string]any{
			"maxTokenCount": params.MaxTokens,
			"temperature":   params.Temperature,
			"topP":          params.TopP,
		},
	})
}

func (amazonProtocol) extractText(body map[string]any) string {
	if result := firstResult(body); result != nil {
		return getString(result, "outputText")
	}
	return ""
}

func (amazonProtocol) extractOutputTokens(body map[string]any) int {
	if result := firstResult(body); result != nil {
		if usage, ok := result["usage"].(map[string]any); ok {
			if n := getInt(usage, "tokenCount", "outputTokenCount"); n > 0 {
				return n
			}
		}
	}
	if usage, ok := body["usage"].(map[string]any); ok {
		return getInt(usage, "tokenCount", "outputTokenCount")
	}
	return 0
}

func (amazonProtocol) countTokensBody(prompt string) ([]byte, error) {
	return json.Marshal(map[string]any{"inputText": prompt})
}

// genericProtocol is the fallback single-turn shape, also used for Qwen.
type genericProtocol struct{}

func (genericProtocol) buildBody(prompt string, params catalog.ResolvedParams) ([]byte, error) {
	return json.Marshal(map[string]any{
		"prompt":      prompt,
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
		"top_p":       params.TopP,
	})
}

func (genericProtocol) extractText(body map[string]any) string {
	return getString(body, "completion", "generated_text", "output", "text")
}

func (genericProtocol) extractOutputTokens(body map[string]any) int {
	if usage, ok := body["usage"].(map[string]any); ok {
		return getInt(usage, "output_tokens", "completion_tokens", "generation_tokens")
	}
	return 0
}

func (genericProtocol) countTokensBody(prompt string) ([]byte, error) {
	return json.Marshal(map[string]any{"prompt": prompt})
}

// converseCountTokensBody is the CountTokens shape for chat-style models.
func converseCountTokensBody(prompt string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"messages": []map[string]any{
			{"role": "user", "content": []map[string]any{{"text": prompt}}},
		},
	})
}

// firstResult returns the first element of a "results" array, if present.
func firstResult(body map[string]any) map[string]any {
	results, ok := body["results"].([]any)
	if !ok || len(results) == 0 {
		return nil
	}
	first, _ := results[0].(map[string]any)
	return first
}

// getString returns the first non-empty string among the named keys.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// getInt returns the first positive integer among the named keys. JSON
// numbers decode as float64.
func getInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok && f > 0 {
			return int(f)
		}
	}
	return 0
}

// buildConverseRequest assembles the chat-style request for a prompt.
func buildConverseRequest(prompt string, params catalog.ResolvedParams) bedrock.ConverseRequest {
	return bedrock.ConverseRequest{
		Messages: []bedrock.Message{
			{Role: "user", Content: []bedrock.ContentBlock{{Text: prompt}}},
		},
		InferenceConfig: bedrock.InferenceConfig{
			MaxTokens:   params.MaxTokens,
			Temperature: params.Temperature,
			TopP:        params.TopP,
		},
	}
}
