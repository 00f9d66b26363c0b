package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider identifies a Bedrock model provider family.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderMeta      Provider = "meta"
	ProviderAmazon    Provider = "amazon"
	ProviderAlibaba   Provider = "alibaba"
	ProviderOther     Provider = "other"
)

// Pricing holds per-1K token costs for a model in USD.
type Pricing struct {
	InputPer1K  float64 `yaml:"input_per_1k_tokens_usd"`
	OutputPer1K float64 `yaml:"output_per_1k_tokens_usd"`
}

// GenerationParams are sampling parameters for a model invocation. Nil
// pointer fields mean "not configured" so an explicit zero survives;
// ResolveGenerationParams applies defaults.
type GenerationParams struct {
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
}

// Generation parameter defaults. The chat-style Converse protocol uses a
// higher top_p than direct invocation.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
	DefaultTopP        = 0.9
	DefaultTopPChat    = 0.95
)

// Descriptor describes one configured model. Immutable after load.
type Descriptor struct {
	Name                string           `yaml:"name"`
	ModelID             string           `yaml:"bedrock_model_id"`
	Provider            Provider         `yaml:"provider"`
	Tokenizer           string           `yaml:"tokenizer"`
	UseInferenceProfile bool             `yaml:"use_inference_profile"`
	Pricing             Pricing          `yaml:"pricing"`
	GenerationParams    GenerationParams `yaml:"generation_params"`
}

// Catalog holds the configured model descriptors in file order.
type Catalog struct {
	RegionName string       `yaml:"region_name"`
	Models     []Descriptor `yaml:"models"`
}

// Load reads a YAML catalog file, expands environment variables, and
// validates the catalog invariants.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var c Catalog
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model with id %q has no name", m.ModelID)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = true
		if m.Pricing.InputPer1K < 0 || m.Pricing.OutputPer1K < 0 {
			return fmt.Errorf("model %q has negative pricing", m.Name)
		}
	}
	return nil
}

// List returns all descriptors in configured order.
func (c *Catalog) List() []Descriptor {
	out := make([]Descriptor, len(c.Models))
	copy(out, c.Models)
	return out
}

// FindByName returns the descriptor with the given name, exact match only.
func (c *Catalog) FindByName(name string) (Descriptor, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Descriptor{}, false
}

// Resolve maps requested names to descriptors. The sentinel name "all"
// selects the whole catalog. Unmatched names are silently omitted; the
// caller decides whether an empty result is fatal.
func (c *Catalog) Resolve(names []string) []Descriptor {
	for _, n := range names {
		if n == "all" {
			return c.List()
		}
	}
	var out []Descriptor
	for _, n := range names {
		if m, ok := c.FindByName(n); ok {
			out = append(out, m)
		}
	}
	return out
}

// ResolvedParams are generation parameters with all defaults applied.
type ResolvedParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ResolveGenerationParams returns the descriptor's generation parameters
// with defaults applied. chat selects the Converse top_p default.
func ResolveGenerationParams(d Descriptor, chat bool) ResolvedParams {
	r := ResolvedParams{
		MaxTokens:   d.GenerationParams.MaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
	if chat {
		r.TopP = DefaultTopPChat
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if d.GenerationParams.Temperature != nil {
		r.Temperature = *d.GenerationParams.Temperature
	}
	if d.GenerationParams.TopP != nil {
		r.TopP = *d.GenerationParams.TopP
	}
	return r
}
