package engine

import (
	"reflect"
	"testing"

	"github.com/modelmeter/modelmeter/pkg/catalog"
)

func TestBuildVariantsQualifiedRegion(t *testing.T) {
	d := catalog.Descriptor{
		Name:     "claude-3-7-sonnet",
		ModelID:  "anthropic.claude-3-7-sonnet-20250219-v1:0",
		Provider: catalog.ProviderAnthropic,
	}
	got := BuildVariants(d, "us-east-2")
	// stripped+":0" reassembles to the original id, so the qualified form
	// appears once.
	want := []string{
		"us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		"anthropic.claude-3-7-sonnet-20250219-v1:0",
		"anthropic.claude-3-7-sonnet-20250219-v1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("variants = %v, want %v", got, want)
	}

	// Deterministic across calls.
	if again := BuildVariants(d, "us-east-2"); !reflect.DeepEqual(again, got) {
		t.Errorf("variants not deterministic: %v vs %v", again, got)
	}
}

func TestBuildVariantsAlreadyQualified(t *testing.T) {
	d := catalog.Descriptor{
		ModelID:  "us.meta.llama3-3-70b-instruct-v1:0",
		Provider: catalog.ProviderMeta,
	}
	got := BuildVariants(d, "us-east-2")
	if len(got) != 1 || got[0] != d.ModelID {
		t.Errorf("qualified id must be used as-is, got %v", got)
	}
}

func TestBuildVariantsInferenceProfilePinned(t *testing.T) {
	d := catalog.Descriptor{
		ModelID:             "anthropic.claude-sonnet-4-20250514-v1:0",
		Provider:            catalog.ProviderAnthropic,
		UseInferenceProfile: true,
	}
	got := BuildVariants(d, "us-east-2")
	if len(got) != 1 || got[0] != d.ModelID {
		t.Errorf("pinned descriptor must be used as-is, got %v", got)
	}
}

func TestBuildVariantsMetaVersionSuffix(t *testing.T) {
	d := catalog.Descriptor{
		ModelID:  "meta.llama3-2-11b-instruct-v1",
		Provider: catalog.ProviderMeta,
	}
	got := BuildVariants(d, "eu-west-1")
	want := []string{
		"eu.meta.llama3-2-11b-instruct-v1",
		"eu.meta.llama3-2-11b-instruct-v1:0",
		"meta.llama3-2-11b-instruct-v1",
		"meta.llama3-2-11b-instruct-v1:0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("variants = %v, want %v", got, want)
	}
}

func TestBuildVariantsNoProfileRegion(t *testing.T) {
	d := catalog.Descriptor{
		ModelID:  "amazon.titan-text-express-v1",
		Provider: catalog.ProviderAmazon,
	}
	got := BuildVariants(d, "sa-east-1")
	want := []string{"amazon.titan-text-express-v1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("variants = %v, want %v", got, want)
	}
}

func TestQualify(t *testing.T) {
	if got := qualify("amazon.nova-pro-v1:0", "ap-southeast-1"); got != "apac.amazon.nova-pro-v1:0" {
		t.Errorf("qualify = %q", got)
	}
	if got := qualify("us.amazon.nova-pro-v1:0", "us-east-1"); got != "" {
		t.Errorf("already-qualified id must not re-qualify, got %q", got)
	}
	if got := qualify("amazon.nova-pro-v1:0", "me-central-1"); got != "" {
		t.Errorf("unknown geography must yield no alias, got %q", got)
	}
}
