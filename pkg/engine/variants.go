package engine

import (
	"strings"

	"github.com/modelmeter/modelmeter/pkg/catalog"
)

// Inference-profile prefixes Bedrock recognizes ahead of a bare model id.
var profilePrefixes = []string{"us.", "eu.", "apac.", "global."}

// variantQueue is an ordered, deduplicated list of identifier variants.
// The engine walks it front to back and may append derived aliases when an
// error signature asks for one.
type variantQueue struct {
	ids  []string
	seen map[string]bool
}

func newVariantQueue(ids []string) *variantQueue {
	q := &variantQueue{seen: make(map[string]bool, len(ids))}
	for _, id := range ids {
		q.push(id)
	}
	return q
}

// push appends id unless already queued, reporting whether it was added.
func (q *variantQueue) push(id string) bool {
	if id == "" || q.seen[id] {
		return false
	}
	q.seen[id] = true
	q.ids = append(q.ids, id)
	return true
}

// BuildVariants returns the ordered identifier variants to try for a
// descriptor. Already-qualified ids (or descriptors pinned to an inference
// profile) are used as-is. Otherwise, in regions where profile aliasing is
// conventional, the qualified forms come first, then the bare id and its
// version-stripped form. The result is deterministic and deduplicated.
func BuildVariants(d catalog.Descriptor, region string) []string {
	id := d.ModelID
	if d.UseInferenceProfile || isQualified(id) {
		return []string{id}
	}

	q := newVariantQueue(nil)
	stripped := stripVersion(id)

	if prefix := regionProfilePrefix(region); prefix != "" {
		q.push(prefix + id)
		q.push(prefix + stripped + ":0")
	}
	q.push(id)
	q.push(stripped)
	if d.Provider == catalog.ProviderMeta || strings.Contains(strings.ToLower(id), "llama") {
		if !strings.Contains(id, ":") {
			q.push(id + ":0")
		}
	}
	return q.ids
}

// qualify derives the region-qualified alias of id, or "" when id is
// already qualified or the region has no profile convention.
func qualify(id, region string) string {
	if isQualified(id) {
		return ""
	}
	prefix := regionProfilePrefix(region)
	if prefix == "" {
		return ""
	}
	return prefix + id
}

func isQualified(id string) bool {
	for _, p := range profilePrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// stripVersion removes the trailing ":N" version suffix, if any.
func stripVersion(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[:i]
	}
	return id
}

// regionProfilePrefix maps an AWS region to its inference-profile prefix.
// Regions outside the known geographies get no qualified variants.
func regionProfilePrefix(region string) string {
	switch {
	case strings.HasPrefix(region, "us-"):
		return "us."
	case strings.HasPrefix(region, "eu-"):
		return "eu."
	case strings.HasPrefix(region, "ap-"):
		return "apac."
	default:
		return ""
	}
}
