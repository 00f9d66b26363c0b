// Package prompts loads benchmark prompts from local CSV, JSON, JSONL, and
// plain-text files.
package prompts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Prompt is one benchmark input. ID is 1-based and stable for a given file.
type Prompt struct {
	ID         int
	Text       string
	ExpectJSON bool
}

// Options control prompt loading.
type Options struct {
	// CSVColumn names the CSV column holding the prompt text.
	// Empty means "prompt", matched case-insensitively.
	CSVColumn string
	// MaxPrompts caps how many prompts are loaded. Zero means no cap.
	MaxPrompts int
}

// Load reads prompts from path, dispatching on the file extension.
func Load(path string, opts Options) ([]Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var loaded []Prompt
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		loaded, err = parseCSV(data, opts.CSVColumn)
	case ".json":
		loaded, err = parseJSON(data)
	case ".jsonl", ".ndjson":
		loaded, err = parseJSONL(data)
	case ".txt":
		loaded = parseText(data)
	default:
		return nil, fmt.Errorf("unsupported prompt file type %q (use .csv, .json, .jsonl, or .txt)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no prompts found in %s", path)
	}

	if opts.MaxPrompts > 0 && len(loaded) > opts.MaxPrompts {
		loaded = loaded[:opts.MaxPrompts]
	}
	return loaded, nil
}

func parseCSV(data []byte, column string) ([]Prompt, error) {
	if column == "" {
		column = "prompt"
	}
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	promptCol, expectCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case strings.ToLower(column):
			promptCol = i
		case "expected_json", "expect_json":
			expectCol = i
		}
	}
	if promptCol < 0 {
		return nil, fmt.Errorf("missing required column %q", column)
	}

	var out []Prompt
	for _, row := range rows[1:] {
		if promptCol >= len(row) {
			continue
		}
		text := strings.TrimSpace(row[promptCol])
		if text == "" {
			continue
		}
		p := Prompt{ID: len(out) + 1, Text: text}
		if expectCol >= 0 && expectCol < len(row) {
			p.ExpectJSON = truthy(row[expectCol])
		}
		out = append(out, p)
	}
	return out, nil
}

// parseJSON accepts an array of strings or objects, or an object wrapping a
// "prompts" array.
func parseJSON(data []byte) ([]Prompt, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		wrapped, ok := v["prompts"].([]any)
		if !ok {
			return nil, fmt.Errorf("json must be an array or an object with a prompts array")
		}
		items = wrapped
	default:
		return nil, fmt.Errorf("json must be an array or an object with a prompts array")
	}

	var out []Prompt
	for _, item := range items {
		if p, ok := promptFromItem(item); ok {
			p.ID = len(out) + 1
			out = append(out, p)
		}
	}
	return out, nil
}

func parseJSONL(data []byte) ([]Prompt, error) {
	var out []Prompt
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var item any
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", len(out)+1, err)
		}
		if p, ok := promptFromItem(item); ok {
			p.ID = len(out) + 1
			out = append(out, p)
		}
	}
	return out, nil
}

// parseText splits on blank lines, falling back to one prompt per line when
// the file has no blank-line separators.
func parseText(data []byte) []Prompt {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	chunks := splitNonEmpty(content, "\n\n")
	if len(chunks) == 1 {
		chunks = splitNonEmpty(content, "\n")
	}

	out := make([]Prompt, 0, len(chunks))
	for i, chunk := range chunks {
		out = append(out, Prompt{ID: i + 1, Text: chunk})
	}
	return out
}

// promptFromItem extracts a prompt from a JSON string or object. Objects use
// the prompt or text field, plus an optional expected_json flag.
func promptFromItem(item any) (Prompt, bool) {
	switch v := item.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return Prompt{}, false
		}
		return Prompt{Text: v}, true
	case map[string]any:
		text, _ := v["prompt"].(string)
		if text == "" {
			text, _ = v["text"].(string)
		}
		if strings.TrimSpace(text) == "" {
			return Prompt{}, false
		}
		p := Prompt{Text: text}
		if flag, ok := v["expected_json"].(bool); ok {
			p.ExpectJSON = flag
		} else if flag, ok := v["expect_json"].(bool); ok {
			p.ExpectJSON = flag
		}
		return p, true
	default:
		return Prompt{}, false
	}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
