package research

import (
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON object out of free-form model output. Models asked
// for JSON routinely wrap it in markdown code fences or surround it with
// prose, so structural parsing must be preceded by this cleanup.
func ExtractJSON(text string) (string, error) {
	cleaned := strings.TrimSpace(text)

	// Strip a fenced block if present: take the content between the first
	// fence marker and its closing fence.
	if idx := strings.Index(cleaned, "```"); idx != -1 {
		rest := cleaned[idx+3:]
		// Drop a language tag like "json" directly after the fence
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			firstLine := strings.TrimSpace(rest[:nl])
			if firstLine == "json" || firstLine == "JSON" || firstLine == "" {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		cleaned = strings.TrimSpace(rest)
	}

	// Cut leading/trailing commentary around the outermost object.
	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in model output")
	}

	return cleaned[start : end+1], nil
}
