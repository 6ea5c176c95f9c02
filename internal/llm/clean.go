package llm

import "strings"

// CleanJSON strips Markdown fences and surrounding prose the model may add
// despite instructions, keeping only the outermost JSON array or object.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	opening, closing := "[", "]"
	if a, o := strings.Index(s, "["), strings.Index(s, "{"); o != -1 && (a == -1 || o < a) {
		opening, closing = "{", "}"
	}
	if start := strings.Index(s, opening); start != -1 {
		if end := strings.LastIndex(s, closing); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
