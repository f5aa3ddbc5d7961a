package optimizer

import "strings"

// preserveVariables restores template placeholders a rewrite dropped.
// For each missing placeholder, the text around it in the original
// anchors the reinsertion point in the candidate: first the text
// immediately before it, then the text immediately after it. When
// neither anchor survives the rewrite, the placeholder goes on its own
// line at the end. Returns the repaired text and whether anything
// changed.
func preserveVariables(original, candidate string, placeholders []string) (string, bool) {
	changed := false
	for _, name := range placeholders {
		marker := "{{" + name + "}}"
		if strings.Contains(candidate, marker) {
			continue
		}
		candidate = reinsert(original, candidate, marker)
		changed = true
	}
	return candidate, changed
}

func reinsert(original, candidate, marker string) string {
	pos := strings.Index(original, marker)
	if pos < 0 {
		return candidate + "\n\n" + marker
	}

	if pos > 0 {
		start := pos - anchorLength
		if start < 0 {
			start = 0
		}
		anchor := original[start:pos]
		if idx := strings.Index(candidate, anchor); idx >= 0 {
			insertAt := idx + len(anchor)
			return candidate[:insertAt] + marker + candidate[insertAt:]
		}
	}

	if end := pos + len(marker); end < len(original) {
		stop := end + anchorLength
		if stop > len(original) {
			stop = len(original)
		}
		anchor := strings.TrimLeft(original[end:stop], " \t\n")
		if anchor != "" {
			if idx := strings.Index(candidate, anchor); idx >= 0 {
				return candidate[:idx] + marker + "\n" + candidate[idx:]
			}
		}
	}

	return candidate + "\n\n" + marker
}
