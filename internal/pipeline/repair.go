package pipeline

import (
	"errors"
	"strings"
)

// errNoCompleteObject means a truncated response holds no closing brace to
// cut back to.
var errNoCompleteObject = errors.New("cannot repair truncated JSON: no complete transaction found")

// repairTruncatedJSON cuts a length-truncated response back to its last
// complete object, re-closes the enclosing structure and decodes it. The
// cut after the final closing brace is tried first, then the last "},".
func repairTruncatedJSON(content string) (interface{}, error) {
	closing := "]"
	if strings.Contains(content, "transactions") {
		closing = "]\n}"
	}

	var cuts []int
	if i := strings.LastIndex(content, "}"); i != -1 {
		cuts = append(cuts, i)
	}
	if i := strings.LastIndex(content, "},"); i != -1 && (len(cuts) == 0 || i != cuts[0]) {
		cuts = append(cuts, i)
	}
	if len(cuts) == 0 {
		return nil, errNoCompleteObject
	}

	var lastErr error
	for _, cut := range cuts {
		parsed, err := decodeModelJSON(content[:cut+1] + closing)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// cleanModelJSON strips Markdown code fences that models sometimes wrap
// around JSON output despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	return strings.TrimSpace(s)
}
