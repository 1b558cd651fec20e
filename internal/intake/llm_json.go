package intake

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject indicates no balanced JSON object was found in the text.
var ErrNoJSONObject = errors.New("intake: no JSON object in response")

// extractJSONObject returns the first balanced {...} substring of text.
// LLM responses routinely wrap the requested object in prose or markdown
// code fences, so naive first-{/last-} slicing can grab trailing garbage.
// The scanner tracks string literals and escapes while counting braces.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", ErrNoJSONObject
}

// decodeJSONObject extracts the first balanced object from an LLM response
// and unmarshals it into out. Used by both the completion analyzer and the
// report generator so parse behavior stays uniform.
func decodeJSONObject(text string, out any) error {
	raw, err := extractJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Join(ErrNoJSONObject, err)
	}
	return nil
}
