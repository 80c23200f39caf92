package query

import (
	"encoding/json"
	"regexp"
)

var vectorPattern = regexp.MustCompile(`vector:\s*\[`)

// ExtractVector pulls the embedding array out of a rendered GraphQL query
// string. Query files store the full GraphQL text; the embedding (up to 3072
// dimensions) is embedded inline, so we find the matching bracket rather
// than parse the whole document.
func ExtractVector(graphql string) []float32 {
	loc := vectorPattern.FindStringIndex(graphql)
	if loc == nil {
		return nil
	}

	start := loc[1] - 1 // position of the opening bracket
	depth := 0
	end := -1
	for i := start; i < len(graphql); i++ {
		switch graphql[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil
	}

	var vec []float32
	if err := json.Unmarshal([]byte(graphql[start:end]), &vec); err != nil {
		return nil
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}
