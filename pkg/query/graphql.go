package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// resultFields is the field list returned for every SongLyrics collection.
var resultFields = []string{
	"title", "tag", "artist", "year", "views", "features", "lyrics",
	"song_id", "language_cld3", "language_ft", "language",
}

func fieldBlock() string {
	var b strings.Builder
	for _, f := range resultFields {
		b.WriteString("      ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("      _additional {\n        score\n      }")
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// BuildGraphQL renders the collection-scoped GraphQL query for q. The
// bm25/hybrid paths are kept strictly segregated: a bm25 query never carries
// a hybrid clause and vice versa.
func BuildGraphQL(q LogicalQuery, collection string) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	switch q.Mode {
	case ModeBM25:
		return buildBM25(q, collection), nil
	case ModeHybrid:
		return buildHybrid(q, collection), nil
	case ModeVector:
		return buildVector(q, collection), nil
	}
	return "", fmt.Errorf("unknown search mode %q", q.Mode)
}

func buildBM25(q LogicalQuery, collection string) string {
	return fmt.Sprintf(`{
  Get {
    %s(
      bm25: {
        query: "%s"
        properties: ["title", "lyrics"]
      }
      limit: %d
    ) {
%s
    }
  }
}`, collection, escape(q.Text), q.Limit, fieldBlock())
}

func buildHybrid(q LogicalQuery, collection string) string {
	params := fmt.Sprintf("query: \"%s\"\n        alpha: %g", escape(q.Text), q.Alpha)
	if len(q.Vector) > 0 {
		vec, _ := json.Marshal(q.Vector)
		params += "\n        vector: " + string(vec)
	}
	params += "\n        properties: [\"title\", \"lyrics\"]"

	return fmt.Sprintf(`{
  Get {
    %s(
      hybrid: {
        %s
      }
      limit: %d
    ) {
%s
    }
  }
}`, collection, params, q.Limit, fieldBlock())
}

func buildVector(q LogicalQuery, collection string) string {
	vec, _ := json.Marshal(q.Vector)
	return fmt.Sprintf(`{
  Get {
    %s(
      nearVector: {
        vector: %s
      }
      limit: %d
    ) {
%s
    }
  }
}`, collection, string(vec), q.Limit, fieldBlock())
}
