package weaviate

import (
	"sort"
	"strconv"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// hitsPath pulls the per-collection hit lists out of a GraphQL response
// body, whatever the collection is named.
var hitsPath = jp.MustParseString("$.data.Get.*[*]")

// Hit is one merged search result with its source shard attached.
type Hit struct {
	Shard  string         `json:"shard"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

// ScoreMerger ranks the Ok payloads of a batch into one globally ordered
// result list, truncated to the query limit. Pure over resolved outcomes;
// implements fanout.Merger.
type ScoreMerger struct{}

// Merge implements fanout.Merger.
func (ScoreMerger) Merge(ok []fanout.SubQueryOutcome, q query.LogicalQuery) any {
	var hits []Hit
	for _, o := range ok {
		doc, err := oj.Parse(o.Payload)
		if err != nil {
			continue
		}
		for _, raw := range hitsPath.Get(doc) {
			fields, isMap := raw.(map[string]any)
			if !isMap {
				continue
			}
			hits = append(hits, Hit{
				Shard:  o.Shard,
				Score:  extractScore(fields),
				Fields: fields,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits
}

// extractScore reads _additional.score. Weaviate reports the score as a
// JSON string; tolerate a plain number as well.
func extractScore(fields map[string]any) float64 {
	additional, ok := fields["_additional"].(map[string]any)
	if !ok {
		return 0
	}
	switch v := additional["score"].(type) {
	case string:
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return score
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}
