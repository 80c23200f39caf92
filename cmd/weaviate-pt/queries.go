package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Query file tooling",
}

var queriesGenFlags struct {
	input  string
	output string
	alpha  float64
}

var queriesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render per-collection GraphQL for every query in a query file",
	RunE:  runQueriesGenerate,
}

func init() {
	queriesGenerateCmd.Flags().StringVar(&queriesGenFlags.input, "in", "", "input query file (JSON)")
	queriesGenerateCmd.Flags().StringVar(&queriesGenFlags.output, "out", "", "output file (JSON), stdout when empty")
	queriesGenerateCmd.Flags().Float64Var(&queriesGenFlags.alpha, "alpha", 0, "hybrid alpha for entries without one (0 = bm25)")
	_ = queriesGenerateCmd.MarkFlagRequired("in")

	queriesCmd.AddCommand(queriesGenerateCmd)
}

type generatedQuery struct {
	QueryText  string            `json:"query_text"`
	Limit      int               `json:"limit"`
	Mode       query.SearchMode  `json:"mode"`
	Alpha      float64           `json:"alpha,omitempty"`
	Collection map[string]string `json:"graphql_by_collection"`
}

func runQueriesGenerate(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd.Context())

	queries, err := query.LoadFile(queriesGenFlags.input, queriesGenFlags.alpha)
	if err != nil {
		return err
	}

	generated := make([]generatedQuery, 0, queries.Len())
	for _, q := range queries.All() {
		g := generatedQuery{
			QueryText:  q.Text,
			Limit:      q.Limit,
			Mode:       q.Mode,
			Alpha:      q.Alpha,
			Collection: make(map[string]string, len(cfg.Fanout.Shards)),
		}
		for _, target := range cfg.Fanout.Shards {
			graphql, err := query.BuildGraphQL(q, target.Shard)
			if err != nil {
				return fmt.Errorf("query %q, collection %s: %w", q.Text, target.Shard, err)
			}
			g.Collection[target.Shard] = graphql
		}
		generated = append(generated, g)
	}

	data, err := json.MarshalIndent(generated, "", "  ")
	if err != nil {
		return err
	}

	if queriesGenFlags.output == "" {
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}
	if err := os.WriteFile(queriesGenFlags.output, append(data, '\n'), 0o644); err != nil {
		return err
	}
	logger.L().Info("query file generated",
		zap.String("path", queriesGenFlags.output),
		zap.Int("queries", len(generated)))
	return nil
}
