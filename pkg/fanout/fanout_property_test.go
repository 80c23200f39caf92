package fanout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Every batch, whatever the shards do, must account for every target exactly
// once and classify truthfully from the Ok count.
func TestBatchAccountingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.MaxSize = 16
	properties := gopter.NewProperties(parameters)

	statusGen := gen.OneConstOf(StatusOk, StatusApplicationError, StatusTransportError)
	statusesGen := gen.SliceOf(statusGen).SuchThat(func(s []Status) bool {
		return len(s) > 0 && len(s) <= 16
	})

	properties.Property("one outcome per target, truthful classification", prop.ForAll(
		func(statuses []Status) bool {
			responses := make(map[string]stubResponse, len(statuses))
			ts := make([]ShardTarget, len(statuses))
			wantOk := 0
			for i, s := range statuses {
				shard := fmt.Sprintf("shard-%d", i)
				ts[i] = ShardTarget{Shard: shard}
				responses[shard] = stubResponse{status: s, payload: []byte(`{}`)}
				if s == StatusOk {
					wantOk++
				}
			}

			c := New(passthroughBuilder(), newStubClient(responses))
			batch, err := c.Execute(context.Background(), testQuery(), ts, 5*time.Second)
			if err != nil {
				return false
			}

			if len(batch.SubOutcomes) != len(ts) {
				return false
			}
			if batch.OkCount != wantOk {
				return false
			}
			for i, o := range batch.SubOutcomes {
				if o.Shard != ts[i].Shard {
					return false
				}
			}

			switch {
			case wantOk == len(ts):
				return batch.Classification == FullSuccess
			case wantOk == 0:
				return batch.Classification == TotalFailure && batch.Merged == nil
			default:
				return batch.Classification == PartialSuccess
			}
		},
		statusesGen,
	))

	properties.TestingRun(t)
}

func TestClassifyTruthTable(t *testing.T) {
	cases := []struct {
		okCount, total int
		want           Classification
	}{
		{9, 9, FullSuccess},
		{1, 1, FullSuccess},
		{8, 9, PartialSuccess},
		{1, 9, PartialSuccess},
		{0, 9, TotalFailure},
		{0, 1, TotalFailure},
	}
	for _, tc := range cases {
		got := classify(tc.okCount, tc.total)
		if got != tc.want {
			t.Errorf("classify(%d, %d) = %s, want %s", tc.okCount, tc.total, got, tc.want)
		}
	}
}
