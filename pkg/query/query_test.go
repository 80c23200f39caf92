package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesMode(t *testing.T) {
	q := New("rain", 100, 0, nil)
	assert.Equal(t, ModeBM25, q.Mode)
	assert.Zero(t, q.Alpha)

	q = New("rain", 100, 0.9, nil)
	assert.Equal(t, ModeHybrid, q.Mode)
	assert.Equal(t, 0.9, q.Alpha)

	q = New("rain", 100, 0.5, []float32{0.1, 0.2})
	assert.Equal(t, ModeHybrid, q.Mode)
	assert.Len(t, q.Vector, 2)
}

func TestNewAppliesDefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, New("rain", 0, 0, nil).Limit)
	assert.Equal(t, DefaultLimit, New("rain", -5, 0, nil).Limit)
	assert.Equal(t, 10, New("rain", 10, 0, nil).Limit)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		q       LogicalQuery
		wantErr string
	}{
		{"bm25 ok", New("rain", 10, 0, nil), ""},
		{"hybrid ok", New("rain", 10, 0.7, nil), ""},
		{"empty text", New("", 10, 0, nil), "text is empty"},
		{"bm25 with alpha", LogicalQuery{Text: "x", Limit: 1, Mode: ModeBM25, Alpha: 0.5}, "cannot carry alpha"},
		{"hybrid alpha too big", LogicalQuery{Text: "x", Limit: 1, Mode: ModeHybrid, Alpha: 1.5}, "alpha must be in"},
		{"hybrid alpha zero", LogicalQuery{Text: "x", Limit: 1, Mode: ModeHybrid, Alpha: 0}, "alpha must be in"},
		{"vector without embedding", LogicalQuery{Limit: 1, Mode: ModeVector}, "requires an embedding"},
		{"vector ok", LogicalQuery{Limit: 1, Mode: ModeVector, Vector: []float32{1}}, ""},
		{"bad limit", LogicalQuery{Text: "x", Limit: 0, Mode: ModeBM25}, "limit must be positive"},
		{"unknown mode", LogicalQuery{Text: "x", Limit: 1, Mode: "fuzzy"}, "unknown search mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
