package rank_test

import (
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "one value per bucket",
			values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			want:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		{
			name:   "short input left-padded with zeros",
			values: []float64{1, 2, 3, 4, 5},
			want:   []float64{0, 0, 0, 0, 0, 1, 2, 3, 4, 5},
		},
		{
			name:   "unsorted input",
			values: []float64{5, 3, 1, 4, 2},
			want:   []float64{0, 0, 0, 0, 0, 1, 2, 3, 4, 5},
		},
		{
			name:   "integer width of two",
			values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want:   []float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20},
		},
		{
			name:   "empty input",
			values: nil,
			want:   []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, rank.StandardizedSegments(tt.values))
		})
	}
}

func TestStandardizedSegments_FractionalWidth(t *testing.T) {
	t.Parallel()

	values := make([]float64, 15)
	for i := range values {
		values[i] = float64((i + 1) * 10)
	}

	segs := rank.StandardizedSegments(values)
	require.Len(t, segs, rank.Buckets)
	// width 1.5: indexes 0, 2, 3, 5, 6, 8, 9, 11, 12, 14, each scaled by 1.1
	want := []float64{11, 33, 44, 66, 77, 99, 110, 132, 143, 165}
	for i := range want {
		assert.InDelta(t, want[i], segs[i], 1e-9, "segment %d", i)
	}
}

func TestSegmentPosition(t *testing.T) {
	t.Parallel()

	segs := []float64{1.1, 33, 36.3, 38.5, 66, 96.8, 110, 550, 4400, 990000}

	assert.Equal(t, 1, rank.SegmentPosition(10, segs))
	assert.Equal(t, 8, rank.SegmentPosition(1000, segs))
	assert.Equal(t, 0, rank.SegmentPosition(0, segs))
	assert.Equal(t, 0, rank.SegmentPosition(1.1, segs))
	assert.Equal(t, 9, rank.SegmentPosition(5_000_000, segs))
	assert.Equal(t, 0, rank.SegmentPosition(3, nil))
}

func TestComposite(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, rank.Composite(0, 0, 0), 0)
	assert.InDelta(t, 123000, rank.Composite(1, 2, 3), 0)
	assert.InDelta(t, 9000, rank.Composite(0, 0, 9), 0)
	assert.Greater(t, rank.Composite(1, 0, 0), rank.Composite(0, 9, 9))
}

func TestRank(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.ArticleRecord{
		{URL: "quiet", Timestamp: base},
		{URL: "viral", RetweetCount: 500, FavoriteCount: 900, Timestamp: base},
		{URL: "bookmarked", FavoriteCount: 1, Bookmarks: []domain.BookmarkSave{{BookmarkID: "b"}}, Timestamp: base},
		{URL: "newer-quiet", Timestamp: base.Add(time.Hour)},
	}

	ranked := rank.Rank(records)
	require.Len(t, ranked, 4)

	order := make([]string, 0, len(ranked))
	for _, r := range ranked {
		order = append(order, r.URL)
		assert.GreaterOrEqual(t, r.Rank, 1)
		assert.LessOrEqual(t, r.Rank, 10)
	}
	assert.Equal(t, []string{"bookmarked", "viral", "newer-quiet", "quiet"}, order)

	assert.Equal(t, 10, ranked[0].Rank)
	assert.Greater(t, ranked[0].Rank, ranked[1].Rank)
	assert.Equal(t, ranked[2].Rank, ranked[3].Rank)
	assert.Zero(t, records[0].Rank, "input must not be modified")
}

func TestRank_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, rank.Rank(nil))
}
