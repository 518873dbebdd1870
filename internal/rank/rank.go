package rank

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
)

const compositeScale = 1000

// Rank annotates records with RankRaw and Rank and returns them sorted, most
// popular first. The input slice is not modified.
//
// Each record's favorite, retweet and bookmark counts are bucketed into
// deciles; the bucket digits are concatenated bookmark-first into RankRaw so a
// single viral metric cannot outweigh the others. The final Rank is the decile
// of RankRaw among the distinct composite scores, plus one.
func Rank(records []domain.ArticleRecord) []domain.ArticleRecord {
	out := slices.Clone(records)
	if len(out) == 0 {
		return out
	}

	favorites := make([]float64, len(out))
	retweets := make([]float64, len(out))
	bookmarks := make([]float64, len(out))
	for i, r := range out {
		favorites[i] = float64(r.FavoriteCount)
		retweets[i] = float64(r.RetweetCount)
		bookmarks[i] = float64(r.BookmarkCount())
	}
	favSegs := StandardizedSegments(favorites)
	rtSegs := StandardizedSegments(retweets)
	bmSegs := StandardizedSegments(bookmarks)

	for i := range out {
		out[i].RankRaw = Composite(
			SegmentPosition(bookmarks[i], bmSegs),
			SegmentPosition(retweets[i], rtSegs),
			SegmentPosition(favorites[i], favSegs),
		)
	}

	slices.SortStableFunc(out, func(a, b domain.ArticleRecord) int {
		if c := cmp.Compare(b.RankRaw, a.RankRaw); c != 0 {
			return c
		}
		if c := cmp.Compare(b.RetweetCount, a.RetweetCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.FavoriteCount, a.FavoriteCount); c != 0 {
			return c
		}
		return b.Timestamp.Compare(a.Timestamp)
	})

	distinct := make([]float64, 0, len(out))
	for _, r := range out {
		if !slices.Contains(distinct, r.RankRaw) {
			distinct = append(distinct, r.RankRaw)
		}
	}
	final := StandardizedSegments(distinct)
	for i := range out {
		out[i].Rank = SegmentPosition(out[i].RankRaw, final) + 1
	}
	return out
}

// Composite concatenates the bucket indexes as decimal digits, bookmark most
// significant, and scales the number by 1000.
func Composite(bookmark, retweet, favorite int) float64 {
	n, err := strconv.ParseFloat(fmt.Sprintf("%d%d%d", bookmark, retweet, favorite), 64)
	if err != nil {
		return 0
	}
	return n * compositeScale
}
