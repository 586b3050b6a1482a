package cascade

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler_CascadeIDsFollowInputOrder(t *testing.T) {
	ix := NewFollowingIndex()
	ix.Add("b", "a")
	posts := []Post{
		makePost("p0", "a", "b"),
		makePost("p1", "a", "b", "c"),
		makePost("p2", "x", "y"),
	}
	edges, report, err := Build(context.Background(), ix, posts, Options{Workers: 3, BatchSize: 2})
	require.NoError(t, err)
	require.Len(t, edges, 4)

	assert.Equal(t, []int{0, 1, 1, 2}, []int{edges[0].CascadeID, edges[1].CascadeID, edges[2].CascadeID, edges[3].CascadeID})
	assert.Equal(t, 3, report.Posts)
	assert.Equal(t, 3, report.Cascades)
	assert.Equal(t, 4, report.Edges)
	assert.Equal(t, 4, report.DirectExposures)
	assert.InDelta(t, 1.0, report.DirectShare(), 1e-9)
}

func TestAssembler_SkipsMalformedPosts(t *testing.T) {
	posts := []Post{
		makePost("ok0", "a", "b"),
		makePost("empty", "a"),
		makePost("noref", " ", "b"),
		makePost("ok3", "a", "c"),
	}
	edges, report, err := Build(context.Background(), NewFollowingIndex(), posts, Options{})
	require.NoError(t, err)

	require.Len(t, edges, 2)
	assert.Equal(t, 0, edges[0].CascadeID)
	assert.Equal(t, 3, edges[1].CascadeID)

	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "empty", report.Skipped[0].ContentID)
	assert.ErrorIs(t, report.Skipped[0], ErrNoRetweeters)
	assert.Equal(t, "noref", report.Skipped[1].ContentID)
	assert.ErrorIs(t, report.Skipped[1], ErrMissingRefUser)
	assert.Equal(t, 2, report.Cascades)
}

func TestAssembler_SortsOutOfOrderRetweets(t *testing.T) {
	ix := NewFollowingIndex()
	ix.Add("c", "b")
	p := makePost("p", "a", "b", "c")
	p.Retweets[0], p.Retweets[1] = p.Retweets[1], p.Retweets[0]

	edges, report, err := Build(context.Background(), ix, []Post{p}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Reordered, 1)
	assert.ErrorIs(t, report.Reordered[0], ErrOutOfOrder)
	assert.Empty(t, report.Skipped)

	require.Len(t, edges, 2)
	assert.Equal(t, User("b"), edges[0].Source)
	assert.Equal(t, User("c"), edges[1].Source)
	assert.Equal(t, User("b"), edges[1].Target)
	// The caller's post is left untouched.
	assert.Equal(t, User("c"), p.Retweets[0].User)
}

func TestAssembler_StrictOrderingSkips(t *testing.T) {
	p := makePost("p", "a", "b", "c")
	p.Retweets[1].Time = p.Retweets[0].Time.Add(-time.Second)

	edges, report, err := Build(context.Background(), NewFollowingIndex(), []Post{p}, Options{StrictOrdering: true})
	require.NoError(t, err)
	assert.Empty(t, edges)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0], ErrOutOfOrder)
	assert.Empty(t, report.Reordered)
}

func TestAssembler_EqualTimestampsAreInOrder(t *testing.T) {
	p := makePost("p", "a", "b", "c")
	p.Retweets[1].Time = p.Retweets[0].Time
	_, report, err := Build(context.Background(), NewFollowingIndex(), []Post{p}, Options{StrictOrdering: true})
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
}

func TestAssembler_Deterministic(t *testing.T) {
	ix, posts := randomCorpus(7, 150)
	first, _, err := Build(context.Background(), ix, posts, Options{Workers: 8, BatchSize: 5})
	require.NoError(t, err)
	second, _, err := Build(context.Background(), ix, posts, Options{Workers: 1, BatchSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssembler_PostOrderDoesNotChangeEdges(t *testing.T) {
	ix, posts := randomCorpus(11, 80)
	base, _, err := Build(context.Background(), ix, posts, Options{})
	require.NoError(t, err)

	shuffled := make([]Post, len(posts))
	copy(shuffled, posts)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	other, _, err := Build(context.Background(), ix, shuffled, Options{Workers: 5, BatchSize: 3})
	require.NoError(t, err)

	byContent := func(edges []Edge) map[string][]Edge {
		m := map[string][]Edge{}
		for _, e := range edges {
			e.CascadeID = 0
			m[e.ContentID] = append(m[e.ContentID], e)
		}
		return m
	}
	assert.Equal(t, byContent(base), byContent(other))

	for _, e := range other {
		assert.Equal(t, e.ContentID, shuffled[e.CascadeID].ContentID)
	}
}

func TestAssembler_SinkErrorAborts(t *testing.T) {
	boom := errors.New("disk full")
	calls := 0
	sink := SinkFunc(func(_ context.Context, _ int, _ []Edge) error {
		calls++
		return boom
	})
	posts := []Post{makePost("p0", "a", "b"), makePost("p1", "a", "c")}
	_, err := NewAssembler(nil, Options{}).Run(context.Background(), posts, sink)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestAssembler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Build(ctx, NewFollowingIndex(), []Post{makePost("p", "a", "b")}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssembler_NoPosts(t *testing.T) {
	edges, report, err := Build(context.Background(), nil, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, edges)
	assert.Equal(t, 0, report.Posts)
	assert.Zero(t, report.DirectShare())
}
