package cascade

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink receives the edges of one cascade at a time, in input order.
type Sink interface {
	WriteCascade(ctx context.Context, cascadeID int, edges []Edge) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, cascadeID int, edges []Edge) error

func (f SinkFunc) WriteCascade(ctx context.Context, cascadeID int, edges []Edge) error {
	return f(ctx, cascadeID, edges)
}

// Options tune an Assembler. Zero values select the defaults.
type Options struct {
	// Workers bounds the number of posts resolved concurrently.
	Workers int
	// BatchSize is the number of posts resolved before their edges are
	// flushed to the sink.
	BatchSize int
	Policy    TargetPolicy
	// StrictOrdering skips posts whose retweets are out of time order
	// instead of sorting them.
	StrictOrdering bool
	Logger         logrus.FieldLogger
}

const (
	DefaultWorkers   = 4
	DefaultBatchSize = 64
)

// Report summarizes one assembler run.
type Report struct {
	Posts           int
	Cascades        int
	Edges           int
	DirectExposures int
	// Skipped lists malformed posts that produced no edges.
	Skipped []*PostError
	// Reordered lists posts whose retweets had to be sorted by time.
	Reordered []*PostError
}

// DirectShare is the fraction of edges pointing at the original poster.
func (r *Report) DirectShare() float64 {
	if r.Edges == 0 {
		return 0
	}
	return float64(r.DirectExposures) / float64(r.Edges)
}

// Assembler builds the edge table of a whole corpus of posts.
type Assembler struct {
	resolver *Resolver
	opts     Options
}

func NewAssembler(index *FollowingIndex, opts Options) *Assembler {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Assembler{
		resolver: NewResolver(index, opts.Policy),
		opts:     opts,
	}
}

type postResult struct {
	edges     []Edge
	skipped   *PostError
	reordered *PostError
}

// Run resolves every post and hands each cascade to sink. The cascade id of
// a post is its position in posts. Malformed posts are skipped and
// reported; only sink failures and cancellation abort the run.
func (a *Assembler) Run(ctx context.Context, posts []Post, sink Sink) (*Report, error) {
	report := &Report{Posts: len(posts)}
	for start := 0; start < len(posts); start += a.opts.BatchSize {
		end := start + a.opts.BatchSize
		if end > len(posts) {
			end = len(posts)
		}
		results := make([]postResult, end-start)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.opts.Workers)
		for j := range results {
			j := j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[j] = a.resolvePost(posts[start+j], start+j)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		for j, res := range results {
			id := start + j
			if res.reordered != nil {
				a.opts.Logger.WithFields(logrus.Fields{
					"content_id": res.reordered.ContentID,
					"cascade_id": id,
				}).Warn("retweets out of time order, sorted before resolving")
				report.Reordered = append(report.Reordered, res.reordered)
			}
			if res.skipped != nil {
				a.opts.Logger.WithFields(logrus.Fields{
					"content_id": res.skipped.ContentID,
					"cascade_id": id,
				}).WithError(res.skipped.Err).Warn("skipping post")
				report.Skipped = append(report.Skipped, res.skipped)
				continue
			}
			if err := sink.WriteCascade(ctx, id, res.edges); err != nil {
				return report, fmt.Errorf("writing cascade %d: %w", id, err)
			}
			report.Cascades++
			report.Edges += len(res.edges)
			for _, e := range res.edges {
				if e.Direct() {
					report.DirectExposures++
				}
			}
			a.opts.Logger.WithFields(logrus.Fields{
				"content_id": posts[id].ContentID,
				"cascade_id": id,
				"edges":      len(res.edges),
			}).Debugf("processed cascade %d/%d", id+1, len(posts))
		}
	}
	return report, nil
}

func (a *Assembler) resolvePost(p Post, id int) postResult {
	if err := p.validate(); err != nil {
		return postResult{skipped: &PostError{ContentID: p.ContentID, CascadeID: id, Err: err}}
	}
	var res postResult
	if !p.inTimeOrder() {
		perr := &PostError{ContentID: p.ContentID, CascadeID: id, Err: ErrOutOfOrder}
		if a.opts.StrictOrdering {
			return postResult{skipped: perr}
		}
		res.reordered = perr
		p = p.sortedByTime()
	}
	res.edges = a.resolver.Resolve(p, id)
	return res
}

// Build runs an Assembler over posts and collects every edge in memory.
func Build(ctx context.Context, index *FollowingIndex, posts []Post, opts Options) ([]Edge, *Report, error) {
	var edges []Edge
	sink := SinkFunc(func(_ context.Context, _ int, e []Edge) error {
		edges = append(edges, e...)
		return nil
	})
	report, err := NewAssembler(index, opts).Run(ctx, posts, sink)
	return edges, report, err
}
