// Command collect pages retweets and following lists from the Twitter API
// into the store. Both collections resume where an earlier, throttled or
// interrupted, run stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rusni-pyzda/twitter-cascades/common"
	"github.com/rusni-pyzda/twitter-cascades/state"
	"github.com/rusni-pyzda/twitter-cascades/twitter"
)

var log = common.NewLogger("collect")

func errIfNotThrottled(err error) error {
	if errors.Is(err, twitter.ErrThrottled) {
		log.Warn("Still throttled, stopping; rerun to resume")
		return nil
	}
	return err
}

// pause waits d, returning early if ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type collector struct {
	cfg    *common.Config
	store  *state.Store
	client *twitter.Client
}

func newCollector(configPath string) (*collector, error) {
	common.LoadEnv(log)
	cfg, err := common.Load(configPath)
	if err != nil {
		return nil, err
	}
	client, err := twitter.NewClient(common.BearerToken(), twitter.WithLogger(log))
	if err != nil {
		return nil, err
	}
	s, err := state.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	return &collector{cfg: cfg, store: s, client: client}, nil
}

func (c *collector) Close() error { return c.store.Close() }

func (c *collector) collectRetweets(ctx context.Context) error {
	for _, search := range c.cfg.Searches() {
		key := search.Key()
		token, done, err := c.store.Cursor(ctx, state.ScopeSearch, key)
		if err != nil {
			return err
		}
		if done {
			log.WithField("query", search.Query).Info("Search already complete")
			continue
		}
		for page := 1; ; page++ {
			res, err := c.client.SearchAll(ctx, search, c.cfg.Request, c.cfg.Collect.MaxResults, token)
			if err != nil {
				return errIfNotThrottled(err)
			}
			if err := c.store.SaveSearchPage(ctx, key, res); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"query":  search.Query,
				"page":   page,
				"tweets": len(res.Tweets),
			}).Info("Stored search page")
			if res.NextToken == "" {
				break
			}
			token = res.NextToken
			if err := pause(ctx, c.cfg.Collect.PageDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// followingTargets returns the accounts whose following lists are collected:
// the named users when any are given, every stored retweeter otherwise.
// Named users are recorded so their lists resolve to usernames at build time.
func (c *collector) followingTargets(ctx context.Context, usernames []string) ([]string, error) {
	if len(usernames) == 0 {
		return c.store.Retweeters(ctx)
	}
	ids := make([]string, 0, len(usernames))
	users := make([]twitter.TwitterUser, 0, len(usernames))
	for _, name := range usernames {
		id, err := c.client.GetUserID(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", name, err)
		}
		ids = append(ids, id)
		users = append(users, twitter.TwitterUser{ID: id, Username: name})
	}
	if err := c.store.UpsertUsers(ctx, users); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *collector) collectFollowing(ctx context.Context, usernames []string) error {
	ids, err := c.followingTargets(ctx, usernames)
	if err != nil {
		return errIfNotThrottled(err)
	}
	for i, id := range ids {
		token, done, err := c.store.Cursor(ctx, state.ScopeFollowing, id)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		for page := 1; ; page++ {
			res, err := c.client.Following(ctx, id, c.cfg.Request, c.cfg.Collect.FollowingMaxResults, token)
			if err != nil {
				return errIfNotThrottled(err)
			}
			if err := c.store.AppendFollowingPage(ctx, id, res); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"user":      id,
				"page":      page,
				"following": len(res.Users),
				"progress":  i + 1,
				"of":        len(ids),
			}).Info("Stored following page")
			if err := pause(ctx, c.cfg.Collect.PageDelay); err != nil {
				return err
			}
			if res.NextToken == "" {
				break
			}
			token = res.NextToken
		}
	}
	return nil
}

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:          "collect",
		Short:        "Collect retweets and following lists into the store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")

	run := func(fn func(*collector, context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, err := newCollector(configPath)
			if err != nil {
				return err
			}
			defer c.Close()
			return fn(c, cmd.Context())
		}
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "retweets",
		Short: "Page full-archive search results for every configured search",
		RunE:  run((*collector).collectRetweets),
	})
	var usernames []string
	followingCmd := &cobra.Command{
		Use:   "following",
		Short: "Page the following list of every stored retweeter, or of the given users",
		RunE: run(func(c *collector, ctx context.Context) error {
			return c.collectFollowing(ctx, usernames)
		}),
	}
	followingCmd.Flags().StringSliceVar(&usernames, "user", nil, "Username to collect instead of the stored retweeters (repeatable)")
	rootCmd.AddCommand(followingCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Fatal("Collection failed")
	}
}
