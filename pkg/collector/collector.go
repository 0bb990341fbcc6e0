package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	errs "igfollow/pkg/errors"
	"igfollow/pkg/instagram"
	"igfollow/pkg/logger"
	"igfollow/pkg/ratelimit"
	"igfollow/pkg/snapshot"
)

// Options controls a collection run
type Options struct {
	// Kind selects the following or followers list
	Kind instagram.EdgeKind
	// Resume seeds the run from a previous snapshot of the same account
	Resume bool
	// Progress, when set, is told about every page
	Progress ProgressReporter
	// Logger defaults to the global logger
	Logger logger.Logger
}

// Collector walks a follow list page by page, rewriting the snapshot after
// every page. A Collector runs one collection at a time.
type Collector struct {
	resolver Resolver
	fetcher  PageFetcher
	limiter  ratelimit.Limiter
	store    SnapshotStore
	opts     Options
	logger   logger.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a collector. client usually is an *instagram.Client, limiter
// runs before every page request and store receives the snapshots.
func New(client InstagramClient, limiter ratelimit.Limiter, store SnapshotStore, opts Options) *Collector {
	if opts.Kind == "" {
		opts.Kind = instagram.KindFollowing
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.Chain{}
	}
	return &Collector{
		resolver: client,
		fetcher:  client,
		limiter:  limiter,
		store:    store,
		opts:     opts,
		logger:   log.WithField("kind", string(opts.Kind)),
	}
}

// State returns the current lifecycle state
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.State
}

// Stats returns a copy of the current run statistics
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Collector) update(fn func(s *Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}

// Run resolves username and collects its whole follow list. On success the
// accumulated records are returned in arrival order. A failure after the
// lookup leaves a snapshot holding every record gathered before it.
func (c *Collector) Run(ctx context.Context, username string) ([]instagram.FollowEdge, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.MissingArgument("username")
	}

	c.mu.Lock()
	if s := c.stats.State; s == StateResolving || s == StatePaging {
		c.mu.Unlock()
		return nil, fmt.Errorf("collector is already %s", s)
	}
	c.stats = Stats{State: StateResolving, Username: username}
	c.mu.Unlock()

	log := c.logger.WithField("username", username)

	userID, err := c.resolver.ResolveUserID(ctx, username)
	if err != nil {
		c.update(func(s *Stats) { s.State = StateFailed })
		log.WithError(err).Error("profile lookup failed")
		return nil, err
	}
	if userID == "" {
		err := errs.New(errs.KindEmptyIdentifier, "profile lookup did not return a user id")
		c.update(func(s *Stats) { s.State = StateFailed })
		log.Error(err.Error())
		return nil, err
	}

	return c.page(ctx, log.WithField("user_id", userID), userID)
}

func (c *Collector) page(ctx context.Context, log logger.Logger, userID string) ([]instagram.FollowEdge, error) {
	var (
		users  []instagram.FollowEdge
		cursor string
	)
	if c.opts.Resume {
		users, cursor = c.resumeFrom(log, userID)
	}

	c.update(func(s *Stats) {
		s.State = StatePaging
		s.UserID = userID
		s.Cursor = cursor
		s.Collected = len(users)
		s.Resumed = cursor != ""
	})

	for pageNum := 1; ; pageNum++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.fail(log, userID, users, cursor, err)
		}

		page, err := c.fetcher.FetchPage(ctx, c.opts.Kind, userID, cursor)
		if err != nil {
			return nil, c.fail(log, userID, users, cursor, err)
		}

		users = append(users, page.Users...)
		hasMore := page.HasMore

		if err := c.store.Write(&snapshot.Snapshot{
			ScrapedUserID:  userID,
			Cursor:         page.NextMaxID,
			TotalCollected: len(users),
			Users:          users,
			HasMore:        &hasMore,
			Kind:           string(c.opts.Kind),
		}); err != nil {
			c.update(func(s *Stats) { s.State = StateFailed })
			log.WithError(err).Error("failed to write snapshot")
			return nil, err
		}

		c.update(func(s *Stats) {
			s.Pages = pageNum
			s.Collected = len(users)
		})
		log.InfoWithFields("page collected", map[string]interface{}{
			"page":       pageNum,
			"page_items": len(page.Users),
			"total":      len(users),
			"has_more":   page.HasMore,
		})
		if c.opts.Progress != nil {
			c.opts.Progress.PageFetched(pageNum, len(page.Users), len(users))
		}

		if page.IsLast() {
			c.update(func(s *Stats) {
				s.State = StateDone
				s.Cursor = ""
			})
			log.InfoWithFields("collection complete", map[string]interface{}{
				"pages": pageNum,
				"total": len(users),
			})
			return users, nil
		}

		cursor = page.NextCursor()
		c.update(func(s *Stats) { s.Cursor = cursor })
	}
}

// fail records a failure snapshot holding the records gathered so far and
// the cursor of the request that failed, then returns cause.
func (c *Collector) fail(log logger.Logger, userID string, users []instagram.FollowEdge, cursor string, cause error) error {
	c.update(func(s *Stats) { s.State = StateFailed })
	log.WithError(cause).ErrorWithFields("collection failed", map[string]interface{}{
		"cursor": cursor,
		"total":  len(users),
	})

	if err := c.store.Write(&snapshot.Snapshot{
		ScrapedUserID:  userID,
		Cursor:         snapshot.CursorPtr(cursor),
		TotalCollected: len(users),
		Users:          users,
		Error:          snapshot.NewErrorInfo(cause),
		Kind:           string(c.opts.Kind),
	}); err != nil {
		log.WithError(err).Error("failed to write failure snapshot")
	}
	return cause
}

// resumeFrom returns the records and cursor of a previous unfinished run for
// userID, or nothing when there is none.
func (c *Collector) resumeFrom(log logger.Logger, userID string) ([]instagram.FollowEdge, string) {
	prev, err := c.store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no previous snapshot, starting fresh")
		} else {
			log.WithError(err).Warn("ignoring unreadable snapshot")
		}
		return nil, ""
	}
	if !prev.Resumable(userID) || (prev.Kind != "" && prev.Kind != string(c.opts.Kind)) {
		log.Info("previous snapshot is complete or for another account, starting fresh")
		return nil, ""
	}

	log.InfoWithFields("resuming from snapshot", map[string]interface{}{
		"cursor":    prev.CursorValue(),
		"collected": len(prev.Users),
	})
	users := make([]instagram.FollowEdge, len(prev.Users))
	copy(users, prev.Users)
	return users, prev.CursorValue()
}
