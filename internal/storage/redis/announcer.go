package redis

import (
	"context"
	"time"

	"github.com/crowd-relay/internal/crowd"
	"github.com/crowd-relay/internal/metrics"
	"github.com/crowd-relay/pkg/logger"
)

// Lister yields the live crowds
type Lister interface {
	List() []crowd.Summary
}

// Publisher is where the announcer writes
type Publisher interface {
	Publish(ctx context.Context, summary crowd.Summary, ttl time.Duration) error
	Withdraw(ctx context.Context, ids ...crowd.ID) error
}

// Announcer periodically copies the crowd listing into a Publisher and
// withdraws crowds that have ended since the previous pass.
type Announcer struct {
	lister    Lister
	publisher Publisher
	interval  time.Duration
	metrics   *metrics.Metrics
	log       *logger.Logger

	published map[crowd.ID]struct{}
}

// NewAnnouncer creates an announcer. Entries live for three intervals.
func NewAnnouncer(lister Lister, publisher Publisher, interval time.Duration, m *metrics.Metrics, log *logger.Logger) *Announcer {
	if m == nil {
		m = metrics.New(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Announcer{
		lister:    lister,
		publisher: publisher,
		interval:  interval,
		metrics:   m,
		log:       log,
		published: make(map[crowd.ID]struct{}),
	}
}

// Run syncs every interval until ctx is done, then withdraws everything it
// published.
func (a *Announcer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.sync(ctx)
	for {
		select {
		case <-ticker.C:
			a.sync(ctx)
		case <-ctx.Done():
			a.withdrawAll()
			return
		}
	}
}

// Sync performs one pass and returns the first error it met.
func (a *Announcer) Sync(ctx context.Context) error {
	ttl := 3 * a.interval
	live := make(map[crowd.ID]struct{})

	var firstErr error
	for _, summary := range a.lister.List() {
		live[summary.ID] = struct{}{}
		if err := a.publisher.Publish(ctx, summary, ttl); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		a.published[summary.ID] = struct{}{}
		a.metrics.DirectoryPublished.Inc()
	}

	var gone []crowd.ID
	for id := range a.published {
		if _, ok := live[id]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		if err := a.publisher.Withdraw(ctx, gone...); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			for _, id := range gone {
				delete(a.published, id)
			}
		}
	}
	return firstErr
}

func (a *Announcer) sync(ctx context.Context) {
	if err := a.Sync(ctx); err != nil && ctx.Err() == nil {
		a.log.Warn("Directory sync failed", logger.Err(err))
	}
}

func (a *Announcer) withdrawAll() {
	if len(a.published) == 0 {
		return
	}
	ids := make([]crowd.ID, 0, len(a.published))
	for id := range a.published {
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.publisher.Withdraw(ctx, ids...); err != nil {
		a.log.Warn("Directory cleanup failed", logger.Err(err))
		return
	}
	a.published = make(map[crowd.ID]struct{})
}
