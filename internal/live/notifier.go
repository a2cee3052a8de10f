// Package live watches the remote feed head and publishes creation events,
// giving the UI a push-style bridge on top of a poll-only backend.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/infblueocean/flock/internal/bus"
	"github.com/infblueocean/flock/internal/feed"
)

// pollTimeout bounds each head fetch.
const pollTimeout = 15 * time.Second

// Notifier polls the head of the global feed and publishes an ItemCreated
// event for every item above the last seen id. It never touches the store:
// the UI decides, on its own loop, whether an announced item belongs in the
// current view.
type Notifier struct {
	source   feed.Source
	bus      *bus.Bus
	logger   *log.Logger
	interval time.Duration
	limiter  *rate.Limiter

	mu       sync.Mutex
	lastSeen int64

	// lastHead holds the ids of the previous head page; an id that was
	// there and is gone, while newer items still follow it, was deleted
	// remotely. Only the poll goroutine touches it.
	lastHead map[int64]struct{}

	wg sync.WaitGroup
}

// New creates a notifier polling every interval. seed is the id below which
// items are considered already known, typically Store.HeadID after the
// first page load.
func New(source feed.Source, b *bus.Bus, logger *log.Logger, interval time.Duration, seed int64) *Notifier {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Notifier{
		source:   source,
		bus:      b,
		logger:   logger,
		interval: interval,
		// One extra burst token absorbs a manual refresh landing on top
		// of a scheduled poll.
		limiter:  rate.NewLimiter(rate.Every(interval/2), 2),
		lastSeen: seed,
	}
}

// Advance raises the high-water mark, e.g. after the viewer posts locally.
// Lower values are ignored.
func (n *Notifier) Advance(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if id > n.lastSeen {
		n.lastSeen = id
	}
}

// Start begins polling. Context cancellation is the only stop mechanism.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.poll(ctx)
			}
		}
	}()
}

// Wait blocks until the polling goroutine exits. Call after canceling the
// context passed to Start.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// poll fetches the global head page and publishes anything unseen.
func (n *Notifier) poll(ctx context.Context) {
	if !n.limiter.Allow() {
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	items, err := n.source.FetchPage(pollCtx, feed.SubjectAll, 1)
	if err != nil {
		if n.logger != nil {
			n.logger.Debug("live poll failed", "err", err)
		}
		return
	}

	n.mu.Lock()
	mark := n.lastSeen
	var fresh []feed.Item
	for _, it := range items {
		if it.ID > mark {
			fresh = append(fresh, it)
		}
		if it.ID > n.lastSeen {
			n.lastSeen = it.ID
		}
	}
	n.mu.Unlock()

	// Pages arrive newest first; announce oldest first so head insertion
	// leaves the newest item on top.
	for i := len(fresh) - 1; i >= 0; i-- {
		n.bus.Publish(bus.ItemCreated{Item: fresh[i]})
	}
	if len(fresh) > 0 && n.logger != nil {
		n.logger.Debug("live items announced", "count", len(fresh))
	}

	n.announceDeletions(items)
}

// announceDeletions publishes ItemDeleted for ids that were on the previous
// head page but are no longer, while older items still are. An id that
// merely slid past the end of the page is indistinguishable from a delete
// below the page's oldest entry, so only the window above it is compared.
func (n *Notifier) announceDeletions(items []feed.Item) {
	current := make(map[int64]struct{}, len(items))
	oldest := int64(0)
	for i, it := range items {
		current[it.ID] = struct{}{}
		if i == 0 || it.ID < oldest {
			oldest = it.ID
		}
	}

	if len(items) > 0 {
		for id := range n.lastHead {
			if _, ok := current[id]; !ok && id > oldest {
				n.bus.Publish(bus.ItemDeleted{ItemID: id})
				if n.logger != nil {
					n.logger.Debug("live item deleted", "id", id)
				}
			}
		}
	}
	n.lastHead = current
}
