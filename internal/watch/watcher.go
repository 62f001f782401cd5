// Package watch runs the fetch-reconcile-notify cycle: it diffs the
// fetched alert set against the stored one, applies store mutations,
// and collects notification embeds which are dispatched in one batch
// after all mutations are done.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ctawatch/internal/discord"
	"ctawatch/internal/feed"
	"ctawatch/internal/store"
	logx "ctawatch/pkg/logx"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]feed.Alert, error)
}

type Store interface {
	SelectAll(ctx context.Context) ([]store.Row, error)
	Insert(ctx context.Context, r store.Row) error
	Update(ctx context.Context, r store.Row) error
	Delete(ctx context.Context, id string) error
	Now(ctx context.Context) (int64, error)
}

type Poster interface {
	Post(ctx context.Context, embeds []discord.Embed)
}

type Options struct {
	Interval time.Duration

	// NotifyOnProximity emits "starting now" / "ending" embeds when the
	// store clock falls within one poll interval of an unchanged
	// alert's start or end. Off by default: too noisy in practice.
	NotifyOnProximity bool

	// NotifyOnRemoval emits an "ended" embed when an alert disappears
	// from the feed. Off by default for the same reason.
	NotifyOnRemoval bool
}

type Watcher struct {
	log   logx.Logger
	fetch Fetcher
	store Store
	post  Poster

	mu   sync.Mutex
	opts Options
}

func New(fetch Fetcher, st Store, post Poster, opts Options, log logx.Logger) *Watcher {
	return &Watcher{
		log:   log,
		fetch: fetch,
		store: st,
		post:  post,
		opts:  opts,
	}
}

// Apply swaps the reloadable options. The poll interval itself is not
// reloadable (it is owned by the scheduler); only the window it implies
// for proximity checks follows the new value.
func (w *Watcher) Apply(opts Options) {
	w.mu.Lock()
	w.opts = opts
	w.mu.Unlock()
}

func (w *Watcher) options() Options {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opts
}

// RunCycle executes one fetch-reconcile-notify pass.
//
// A fetch failure aborts the cycle with no mutations: a transient feed
// outage must not read as "all alerts removed". A store failure aborts
// the remainder of the cycle; mutations already applied stay (no
// rollback). Neither is fatal to the process.
func (w *Watcher) RunCycle(ctx context.Context) error {
	opts := w.options()

	alerts, err := w.fetch.Fetch(ctx)
	if err != nil {
		w.log.Warn("alert fetch failed; keeping existing state", logx.Err(err))
		return fmt.Errorf("fetch: %w", err)
	}

	stored, err := w.store.SelectAll(ctx)
	if err != nil {
		return fmt.Errorf("select alerts: %w", err)
	}
	now, err := w.store.Now(ctx)
	if err != nil {
		return fmt.Errorf("store clock: %w", err)
	}

	// Cold store: the first populated cycle is a silent baseline sync,
	// otherwise every alert would be announced as new.
	skipNotifications := len(stored) == 0

	byID := make(map[string]store.Row, len(stored))
	for _, r := range stored {
		byID[r.ID] = r
	}

	var embeds []discord.Embed
	var inserted, updated, deleted int
	window := int64(opts.Interval / time.Second)
	seen := make(map[string]bool, len(alerts))

	for _, a := range alerts {
		seen[a.ID] = true

		row := rowOf(a)

		// The store gets epoch seconds; notifications get the
		// localized display string.
		display := a
		display.Start = feed.DisplayTime(a.Start)
		display.End = feed.DisplayTime(a.End)

		prev, exists := byID[a.ID]
		switch {
		case !exists:
			if err := w.store.Insert(ctx, row); err != nil {
				return fmt.Errorf("insert alert %s: %w", a.ID, err)
			}
			inserted++
			if !skipNotifications {
				embeds = append(embeds, discord.NewAlert(display))
			}

		case trackedFieldsDiffer(prev, row):
			// Color/url are written through but do not count as a
			// change on their own.
			if err := w.store.Update(ctx, row); err != nil {
				return fmt.Errorf("update alert %s: %w", a.ID, err)
			}
			updated++
			if !skipNotifications {
				embeds = append(embeds, discord.ChangedAlert(display))
			}

		default:
			if skipNotifications || !opts.NotifyOnProximity {
				continue
			}
			if row.Start != nil && now > *row.Start && now < *row.Start+window {
				embeds = append(embeds, discord.StartedAlert(display))
			} else if row.End != nil && now < *row.End && now > *row.End-window {
				embeds = append(embeds, discord.EndedAlert(display))
			}
		}
	}

	// Rows whose id no longer appears in the feed are expired.
	for _, prev := range stored {
		if seen[prev.ID] {
			continue
		}
		if err := w.store.Delete(ctx, prev.ID); err != nil {
			return fmt.Errorf("delete alert %s: %w", prev.ID, err)
		}
		deleted++
		if !skipNotifications && opts.NotifyOnRemoval {
			embeds = append(embeds, discord.EndedAlert(alertOf(prev)))
		}
	}

	// All mutations are done before anything is dispatched.
	if len(embeds) > 0 {
		w.post.Post(ctx, embeds)
	}

	w.log.Info("alert data reconciled",
		logx.Int("fetched", len(alerts)),
		logx.Int("inserted", inserted),
		logx.Int("updated", updated),
		logx.Int("deleted", deleted),
		logx.Int("notified", len(embeds)),
		logx.Bool("baseline", skipNotifications),
	)
	return nil
}

func rowOf(a feed.Alert) store.Row {
	r := store.Row{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Color:       a.Color,
		URL:         a.URL,
	}
	if v, ok := feed.EpochSeconds(a.Start); ok {
		r.Start = &v
	}
	if v, ok := feed.EpochSeconds(a.End); ok {
		r.End = &v
	}
	return r
}

// alertOf rebuilds the notification view of a stored row. Removal
// embeds carry no time fields, so the epoch values are not rendered.
func alertOf(r store.Row) feed.Alert {
	return feed.Alert{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Color:       r.Color,
		URL:         r.URL,
	}
}

// trackedFieldsDiffer compares the fields whose change triggers an
// update and a "changed" notification: start, end, title, description.
func trackedFieldsDiffer(prev, next store.Row) bool {
	return !epochEqual(prev.Start, next.Start) ||
		!epochEqual(prev.End, next.End) ||
		prev.Title != next.Title ||
		prev.Description != next.Description
}

func epochEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
