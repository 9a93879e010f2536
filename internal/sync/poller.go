// Package sync runs incremental issue fetches against the tracker,
// remembering where the last successful fetch left off.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
	"github.com/nhle/jira-bridge/internal/store"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// SyncStatus is a snapshot of the poller.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Fetched  int
	Error    error
}

// IssueFetcher is the part of the tracker client the poller needs.
type IssueFetcher interface {
	FetchIssues(ctx context.Context, since *time.Time) ([]source.Issue, error)
}

// Handler receives each batch of fetched issues. Returning an error leaves
// the cursor where it was so the batch is fetched again next time.
type Handler func(ctx context.Context, issues []source.Issue) error

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 2 * time.Minute

// defaultInterval is used when the configured interval is not positive.
const defaultInterval = 300 * time.Second

// Config identifies the cursor a Poller advances.
type Config struct {
	Host     string
	Query    string
	Interval time.Duration
}

// Poller fetches issues updated since the last successful run.
type Poller struct {
	fetcher IssueFetcher
	store   store.Store
	cfg     Config
	handle  Handler
	log     *logger.Logger
	now     func() time.Time

	mu     gosync.Mutex
	status SyncStatus
}

// New creates a Poller. A nil handler discards fetched issues.
func New(fetcher IssueFetcher, s store.Store, cfg Config, handle Handler, log *logger.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if handle == nil {
		handle = func(context.Context, []source.Issue) error { return nil }
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{
		fetcher: fetcher,
		store:   s,
		cfg:     cfg,
		handle:  handle,
		log:     log.WithField("component", "poller"),
		now:     time.Now,
	}
}

// RunOnce performs one incremental fetch. The first run, with no stored
// cursor, fetches everything the base query matches.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	p.setStatus(SyncRunning, 0, nil)

	n, err := p.runOnce(ctx)
	if err != nil {
		p.setStatus(SyncError, 0, err)
		return 0, err
	}

	p.setStatus(SyncIdle, n, nil)
	return n, nil
}

func (p *Poller) runOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	since, ok, err := p.store.GetCursor(ctx, p.cfg.Host, p.cfg.Query)
	if err != nil {
		return 0, err
	}
	var sincePtr *time.Time
	if ok {
		sincePtr = &since
	}

	// The cursor moves to when the fetch started, not when it ended, so
	// issues updated while it ran are picked up next time.
	started := p.now()

	issues, err := p.fetcher.FetchIssues(ctx, sincePtr)
	if err != nil {
		return 0, err
	}

	if err := p.handle(ctx, issues); err != nil {
		return 0, fmt.Errorf("handling fetched issues: %w", err)
	}

	if err := p.store.SetCursor(ctx, p.cfg.Host, p.cfg.Query, started); err != nil {
		return 0, err
	}

	p.log.Debug().
		Int("issues", len(issues)).
		Bool("incremental", ok).
		Msg("sync complete")
	return len(issues), nil
}

// Run calls RunOnce immediately and then every interval until ctx is done.
// Authentication failures stop the loop, since the session will not
// recover on its own; any other error is logged and retried next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if source.IsAuthError(err) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			p.log.Warn().Err(err).Msg("sync failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Status returns the current poller status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) setStatus(state SyncState, fetched int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = p.now()
		p.status.Fetched = fetched
	}
}
