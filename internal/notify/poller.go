package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the automatic refresh period.
const DefaultInterval = 30 * time.Second

// RefreshResult is published after every refresh attempt.
type RefreshResult struct {
	Snapshot Snapshot
	Err      error
}

// Poller refreshes a Feed on a fixed interval for as long as it runs,
// and on demand. Manual refreshes do not shift the interval's phase.
// A Poller runs once: after Stop it cannot be restarted.
type Poller struct {
	feed     *Feed
	interval time.Duration
	logger   logrus.FieldLogger

	resultCh  chan RefreshResult
	triggerCh chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	doneCh  chan struct{}
	running bool
	stopped bool
}

// NewPoller creates a poller for feed. A non-positive interval falls
// back to DefaultInterval.
func NewPoller(feed *Feed, interval time.Duration, logger logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		feed:      feed,
		interval:  interval,
		logger:    logger.WithField("component", "poller"),
		resultCh:  make(chan RefreshResult, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the polling loop. The first refresh happens at once.
// Calling Start on a running or stopped poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.stopped {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.doneCh = make(chan struct{})
	p.running = true

	go p.run(ctx, p.doneCh)
}

// Stop cancels the loop and waits for it to exit. No refresh starts
// after Stop returns, and the results channel is closed.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	wasRunning := p.running
	p.running = false
	cancel, done := p.cancel, p.doneCh
	p.mu.Unlock()

	if wasRunning {
		cancel()
		<-done
	}
	close(p.resultCh)
}

// Refresh requests an immediate refresh. Requests made while one is
// already queued are merged.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// SetUnreadOnly switches the feed's view mode and refreshes it.
func (p *Poller) SetUnreadOnly(v bool) {
	p.feed.SetUnreadOnly(v)
	p.Refresh()
}

// Results delivers one RefreshResult per refresh. Results are dropped
// when nobody keeps up with the channel.
func (p *Poller) Results() <-chan RefreshResult {
	return p.resultCh
}

func (p *Poller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.triggerCh:
			p.refresh(ctx)
		}
	}
}

// refresh performs one refresh and publishes the outcome.
func (p *Poller) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	err := p.feed.Refresh(ctx)
	if errors.Is(err, ErrClosed) || ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.WithError(err).Debug("refresh failed; retrying on next tick")
	}

	select {
	case p.resultCh <- RefreshResult{Snapshot: p.feed.Snapshot(), Err: err}:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}
