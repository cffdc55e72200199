package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/remote"
)

// ErrClosed is returned by a refresh issued after Close.
var ErrClosed = errors.New("notification feed closed")

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// Source is the remote side of the notification feed.
type Source interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, userID, id string) error
}

// Snapshot is a consistent copy of the feed: the list and the counter
// always come from the same state.
type Snapshot struct {
	UserID        string
	Notifications []model.Notification
	UnreadCount   int
	UnreadOnly    bool
	LastRefresh   time.Time
	Err           error
}

// inFlight marks a pending mutation whose acknowledgement has not
// arrived yet.
const inFlight = math.MaxUint64

// pendingOp is an optimistic mutation that refresh results must keep
// honoring. watermark is the last refresh sequence issued before the
// mutation settled; a refresh issued after it already reflects the
// server's answer and retires the op.
type pendingOp struct {
	at        time.Time
	watermark uint64
}

func (op *pendingOp) appliesTo(seq uint64) bool {
	return op.watermark == inFlight || seq <= op.watermark
}

// Feed holds one user's notifications and unread counter. Refresh
// replaces both from the server; the Mutator changes them
// optimistically in between.
type Feed struct {
	source Source
	logger logrus.FieldLogger
	now    func() time.Time

	mu          sync.Mutex
	userID      string
	unreadOnly  bool
	items       []model.Notification
	unread      int
	lastRefresh time.Time
	lastErr     error
	closed      bool

	// epoch changes on Reset and Close; refreshes from an older epoch
	// are discarded.
	epoch uint64
	// seq numbers refreshes as they are issued; applied is the newest
	// one whose result is shown.
	seq     uint64
	applied uint64

	reads   map[string]*pendingOp
	deletes map[string]*pendingOp
	allRead *pendingOp
}

// NewFeed creates an empty feed for userID. An empty userID means
// unauthenticated: the feed stays empty.
func NewFeed(src Source, userID string, unreadOnly bool, logger logrus.FieldLogger) *Feed {
	return &Feed{
		source:     src,
		logger:     logger.WithField("component", "feed"),
		now:        time.Now,
		userID:     userID,
		unreadOnly: unreadOnly,
		reads:      make(map[string]*pendingOp),
		deletes:    make(map[string]*pendingOp),
	}
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]model.Notification, len(f.items))
	for i, n := range f.items {
		items[i] = n.Clone()
	}
	return Snapshot{
		UserID:        f.userID,
		Notifications: items,
		UnreadCount:   f.unread,
		UnreadOnly:    f.unreadOnly,
		LastRefresh:   f.lastRefresh,
		Err:           f.lastErr,
	}
}

// UnreadCount returns the current counter.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// SetUnreadOnly switches the view mode used by the next refresh.
func (f *Feed) SetUnreadOnly(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadOnly = v
}

// Reset rebinds the feed to another identity and empties it. Refreshes
// and acknowledgements for the previous identity are discarded.
func (f *Feed) Reset(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	f.userID = userID
	f.items = nil
	f.unread = 0
	f.lastErr = nil
	f.lastRefresh = time.Time{}
	f.reads = make(map[string]*pendingOp)
	f.deletes = make(map[string]*pendingOp)
	f.allRead = nil
}

// Close tears the feed down. Results of requests still in flight are
// never applied.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.epoch++
}

// Refresh fetches the list and the unread count and replaces both at
// once. Without a credential the feed becomes empty. On any other
// failure the previous contents stay and the error is recorded.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.seq++
	seq, epoch := f.seq, f.epoch
	userID, unreadOnly := f.userID, f.unreadOnly
	f.mu.Unlock()

	if userID == "" {
		f.apply(seq, epoch, nil, 0)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var (
		items []model.Notification
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = f.source.ListNotifications(gctx, userID, unreadOnly)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = f.source.UnreadCount(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		log := f.logger.WithField("user_id", userID).WithError(err)
		if remote.IsAuthError(err) {
			log.Debug("refresh without usable credential; showing empty feed")
			f.apply(seq, epoch, nil, 0)
			return nil
		}
		log.Warn("failed to refresh notifications")
		f.recordError(seq, epoch, err)
		return fmt.Errorf("refreshing notifications: %w", err)
	}

	f.apply(seq, epoch, items, count)
	return nil
}

// recordError keeps err unless a newer refresh has already been applied.
func (f *Feed) recordError(seq, epoch uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.epoch != epoch || seq < f.applied {
		return
	}
	f.lastErr = err
}

// apply installs a refresh result, re-applying optimistic mutations the
// result may predate. Stale or superseded results are dropped.
func (f *Feed) apply(seq, epoch uint64, items []model.Notification, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.epoch != epoch || seq < f.applied {
		return
	}
	f.applied = seq

	for id, op := range f.deletes {
		if !op.appliesTo(seq) {
			delete(f.deletes, id)
			continue
		}
		items, count = removeByID(items, id, count)
	}
	for id, op := range f.reads {
		if !op.appliesTo(seq) {
			delete(f.reads, id)
			continue
		}
		for i := range items {
			if items[i].ID == id && items[i].MarkRead(op.at) {
				count--
			}
		}
	}
	if f.allRead != nil {
		if f.allRead.appliesTo(seq) {
			for i := range items {
				items[i].MarkRead(f.allRead.at)
			}
			count = 0
		} else {
			f.allRead = nil
		}
	}

	f.items = items
	f.unread = max(count, 0)
	f.lastErr = nil
	f.lastRefresh = f.now()
}

// removeByID drops id from items, adjusting the unread count when the
// dropped entry was unread.
func removeByID(items []model.Notification, id string, count int) ([]model.Notification, int) {
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if !items[i].Read {
			count--
		}
		return append(items[:i:i], items[i+1:]...), count
	}
	return items, count
}

// markRead applies a read locally and records it as in flight. It
// returns the owning identity and the pending op, or nil when the id is
// not held.
func (f *Feed) markRead(id string) (string, *pendingOp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", nil
	}

	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		at := f.now()
		if f.items[i].MarkRead(at) {
			f.unread = max(f.unread-1, 0)
		}
		op := &pendingOp{at: at, watermark: inFlight}
		f.reads[id] = op
		return f.userID, op
	}
	return "", nil
}

// markAllRead marks every entry read and zeroes the counter.
func (f *Feed) markAllRead() (string, *pendingOp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.userID == "" {
		return "", nil
	}

	at := f.now()
	for i := range f.items {
		f.items[i].MarkRead(at)
	}
	f.unread = 0
	f.allRead = &pendingOp{at: at, watermark: inFlight}
	return f.userID, f.allRead
}

// remove deletes an entry locally. Removing an id that is not held is
// a no-op and returns a nil op.
func (f *Feed) remove(id string) (string, *pendingOp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", nil
	}

	before := len(f.items)
	f.items, f.unread = removeByID(f.items, id, f.unread)
	if len(f.items) == before {
		return "", nil
	}
	f.unread = max(f.unread, 0)
	op := &pendingOp{at: f.now(), watermark: inFlight}
	f.deletes[id] = op
	return f.userID, op
}

// settle records that the remote call for op has answered. The op keeps
// shielding the feed from refreshes issued before this point.
func (f *Feed) settle(op *pendingOp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op.watermark == inFlight {
		op.watermark = f.seq
	}
}
