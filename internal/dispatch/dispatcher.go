// Package dispatch delivers notification records through a messaging channel
// with at-most-once semantics keyed on the record's dedup key.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"propbot/internal/model"
	"propbot/internal/storage"
)

// Channel sends a formatted message to a recipient.
type Channel interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Formatter renders a notification payload into message text.
type Formatter interface {
	Format(p model.Payload) (string, error)
}

// Outcome is the result of one delivery attempt.
type Outcome int

// Delivery outcomes.
const (
	Delivered Outcome = iota
	AlreadyDelivered
	Failed
	Skipped
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case AlreadyDelivered:
		return "already_delivered"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// DefaultLease is how long a claimed record may stay in the sending state
// before another dispatcher may take it over.
const DefaultLease = 10 * time.Minute

// Dispatcher formats and sends notification records.
type Dispatcher struct {
	store     storage.Storage
	channel   Channel
	formatter Formatter
	log       *slog.Logger
	timeout   time.Duration
	lease     time.Duration
	now       func() time.Time
}

// New creates a Dispatcher. timeout bounds each channel call.
func New(store storage.Storage, ch Channel, f Formatter, timeout time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		channel:   ch,
		formatter: f,
		log:       log,
		timeout:   timeout,
		lease:     DefaultLease,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Lease returns the claim lease duration.
func (d *Dispatcher) Lease() time.Duration {
	return d.lease
}

// Deliver sends the record stored under dedupKey. The stored record is
// authoritative: a sent record is never sent again, and a record claimed by
// another dispatcher is skipped. A record whose saved search was deleted or
// disabled since it was queued is cancelled instead of sent. A started send is not interrupted by ctx
// cancellation; it is bounded by the dispatcher timeout instead.
func (d *Dispatcher) Deliver(ctx context.Context, dedupKey string) (Outcome, error) {
	n, err := d.store.GetNotificationByKey(ctx, dedupKey)
	if err != nil {
		return Failed, fmt.Errorf("load notification: %w", err)
	}
	if n.Status == model.StatusSent {
		return AlreadyDelivered, nil
	}

	now := d.now()
	claimed, err := d.store.ClaimNotification(ctx, n.ID, now.Add(-d.lease), now)
	if err != nil {
		return Failed, fmt.Errorf("claim notification: %w", err)
	}
	if !claimed {
		return Skipped, nil
	}

	// From here on the record is ours; finish even if the caller stops.
	ctx = context.WithoutCancel(ctx)

	if n.SearchID != nil {
		live, err := d.searchLive(ctx, *n.SearchID)
		if err != nil {
			d.markFailed(ctx, n, fmt.Sprintf("load search: %v", err))
			return Failed, fmt.Errorf("load search: %w", err)
		}
		if !live {
			if err := d.store.CancelNotification(ctx, n.ID, "search inactive", d.now()); err != nil {
				return Failed, fmt.Errorf("cancel notification: %w", err)
			}
			d.log.Info("notification cancelled", "notification_id", n.ID, "search_id", *n.SearchID)
			return Cancelled, nil
		}
	}

	text, err := d.formatter.Format(n.Payload)
	if err != nil {
		d.markFailed(ctx, n, fmt.Sprintf("format: %v", err))
		return Failed, fmt.Errorf("format notification: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	err = d.channel.Send(sendCtx, n.OwnerID, text)
	cancel()
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "send timed out"
		}
		d.markFailed(ctx, n, reason)
		return Failed, fmt.Errorf("send: %w", err)
	}

	b := retry.WithMaxRetries(3, retry.NewConstant(50*time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if err := d.store.MarkNotificationSent(ctx, n.ID, d.now()); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		// The message went out; the record stays claimed until the lease ends.
		d.log.Error("mark notification sent", "notification_id", n.ID, "dedup_key", n.DedupKey, "error", err)
	}
	return Delivered, nil
}

func (d *Dispatcher) searchLive(ctx context.Context, id int64) (bool, error) {
	ss, err := d.store.GetSearch(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ss.Active && ss.Enabled, nil
}

func (d *Dispatcher) markFailed(ctx context.Context, n *model.Notification, reason string) {
	if err := d.store.MarkNotificationFailed(ctx, n.ID, reason, d.now()); err != nil {
		d.log.Error("mark notification failed", "notification_id", n.ID, "error", err)
	}
	d.log.Warn("notification failed", "notification_id", n.ID, "owner_id", n.OwnerID,
		"dedup_key", n.DedupKey, "attempt", n.Attempts+1, "error", reason)
}
