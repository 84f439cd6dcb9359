package broadcast

import (
	"context"
	"time"

	"log/slog"

	"cambiobot/core/logger"
)

// Sender delivers broadcast messages to individual users.
type Sender interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendPhoto(ctx context.Context, userID int64, photoID, caption string) error
}

// Audience yields the recipients of a broadcast.
type Audience interface {
	AllTelegramIDs(ctx context.Context) ([]int64, error)
}

// Failure records one recipient that could not be reached. Blocked bots are
// the usual cause.
type Failure struct {
	UserID int64
	Err    error
}

// Report summarizes a completed broadcast.
type Report struct {
	Sent     int
	Failed   int
	Failures []Failure
}

// Dispatcher sends a message to every registered user, one at a time, with
// a pause between sends so Telegram does not flag the bot as spam.
type Dispatcher struct {
	audience Audience
	sender   Sender
	delay    time.Duration
}

// NewDispatcher builds a dispatcher. A non-positive delay defaults to 100ms.
func NewDispatcher(audience Audience, sender Sender, delay time.Duration) *Dispatcher {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &Dispatcher{audience: audience, sender: sender, delay: delay}
}

// Broadcast delivers text to every user, as a photo caption when photoID is
// set. Per-recipient failures are collected, not fatal. Context cancellation
// stops the run and returns the partial report.
func (d *Dispatcher) Broadcast(ctx context.Context, text, photoID string) (Report, error) {
	ids, err := d.audience.AllTelegramIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			logger.Warn(ctx, "broadcast", "run.interrupted",
				slog.Int("sent", report.Sent),
				slog.Int("failed", report.Failed),
				slog.Int("remaining", len(ids)-i),
			)
			return report, err
		}

		var sendErr error
		if photoID != "" {
			sendErr = d.sender.SendPhoto(ctx, id, photoID, text)
		} else {
			sendErr = d.sender.SendText(ctx, id, text)
		}
		if sendErr != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{UserID: id, Err: sendErr})
			logger.Warn(ctx, "broadcast", "send.failed",
				slog.Int64("user_id", id),
				slog.String("err", sendErr.Error()),
			)
		} else {
			report.Sent++
		}

		if i < len(ids)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(d.delay):
			}
		}
	}

	logger.Info(ctx, "broadcast", "run.completed",
		slog.Int("recipients", len(ids)),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}
