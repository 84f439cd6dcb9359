package broadcast

import (
	"context"
	"errors"
	"fmt"

	"cambiobot/internal/session"
)

// ErrNotAdmin is returned when a non-admin user invokes a broadcast operation.
var ErrNotAdmin = errors.New("broadcast: not an admin")

// ErrNothingStaged is returned when a photo arrives without a staged text.
var ErrNothingStaged = errors.New("broadcast: no staged broadcast")

// Controller gates broadcast operations behind the admin and manages the
// two-phase photo broadcast: stage the caption first, attach the photo next.
type Controller struct {
	adminID    int64
	sessions   session.Store
	dispatcher *Dispatcher
}

// NewController builds a controller for the given admin user.
func NewController(adminID int64, sessions session.Store, dispatcher *Dispatcher) *Controller {
	return &Controller{adminID: adminID, sessions: sessions, dispatcher: dispatcher}
}

// IsAdmin reports whether the user may run broadcasts.
func (c *Controller) IsAdmin(userID int64) bool {
	return c.adminID != 0 && userID == c.adminID
}

// BroadcastText runs a one-shot text broadcast.
func (c *Controller) BroadcastText(ctx context.Context, userID int64, text string) (Report, error) {
	if !c.IsAdmin(userID) {
		return Report{}, ErrNotAdmin
	}
	return c.dispatcher.Broadcast(ctx, text, "")
}

// Stage stores the caption for a photo broadcast. The next photo from the
// admin completes it.
func (c *Controller) Stage(ctx context.Context, userID int64, text string) error {
	if !c.IsAdmin(userID) {
		return ErrNotAdmin
	}
	s, err := c.sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("broadcast: load session: %w", err)
	}
	s.BroadcastText = text
	if err := c.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("broadcast: save session: %w", err)
	}
	return nil
}

// Pending returns the staged caption, empty when nothing is staged.
func (c *Controller) Pending(ctx context.Context, userID int64) (string, error) {
	if !c.IsAdmin(userID) {
		return "", nil
	}
	s, err := c.sessions.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("broadcast: load session: %w", err)
	}
	return s.BroadcastText, nil
}

// Cancel drops the staged caption.
func (c *Controller) Cancel(ctx context.Context, userID int64) error {
	if !c.IsAdmin(userID) {
		return ErrNotAdmin
	}
	s, err := c.sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("broadcast: load session: %w", err)
	}
	s.BroadcastText = ""
	if err := c.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("broadcast: save session: %w", err)
	}
	return nil
}

// SendWithPhoto completes a staged broadcast with the given photo. The
// staged caption is cleared before the run starts so a retry cannot fire
// the same broadcast twice.
func (c *Controller) SendWithPhoto(ctx context.Context, userID int64, photoID string) (Report, error) {
	if !c.IsAdmin(userID) {
		return Report{}, ErrNotAdmin
	}
	s, err := c.sessions.Get(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("broadcast: load session: %w", err)
	}
	text := s.BroadcastText
	if text == "" {
		return Report{}, ErrNothingStaged
	}
	s.BroadcastText = ""
	if err := c.sessions.Save(ctx, s); err != nil {
		return Report{}, fmt.Errorf("broadcast: save session: %w", err)
	}
	return c.dispatcher.Broadcast(ctx, text, photoID)
}
