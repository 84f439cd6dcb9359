package flows

import (
	"context"
	"fmt"

	"log/slog"

	"cambiobot/core/logger"
	"cambiobot/internal/session"
)

// Engine owns per-user conversation state. Every entry point acquires the
// user's lock, loads the session, dispatches, and persists the session
// before releasing the lock. Steps of one user never interleave.
type Engine struct {
	store    session.Store
	locks    *session.Locker
	handlers map[session.Flow]Handler
}

// NewEngine builds an engine around the given session store.
func NewEngine(store session.Store) *Engine {
	return &Engine{
		store:    store,
		locks:    session.NewLocker(),
		handlers: make(map[session.Flow]Handler),
	}
}

// Register adds a flow handler. Registering two handlers under the same
// name is a programming error.
func (e *Engine) Register(h Handler) {
	name := h.Name()
	if _, dup := e.handlers[name]; dup {
		panic(fmt.Sprintf("flows: duplicate handler %q", name))
	}
	e.handlers[name] = h
}

// InProgress reports whether the user is inside an active flow.
func (e *Engine) InProgress(ctx context.Context, userID int64) bool {
	s, err := e.store.Get(ctx, userID)
	if err != nil {
		logger.Error(ctx, "flow.engine", "session.load.failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return s.InFlow()
}

// StartFlow begins the named flow for the user, replacing any flow already
// in progress.
func (e *Engine) StartFlow(ctx context.Context, userID int64, flow session.Flow, msg Message) error {
	h, ok := e.handlers[flow]
	if !ok {
		return fmt.Errorf("flows: unknown flow %q", flow)
	}

	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	s, err := e.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("flows: load session: %w", err)
	}

	startErr := h.Start(ctx, s, msg)
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("flows: save session: %w", err)
	}
	if startErr != nil {
		return fmt.Errorf("flows: start %s: %w", flow, startErr)
	}

	logger.Debug(ctx, "flow.engine", "flow.started",
		slog.Int64("user_id", userID),
		slog.String("flow", string(s.Flow)),
		slog.String("step", string(s.Step)),
	)
	return nil
}

// Handle advances the user's active flow with the incoming message.
// The boolean result reports whether a flow consumed the message.
func (e *Engine) Handle(ctx context.Context, userID int64, msg Message) (bool, error) {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	s, err := e.store.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("flows: load session: %w", err)
	}
	if !s.InFlow() {
		return false, nil
	}

	h, ok := e.handlers[s.Flow]
	if !ok {
		// A flow persisted by an older build. Reset rather than trap the user.
		logger.Warn(ctx, "flow.engine", "flow.orphaned",
			slog.Int64("user_id", userID),
			slog.String("flow", string(s.Flow)),
		)
		s.EndFlow()
		if err := e.store.Save(ctx, s); err != nil {
			return false, fmt.Errorf("flows: save session: %w", err)
		}
		return false, nil
	}

	prevFlow, prevStep := s.Flow, s.Step
	handleErr := h.Handle(ctx, s, msg)
	if err := e.store.Save(ctx, s); err != nil {
		return true, fmt.Errorf("flows: save session: %w", err)
	}
	if handleErr != nil {
		return true, fmt.Errorf("flows: handle %s/%s: %w", prevFlow, prevStep, handleErr)
	}

	logger.Debug(ctx, "flow.engine", "flow.step",
		slog.Int64("user_id", userID),
		slog.String("flow", string(prevFlow)),
		slog.String("from", string(prevStep)),
		slog.String("to", string(s.Step)),
	)
	return true, nil
}

// Cancel drops the user's active flow, if any.
func (e *Engine) Cancel(ctx context.Context, userID int64) error {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	s, err := e.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("flows: load session: %w", err)
	}
	if !s.InFlow() {
		return nil
	}
	s.EndFlow()
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("flows: save session: %w", err)
	}
	return nil
}
