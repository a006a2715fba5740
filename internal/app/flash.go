package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// FlashKind styles a flash message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next page render after a form
// submission redirects.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// Flashes keeps at most one pending flash per session.
type Flashes struct {
	sessions ports.SessionStore
	logger   *slog.Logger
}

// NewFlashes creates a flash store over sessions.
func NewFlashes(sessions ports.SessionStore, logger *slog.Logger) *Flashes {
	if logger == nil {
		logger = slog.Default()
	}

	return &Flashes{sessions: sessions, logger: logger}
}

// Set replaces the session's pending flash. Without a session it is dropped.
func (f *Flashes) Set(ctx context.Context, sessionID string, flash Flash) {
	if sessionID == "" {
		return
	}

	data, err := json.Marshal(flash)
	if err != nil {
		return
	}

	if err := f.sessions.Put(ctx, sessionID, ports.SessionSlotFlash, data); err != nil {
		f.logger.WarnContext(ctx, "storing flash failed", slog.Any("error", err))
	}
}

// Pop returns and clears the session's pending flash.
func (f *Flashes) Pop(ctx context.Context, sessionID string) (Flash, bool) {
	if sessionID == "" {
		return Flash{}, false
	}

	raw, err := f.sessions.Get(ctx, sessionID, ports.SessionSlotFlash)
	if err != nil {
		return Flash{}, false
	}

	if err := f.sessions.Delete(ctx, sessionID, ports.SessionSlotFlash); err != nil {
		f.logger.WarnContext(ctx, "clearing flash failed", slog.Any("error", err))
	}

	var flash Flash
	if err := json.Unmarshal(raw, &flash); err != nil || flash.Message == "" {
		return Flash{}, false
	}

	return flash, true
}
