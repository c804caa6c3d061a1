// Package notify reports completed labeling runs to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RunSummary is the data sent to notification destinations after a
// labeling run finishes.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Dataset    string    `json:"dataset"`
	Total      int       `json:"total"`
	Viral      int       `json:"viral"`
	Window     int       `json:"window"`
	Multiplier float64   `json:"multiplier"`
	FinishedAt time.Time `json:"finished_at"`
}

// ViralShare returns the labeled-viral fraction, 0 for an empty run.
func (r *RunSummary) ViralShare() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Viral) / float64(r.Total)
}

// Notifier delivers run summaries to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, r *RunSummary) error
}

// Manager broadcasts run summaries to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new notification manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a run summary to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, r *RunSummary) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
