package usecase

import (
	"context"
	"errors"
	"sync"
)

// ErrStopRequested is the cancellation cause set by an explicit user stop.
// The engine maps it to the STOPPED terminal status; any other cause lands
// in CANCELLED.
var ErrStopRequested = errors.New("stop requested")

// ErrRunInProgress is returned when a user already has an ingestion running.
var ErrRunInProgress = errors.New("an ingestion run is already in progress for this user")

// Registry tracks the single in-flight ingestion per user and carries the
// cancellation signal to it. It is injected into whoever starts runs, so
// the at-most-one invariant is testable without process-wide state.
type Registry struct {
	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

func NewRegistry() *Registry {
	return &Registry{
		running: make(map[string]context.CancelCauseFunc),
	}
}

// Begin registers a run for the user and returns the context the run must
// observe, plus a release function that must be called when the run exits
// for any reason. Returns ErrRunInProgress if the user already has one.
func (r *Registry) Begin(parent context.Context, userID string) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.running[userID]; ok {
		return nil, nil, ErrRunInProgress
	}

	ctx, cancel := context.WithCancelCause(parent)
	r.running[userID] = cancel

	release := func() {
		r.mu.Lock()
		delete(r.running, userID)
		r.mu.Unlock()
		cancel(nil)
	}
	return ctx, release, nil
}

// Stop signals the user's in-flight run to stop at its next checkpoint.
// Returns false when no run is in flight.
func (r *Registry) Stop(userID string) bool {
	r.mu.Lock()
	cancel, ok := r.running[userID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancel(ErrStopRequested)
	return true
}

// Running reports whether the user currently has a run in flight.
func (r *Registry) Running(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[userID]
	return ok
}
