package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"predictions/domain/entities"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const sweepLockKey = "lifecycle-sweep"

// ResolutionWorker periodically locks expired events, flags stale ones and
// settles price-referenced events once a post-deadline price is known
type ResolutionWorker struct {
	coordinator *EventCoordinator
	locks       LockManager
	prices      PriceSource
	schedule    string
	lockTTL     time.Duration
	staleGrace  time.Duration
}

// SweepResult summarises one sweep
type SweepResult struct {
	Locked   int
	Flagged  int
	Resolved int
	Skipped  bool
}

// NewResolutionWorker creates a new worker. locks and prices may be nil; without
// locks every instance sweeps, without prices nothing is auto-resolved.
func NewResolutionWorker(coordinator *EventCoordinator, locks LockManager, prices PriceSource, schedule string, lockTTL, staleGrace time.Duration) *ResolutionWorker {
	return &ResolutionWorker{
		coordinator: coordinator,
		locks:       locks,
		prices:      prices,
		schedule:    schedule,
		lockTTL:     lockTTL,
		staleGrace:  staleGrace,
	}
}

// Start schedules the sweep and returns a stop function that waits for a
// running sweep to finish
func (w *ResolutionWorker) Start(ctx context.Context) (func(), error) {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			log.WithError(err).Error("Lifecycle sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", w.schedule, err)
	}

	c.Start()
	log.WithField("schedule", w.schedule).Info("Resolution worker started")

	return func() {
		<-c.Stop().Done()
		log.Info("Resolution worker stopped")
	}, nil
}

// RunOnce performs a single sweep, skipping it when another instance holds the lock
func (w *ResolutionWorker) RunOnce(ctx context.Context) (*SweepResult, error) {
	if w.locks != nil {
		unlock, err := w.locks.Acquire(ctx, sweepLockKey, w.lockTTL)
		if errors.Is(err, ErrLockHeld) {
			log.Debug("Lifecycle sweep running elsewhere, skipping")
			return &SweepResult{Skipped: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		defer unlock()
	}

	result := &SweepResult{}

	locked, err := w.coordinator.LockExpiredEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired events: %w", err)
	}
	result.Locked = len(locked)

	if w.prices != nil {
		resolved, err := w.autoResolve(ctx)
		if err != nil {
			return nil, err
		}
		result.Resolved = resolved
	}

	// Flag after auto-resolution so events settled this sweep are not flagged
	flagged, err := w.coordinator.FlagStaleEvents(ctx, w.staleGrace)
	if err != nil {
		return nil, fmt.Errorf("failed to flag stale events: %w", err)
	}
	result.Flagged = len(flagged)

	if result.Locked > 0 || result.Flagged > 0 || result.Resolved > 0 {
		log.WithFields(log.Fields{
			"locked":   result.Locked,
			"flagged":  result.Flagged,
			"resolved": result.Resolved,
		}).Info("Lifecycle sweep completed")
	}

	return result, nil
}

// autoResolve settles LOCKED events that carry a reference price using the
// first price observed at or after their end time. Each event settles in its
// own transaction; one failure never blocks the rest.
func (w *ResolutionWorker) autoResolve(ctx context.Context) (int, error) {
	pending, err := w.coordinator.ListPendingResolution(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending events: %w", err)
	}

	resolved := 0
	for _, event := range pending {
		if event.ReferencePrice == nil {
			continue
		}

		price, observedAt, ok, err := w.prices.LatestPrice(ctx, event.Category)
		if err != nil {
			log.WithFields(log.Fields{
				"event_id": event.ID,
				"category": event.Category,
				"error":    err,
			}).Warn("Failed to read price for auto-resolution")
			continue
		}
		if !ok || observedAt.Before(event.EndTime) {
			continue
		}

		result, err := w.coordinator.ResolveEvent(ctx, event.ID, "", &price)
		switch {
		case err == nil && !result.AlreadyResolved:
			resolved++
		case err == nil:
		case errors.Is(err, entities.ErrConcurrentResolution):
			// An admin resolved it at the same moment
		default:
			log.WithFields(log.Fields{
				"event_id":    event.ID,
				"final_price": price.String(),
				"error":       err,
			}).Warn("Auto-resolution failed, leaving event for admin")
		}
	}
	return resolved, nil
}
