package application

import (
	"context"
	"errors"
	"time"

	"prizepool/domain/entities"
	"prizepool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DrawWorker drives the draw lifecycle on a schedule: it rotates draws
// every draw period, locks the pool once a draw is committed, and
// rewards as soon as the entropy source leaves its commit phase.
type DrawWorker struct {
	service    interfaces.PoolService
	operatorID int64

	drawPeriod   time.Duration
	pollInterval time.Duration

	lastRotation time.Time
}

// NewDrawWorker creates a worker acting as the given operator account.
// The operator must be an admin of the pool service.
func NewDrawWorker(service interfaces.PoolService, operatorID int64, drawPeriod, pollInterval time.Duration) *DrawWorker {
	return &DrawWorker{
		service:      service,
		operatorID:   operatorID,
		drawPeriod:   drawPeriod,
		pollInterval: pollInterval,
	}
}

// Start begins the worker loop and returns a stop function.
func (w *DrawWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithFields(log.Fields{
			"drawPeriod":   w.drawPeriod,
			"pollInterval": w.pollInterval,
		}).Info("Draw worker started")

		for {
			w.tick(ctx)

			select {
			case <-ctx.Done():
				log.Info("Draw worker shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("Draw worker shutting down (stop requested)")
				return
			case <-time.After(w.pollInterval):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// tick advances the lifecycle by at most one step.
func (w *DrawWorker) tick(ctx context.Context) {
	// Bootstrap: make sure a draw is open for deposits.
	if w.service.CurrentOpenDraw() == nil {
		if _, err := w.service.OpenNextDraw(ctx); err != nil {
			log.WithError(err).Error("Failed to open initial draw")
			return
		}
		w.lastRotation = time.Now()
		return
	}

	committed := w.service.CurrentCommittedDraw()
	if committed == nil || committed.IsRewarded() {
		// Nothing awaiting reward; rotate once the period elapses.
		if time.Since(w.lastRotation) < w.drawPeriod {
			return
		}
		draw, err := w.service.OpenNextDraw(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to open next draw")
			return
		}
		w.lastRotation = time.Now()
		log.WithField("drawID", draw.ID).Info("Draw worker rotated draws")
		return
	}

	// A committed draw is pending: lock, then reward once the seed is
	// revealed.
	locked, err := w.service.IsLocked(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to check lock state")
		return
	}
	if !locked {
		can, err := w.service.CanLock(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to check lock availability")
			return
		}
		if !can {
			return
		}
		if err := w.service.Lock(ctx, w.operatorID); err != nil {
			log.WithError(err).Error("Failed to lock pool for reward")
			return
		}
	}

	result, err := w.service.Reward(ctx, w.operatorID)
	switch {
	case errors.Is(err, entities.ErrSeedNotAvailable):
		log.Debug("Entropy seed not yet revealed, retrying")
		return
	case err != nil && result == nil:
		log.WithError(err).Error("Failed to reward draw")
		return
	case err != nil:
		// The reward itself is final; only a listener failed.
		log.WithError(err).Warn("Draw rewarded with listener failure")
	}

	log.WithFields(log.Fields{
		"drawID":     result.Draw.ID,
		"winner":     result.Winner,
		"rolledOver": result.RolledOver,
	}).Info("Draw worker rewarded draw")
}
