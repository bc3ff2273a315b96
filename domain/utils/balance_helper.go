package utils

import (
	"context"

	"prizepool/domain/entities"
	"prizepool/domain/events"
	"prizepool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordBalanceChange records a balance history entry and emits the
// balance change event. This is the single entry point for auditing
// balance changes; the in-memory ledger stays authoritative, so
// archive and publish failures are logged rather than propagated.
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.BalanceHistory) {
	if balanceHistoryRepo != nil {
		if err := balanceHistoryRepo.Record(ctx, history); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"accountID":       history.AccountID,
				"transactionType": history.TransactionType,
				"changeAmount":    history.ChangeAmount,
			}).Error("Failed to record balance history")
		}
	}

	if eventPublisher == nil {
		return
	}

	event := events.BalanceChangeEvent{
		AccountID:       history.AccountID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	}
	if history.DrawID != nil {
		event.DrawID = *history.DrawID
	}
	log.WithFields(log.Fields{
		"accountID":       event.AccountID,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"changeAmount":    event.ChangeAmount,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}
}
