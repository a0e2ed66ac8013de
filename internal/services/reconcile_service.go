package services

import (
	"context"
	"fmt"
	"time"

	"transfer-ledger/internal/config"
	"transfer-ledger/internal/metrics"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
)

const reconcileBatchSize = 100

// ReconcileReport counts what one sweep did with the orphaned transfers it found.
type ReconcileReport struct {
	Completed int `json:"completed"`
	Repaired  int `json:"repaired"`
	Rejected  int `json:"rejected"`
	Reversed  int `json:"reversed"`
	Failed    int `json:"failed"`
}

// ReconcileService finishes transfers left pending by an interrupted Execute.
// A transfer whose two legs exist is completed, one with a single leg gets the
// missing leg written and is completed, and one with no legs is rejected. A
// transfer holding only its credit is reversed instead of repaired when the
// sender can no longer cover the debit.
type ReconcileService struct {
	store      store.Store
	balances   *BalanceService
	transfers  *TransferService
	statuses   config.StatusIDs
	categories config.CategoryIDs
	after      time.Duration
	metrics    metrics.Collector
	logger     zerolog.Logger
	now        func() time.Time
}

func NewReconcileService(
	st store.Store,
	balances *BalanceService,
	transfers *TransferService,
	statuses config.StatusIDs,
	categories config.CategoryIDs,
	after time.Duration,
	collector metrics.Collector,
	logger zerolog.Logger,
) *ReconcileService {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &ReconcileService{
		store:      st,
		balances:   balances,
		transfers:  transfers,
		statuses:   statuses,
		categories: categories,
		after:      after,
		metrics:    collector,
		logger:     logger,
		now:        time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *ReconcileService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Dur("after", s.after).Msg("Reconciler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Reconciler stopped")
			return
		case <-ticker.C:
			report, err := s.ReconcileOnce(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("Reconcile sweep failed")
				continue
			}
			if report != (ReconcileReport{}) {
				s.logger.Info().
					Int("completed", report.Completed).
					Int("repaired", report.Repaired).
					Int("rejected", report.Rejected).
					Int("reversed", report.Reversed).
					Int("failed", report.Failed).
					Msg("Reconcile sweep finished")
			}
		}
	}
}

// ReconcileOnce handles every pending transfer older than the configured age.
func (s *ReconcileService) ReconcileOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	pending, err := s.store.ListTransfersByStatus(ctx, s.statuses.Pending, s.now().Add(-s.after), reconcileBatchSize)
	if err != nil {
		return report, fmt.Errorf("list pending transfers: %w", err)
	}

	for _, transfer := range pending {
		action, err := s.reconcile(ctx, transfer)
		if err != nil {
			report.Failed++
			s.metrics.RecordReconcile("failed")
			s.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("Failed to reconcile transfer")
			continue
		}

		switch action {
		case "completed":
			report.Completed++
		case "repaired":
			report.Repaired++
		case "rejected":
			report.Rejected++
		case "reversed":
			report.Reversed++
		}
		s.metrics.RecordReconcile(action)
		s.logger.Info().Str("transfer_id", transfer.ID).Str("action", action).Msg("Orphaned transfer reconciled")
	}

	return report, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, transfer *models.Transfer) (string, error) {
	// Execute holds the same per-sender lock while it works on a transfer
	mu := s.transfers.getMutex(transfer.SenderUserID)
	mu.Lock()
	defer mu.Unlock()

	legs, err := s.store.ListTransactionsByTransfer(ctx, transfer.ID)
	if err != nil {
		return "", fmt.Errorf("list legs: %w", err)
	}

	var hasDebit, hasCredit, hasReversal bool
	for _, leg := range legs {
		switch {
		case leg.UserID == transfer.SenderUserID && leg.Amount == -transfer.Amount:
			hasDebit = true
		case leg.UserID == transfer.ReceiverUserID && leg.Amount == transfer.Amount:
			hasCredit = true
		case leg.UserID == transfer.ReceiverUserID && leg.Amount == -transfer.Amount:
			hasReversal = true
		}
	}

	if !hasDebit && !hasCredit {
		if err := s.store.UpdateTransfer(ctx, transfer.ID, store.TransferUpdate{StatusID: store.String(s.statuses.Rejected)}); err != nil {
			return "", fmt.Errorf("reject transfer: %w", err)
		}
		return "rejected", nil
	}

	if hasCredit && !hasDebit {
		// the sender may have spent the money since Execute gave up
		live, err := s.balances.Synchronize(ctx, transfer.SenderUserID)
		if err != nil {
			return "", fmt.Errorf("synchronize sender: %w", err)
		}
		if hasReversal || live < transfer.Amount {
			return "reversed", s.reverse(ctx, transfer, hasReversal)
		}
	}

	action := "completed"
	if !hasDebit || !hasCredit {
		if err := s.writeMissingLeg(ctx, transfer, hasDebit); err != nil {
			return "", err
		}
		action = "repaired"
	}

	if err := syncUsers(ctx, s.balances, transfer.SenderUserID, transfer.ReceiverUserID); err != nil {
		return "", err
	}
	if err := s.store.UpdateTransfer(ctx, transfer.ID, store.TransferUpdate{StatusID: store.String(s.statuses.Completed)}); err != nil {
		return "", fmt.Errorf("complete transfer: %w", err)
	}
	return action, nil
}

func (s *ReconcileService) writeMissingLeg(ctx context.Context, transfer *models.Transfer, hasDebit bool) error {
	sender, err := s.store.GetUser(ctx, transfer.SenderUserID)
	if err != nil {
		return fmt.Errorf("fetch sender: %w", err)
	}
	receiver, err := s.store.GetUser(ctx, transfer.ReceiverUserID)
	if err != nil {
		return fmt.Errorf("fetch recipient: %w", err)
	}

	debit, credit := transferLegs(transfer, sender, receiver, s.statuses, s.categories)
	missing := debit
	if hasDebit {
		missing = credit
	}
	if _, err := s.store.CreateTransaction(ctx, missing); err != nil {
		return fmt.Errorf("write missing leg: %w", err)
	}
	return nil
}

// reverse takes the orphaned credit back from the receiver and rejects the transfer.
func (s *ReconcileService) reverse(ctx context.Context, transfer *models.Transfer, alreadyReversed bool) error {
	if !alreadyReversed {
		sender, err := s.store.GetUser(ctx, transfer.SenderUserID)
		if err != nil {
			return fmt.Errorf("fetch sender: %w", err)
		}
		_, err = s.store.CreateTransaction(ctx, &models.Transaction{
			UserID:       transfer.ReceiverUserID,
			Amount:       -transfer.Amount,
			Counterparty: counterpartyLabel("Reversal of transfer from ", sender),
			Description:  transfer.Description,
			StatusID:     s.statuses.Completed,
			CategoryID:   s.categories.Transfer,
			TransferID:   transfer.ID,
		})
		if err != nil {
			return fmt.Errorf("write reversal: %w", err)
		}
	}

	if err := syncUsers(ctx, s.balances, transfer.SenderUserID, transfer.ReceiverUserID); err != nil {
		return err
	}
	if err := s.store.UpdateTransfer(ctx, transfer.ID, store.TransferUpdate{StatusID: store.String(s.statuses.Rejected)}); err != nil {
		return fmt.Errorf("reject transfer: %w", err)
	}
	return nil
}
